package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// FileSnapshotter keeps the session mapping in a single JSON file. Writes
// go through a temp file plus rename so a crash never leaves a torn blob.
type FileSnapshotter struct {
	path string
}

// NewFileSnapshotter stores snapshots at path.
func NewFileSnapshotter(path string) *FileSnapshotter {
	return &FileSnapshotter{path: path}
}

// Save serializes the mapping and atomically replaces the snapshot file.
func (f *FileSnapshotter) Save(_ context.Context, records map[int64]Record) error {
	// JSON object keys are strings
	encoded := make(map[string]Record, len(records))
	for id, rec := range records {
		encoded[strconv.FormatInt(id, 10)] = rec
	}
	data, err := json.MarshalIndent(encoded, "", "  ")
	if err != nil {
		return fmt.Errorf("session snapshot: marshal: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("session snapshot: mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".sessions-*.json")
	if err != nil {
		return fmt.Errorf("session snapshot: temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("session snapshot: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("session snapshot: close: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("session snapshot: rename: %w", err)
	}
	return nil
}

// Load reads the snapshot file. A missing file yields an empty mapping.
func (f *FileSnapshotter) Load(_ context.Context) (map[int64]Record, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[int64]Record{}, nil
		}
		return nil, fmt.Errorf("session snapshot: read: %w", err)
	}

	encoded := make(map[string]Record)
	if err := json.Unmarshal(data, &encoded); err != nil {
		return nil, fmt.Errorf("session snapshot: parse: %w", err)
	}
	out := make(map[int64]Record, len(encoded))
	for key, rec := range encoded {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("session snapshot: bad chat id %q: %w", key, err)
		}
		out[id] = rec
	}
	return out, nil
}
