package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"log/slog"

	"cookbot/core/logger"
)

// Catalog is the immutable dish lookup plus menu layout.
type Catalog struct {
	dishes   map[string]Dish
	sections []Section
	week     []Dish
}

// Layout names the dishes each menu section contains, by asset folder name.
type Layout struct {
	Sections []SectionLayout
	Week     []string
}

// SectionLayout pairs a category name with its dish ids.
type SectionLayout struct {
	Name   string
	Dishes []string
}

// Load reads every dish folder under dir and arranges the menu per layout.
// A section or weekly entry referencing a missing dish fails the load.
func Load(dir string, layout Layout) (*Catalog, error) {
	start := time.Now()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("catalog: read dir %s: %w", dir, err)
	}

	dishes := make(map[string]Dish, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dish, err := loadDish(filepath.Join(dir, e.Name()), e.Name())
		if err != nil {
			return nil, err
		}
		dishes[dish.ID] = dish
	}
	if len(dishes) == 0 {
		return nil, fmt.Errorf("catalog: no dish folders under %s", dir)
	}

	c := &Catalog{dishes: dishes}
	for _, sec := range layout.Sections {
		section := Section{Name: sec.Name}
		for _, id := range sec.Dishes {
			dish, ok := dishes[id]
			if !ok {
				return nil, fmt.Errorf("catalog: section %q references unknown dish %q", sec.Name, id)
			}
			section.Dishes = append(section.Dishes, dish)
		}
		c.sections = append(c.sections, section)
	}
	for _, id := range layout.Week {
		dish, ok := dishes[id]
		if !ok {
			return nil, fmt.Errorf("catalog: weekly selection references unknown dish %q", id)
		}
		c.week = append(c.week, dish)
	}

	logger.Info(context.Background(), "catalog", "load",
		slog.String("path", dir),
		slog.Int("dishes", len(dishes)),
		slog.Int("sections", len(c.sections)),
		slog.Duration("duration", logger.Took(start)),
	)
	return c, nil
}

func loadDish(folder, name string) (Dish, error) {
	priceRaw, err := readAsset(folder, "price.txt")
	if err != nil {
		return Dish{}, err
	}
	price, err := decimal.NewFromString(strings.TrimSpace(priceRaw))
	if err != nil {
		return Dish{}, fmt.Errorf("catalog: dish %q: bad price %q: %w", name, strings.TrimSpace(priceRaw), err)
	}
	if price.IsNegative() {
		return Dish{}, fmt.Errorf("catalog: dish %q: negative price", name)
	}

	description, err := readAsset(folder, "description.txt")
	if err != nil {
		return Dish{}, err
	}
	whatYouGet, err := readAsset(folder, "what_you_get.txt")
	if err != nil {
		return Dish{}, err
	}
	whatYouNeed, err := readAsset(folder, "what_you_need.txt")
	if err != nil {
		return Dish{}, err
	}

	photo := filepath.Join(folder, "photo.jpg")
	if _, err := os.Stat(photo); err != nil {
		return Dish{}, fmt.Errorf("catalog: dish %q: photo.jpg: %w", name, err)
	}

	return Dish{
		ID:          name,
		Name:        name,
		Price:       price,
		Description: strings.TrimRight(description, "\n"),
		WhatYouGet:  strings.TrimRight(whatYouGet, "\n"),
		WhatYouNeed: strings.TrimRight(whatYouNeed, "\n"),
		PhotoPath:   photo,
	}, nil
}

func readAsset(folder, file string) (string, error) {
	data, err := os.ReadFile(filepath.Join(folder, file))
	if err != nil {
		return "", fmt.Errorf("catalog: %s: %w", filepath.Join(folder, file), err)
	}
	return string(data), nil
}

// Dish returns the dish by id.
func (c *Catalog) Dish(id string) (Dish, bool) {
	d, ok := c.dishes[id]
	return d, ok
}

// Price implements the price lookup used by the cart aggregate.
func (c *Catalog) Price(id string) (decimal.Decimal, bool) {
	d, ok := c.dishes[id]
	if !ok {
		return decimal.Decimal{}, false
	}
	return d.Price, true
}

// Sections returns menu categories in display order.
func (c *Catalog) Sections() []Section {
	return c.sections
}

// Section returns a category by its display name.
func (c *Catalog) Section(name string) (Section, bool) {
	for _, s := range c.sections {
		if s.Name == name {
			return s, true
		}
	}
	return Section{}, false
}

// Week returns the weekly dish selection.
func (c *Catalog) Week() []Dish {
	return c.week
}

// Len reports the number of dishes in the store.
func (c *Catalog) Len() int {
	return len(c.dishes)
}
