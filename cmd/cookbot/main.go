package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"cookbot/core/catalog"
	"cookbot/core/config"
	"cookbot/core/database"
	"cookbot/core/flow"
	"cookbot/core/logger"
	"cookbot/core/order"
	"cookbot/core/session"
	"cookbot/core/telegram"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(logger.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Dir:         cfg.Logging.Dir,
		File:        cfg.Logging.BotFile,
		DebugSample: cfg.Logging.DebugSample,
		Profile:     cfg.Logging.Profile,
	}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, err := catalog.Load(cfg.Catalog.Dir, catalogLayout(cfg))
	if err != nil {
		return err
	}

	store := session.NewStore(func() *order.Cart { return order.NewCart(cat) })

	var archive *order.Archive
	if cfg.Database.Host != "" {
		if err := database.RunMigrations(cfg.Database); err != nil {
			return err
		}
		db, err := database.Connect(cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		archive = order.NewArchive(db)
		if cfg.Sessions.Backend == config.SessionsBackendPostgres {
			store.WithPersistence(session.NewPostgresSnapshotter(db),
				time.Duration(cfg.Sessions.DebounceMS)*time.Millisecond)
		}
	}
	if cfg.Sessions.Backend == config.SessionsBackendFile {
		store.WithPersistence(session.NewFileSnapshotter(cfg.Sessions.File),
			time.Duration(cfg.Sessions.DebounceMS)*time.Millisecond)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(shutdownCtx); err != nil {
			logger.Error(shutdownCtx, "session", "shutdown",
				slog.String("err", err.Error()),
			)
		}
	}()

	// a corrupt snapshot must not keep the bot down
	if err := store.Restore(ctx); err != nil {
		logger.Error(ctx, "session", "restore",
			slog.String("err", err.Error()),
		)
	}

	dispatch := flow.NewDispatcher(store, cat)

	return telegram.Run(ctx, telegram.RunOptions{
		Config:  cfg,
		Flow:    dispatch,
		Archive: archive,
	})
}

func catalogLayout(cfg *config.Config) catalog.Layout {
	layout := catalog.Layout{Week: cfg.Catalog.DishesOfTheWeek}
	for _, cat := range cfg.Catalog.Categories {
		layout.Sections = append(layout.Sections, catalog.SectionLayout{
			Name:   cat.Name,
			Dishes: cat.Dishes,
		})
	}
	return layout
}
