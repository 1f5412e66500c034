package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/udisondev/dressroom/internal/config"
	"github.com/udisondev/dressroom/internal/data"
	"github.com/udisondev/dressroom/internal/db"
	"github.com/udisondev/dressroom/internal/directory"
)

const (
	ConfigPath          = "config/directory.yaml"
	maintenanceInterval = time.Minute
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx, os.Args[1:]); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	var cfgPath string
	flagSet := pflag.NewFlagSet("directory", pflag.ContinueOnError)
	flagSet.StringVarP(&cfgPath, "config", "c", "", "path to directory.yaml (env DRESSROOM_DIRECTORY_CONFIG)")
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if cfgPath == "" {
		cfgPath = ConfigPath
		if p := os.Getenv("DRESSROOM_DIRECTORY_CONFIG"); p != "" {
			cfgPath = p
		}
	}

	cfg, err := config.LoadDirectory(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: config.ParseLogLevel(cfg.LogLevel),
	})))
	slog.Info("dressroom directory starting", "bind", cfg.BindAddress, "port", cfg.Port)

	assets, err := data.LoadAssetManager(cfg.AssetsPath)
	if err != nil {
		return fmt.Errorf("loading asset catalog: %w", err)
	}
	slog.Info("asset catalog loaded", "assets", len(assets.AllAssets()), "digest", assets.Digest())

	database, err := db.New(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()
	slog.Info("database connected")

	if err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database migrations applied")

	pool := database.Pool()
	svc := directory.NewService(cfg, assets, directory.Stores{
		Accounts:   db.NewAccountRepository(pool),
		Characters: db.NewCharacterRepository(pool),
		Spaces:     db.NewSpaceRepository(pool),
		Shards:     db.NewShardRepository(pool),
		Tickets:    db.NewTicketRepository(pool),
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := svc.Run(gctx); err != nil {
			return fmt.Errorf("directory server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return svc.RunMaintenance(gctx, maintenanceInterval)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
