package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/udisondev/dressroom/internal/config"
	"github.com/udisondev/dressroom/internal/data"
	"github.com/udisondev/dressroom/internal/db"
	"github.com/udisondev/dressroom/internal/shard"
)

const ConfigPath = "config/shard.yaml"

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
	flagSet := pflag.NewFlagSet("shard", pflag.ContinueOnError)
	flagSet.StringVarP(&cfgPath, "config", "c", "", "path to shard.yaml (env DRESSROOM_SHARD_CONFIG)")
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if cfgPath == "" {
		cfgPath = ConfigPath
		if p := os.Getenv("DRESSROOM_SHARD_CONFIG"); p != "" {
			cfgPath = p
		}
	}

	cfg, err := config.LoadShard(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: config.ParseLogLevel(cfg.LogLevel),
	})))
	slog.Info("dressroom shard starting", "shardID", cfg.ShardID, "bind", cfg.BindAddress, "port", cfg.Port)

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
	chars := db.NewCharacterRepository(pool)
	spaces := db.NewSpaceRepository(pool)

	persister := shard.NewPersister(chars, spaces, cfg.PersistWorkers, slog.Default())
	table := shard.NewSpaceTable(assets, spaces, persister, slog.Default())
	srv, err := shard.NewServer(cfg, table, db.NewTicketRepository(pool), chars)
	if err != nil {
		return fmt.Errorf("creating shard server: %w", err)
	}

	// Persister останавливается после сервера и сохраняет то,
	// что успели закоммитить последние клиенты.
	persistCtx, stopPersist := context.WithCancel(context.Background())
	persistDone := make(chan struct{})
	go func() {
		defer close(persistDone)
		_ = persister.Run(persistCtx)
	}()
	defer func() {
		stopPersist()
		<-persistDone
		slog.Info("pending changes saved")
	}()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Run(gctx); err != nil {
			return fmt.Errorf("shard server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return shard.RunHeartbeat(gctx, db.NewShardRepository(pool), cfg.ShardID, cfg.PublicAddress,
			cfg.HeartbeatInterval, table.Population)
	})

	g.Go(func() error {
		watchCatalog(gctx, cfg.AssetsPath, table)
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// watchCatalog перечитывает каталог по SIGHUP. Сломанный файл не трогает
// текущий каталог.
func watchCatalog(ctx context.Context, path string, table *shard.SpaceTable) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			assets, err := data.LoadAssetManager(path)
			if err != nil {
				slog.Error("reloading asset catalog", "path", path, "error", err)
				continue
			}
			if assets.Digest() == table.Assets().Digest() {
				slog.Info("asset catalog unchanged", "digest", assets.Digest())
				continue
			}
			table.ReloadAssets(assets)
		}
	}
}
