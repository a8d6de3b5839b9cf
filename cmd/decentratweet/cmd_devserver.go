package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/MosinFAM/decentratweet/internal/config"
	"github.com/MosinFAM/decentratweet/internal/db"
	"github.com/MosinFAM/decentratweet/internal/devserver"
	"github.com/MosinFAM/decentratweet/internal/logging"
	"github.com/MosinFAM/decentratweet/internal/storage"
)

func runDevServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStorage(ctx, cfg.DevServer)
	if err != nil {
		return err
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	srv := devserver.New(store, devserver.Options{Registry: reg})
	return srv.Run(ctx, cfg.DevServer.Addr)
}

// openStorage builds the backend selected by cfg, with the Redis like index
// layered on top when an address is configured.
func openStorage(ctx context.Context, cfg config.DevServerConfig) (storage.Storage, func(), error) {
	entry := logging.For("devserver")
	var (
		store   storage.Storage
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.Storage {
	case "postgres":
		conn, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to DB: %w", err)
		}
		closers = append(closers, func() { conn.Close() })
		if err := db.Migrate(conn, cfg.MigrationsDir); err != nil {
			closeAll()
			return nil, nil, err
		}
		store = storage.NewPostgresStorage(conn, cfg.DatabaseURL)
	default:
		store = storage.NewMemoryStorage()
	}
	entry.WithField("storage", cfg.Storage).Info("storage ready")

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			closeAll()
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		closers = append(closers, func() { client.Close() })
		store = storage.NewRedisLikes(store, client)
		entry.WithField("addr", cfg.RedisAddr).Info("likes kept in redis")
	}
	return store, closeAll, nil
}
