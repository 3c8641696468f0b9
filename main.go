package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"taskboard/internal/config"
	"taskboard/internal/store"
)

var Version = "dev"

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "taskboard",
		Short:         "Taskboard - Kanban project boards with drag-and-drop ordering",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")

	// Add subcommands
	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(migrateCmd(&configPath))
	rootCmd.AddCommand(seedCmd(&configPath))

	return rootCmd
}

// loadConfig reads the configuration and applies its logging settings to the
// standard logrus logger.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	log.SetLevel(level)
	if cfg.Log.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	return cfg, nil
}

// openStore opens the configured backend, wrapped with the Redis cache when
// a Redis URL is set.
func openStore(cfg *config.Config) (store.Store, error) {
	var (
		base store.Store
		err  error
	)

	switch cfg.Database.Driver {
	case config.DriverSQLite:
		if !strings.HasPrefix(cfg.Database.URL, ":memory:") {
			// Ensure data directory exists
			if err := os.MkdirAll(filepath.Dir(cfg.Database.URL), 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
		base, err = store.NewSQLiteStore(cfg.Database.URL)
	case config.DriverPostgres:
		base, err = store.NewPostgresStore(cfg.Database.URL)
	case config.DriverMemory:
		base = store.NewMemoryStore()
	default:
		err = fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	log.WithFields(log.Fields{"driver": cfg.Database.Driver}).Info("store ready")

	if cfg.Redis.URL == "" {
		return base, nil
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		base.Close()
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	log.WithFields(log.Fields{"addr": opts.Addr, "ttl": cfg.Redis.TTL}).Info("caching task lists in redis")
	return store.NewCache(base, redis.NewClient(opts), cfg.Redis.TTL), nil
}
