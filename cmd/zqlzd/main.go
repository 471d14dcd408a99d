// Package main is the entry point for the zqlz workbench daemon.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/vitaliisemenov/zqlz/internal/config"
	"github.com/vitaliisemenov/zqlz/internal/connmgr"
	"github.com/vitaliisemenov/zqlz/internal/connmgr/securestore"
	"github.com/vitaliisemenov/zqlz/internal/driverapi"
	"github.com/vitaliisemenov/zqlz/internal/drivers/mysql"
	"github.com/vitaliisemenov/zqlz/internal/drivers/postgres"
	redisdriver "github.com/vitaliisemenov/zqlz/internal/drivers/redis"
	"github.com/vitaliisemenov/zqlz/internal/drivers/sqlite"
	"github.com/vitaliisemenov/zqlz/internal/schema"
	"github.com/vitaliisemenov/zqlz/internal/schema/cache"
	"github.com/vitaliisemenov/zqlz/pkg/logger"
)

const (
	serviceName    = "zqlzd"
	serviceVersion = "0.1.0"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:     serviceName,
		Short:   "zqlz workbench daemon",
		Version: serviceVersion,
		RunE:    runServe,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	root.AddCommand(newIntrospectCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadConfig(configPath)
	}
	return config.LoadConfigFromEnv()
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	log := logger.NewLogger(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		Filename:   cfg.Log.Filename,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})
	slog.SetDefault(log)

	log.Info("starting zqlz workbench daemon",
		"service", serviceName,
		"version", serviceVersion,
		"profile", cfg.GetProfileName(),
	)

	// Every dialect driver registers itself here; the connection manager
	// resolves a driver by DialectID when a saved connection is opened.
	registry := driverapi.NewDriverRegistry()
	registry.Register(postgres.NewDriver(log))
	registry.Register(redisdriver.NewDriver(log))
	registry.Register(mysql.NewDriver(log))
	registry.Register(sqlite.NewDriver(log))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	secretsPath := cfg.Storage.FilesystemPath + ".secrets"
	secrets := securestore.New(secretsPath, []byte(cfg.App.Name+":"+cfg.App.Environment))
	connManager := connmgr.NewConnectionManager(registry, secrets, log)

	var pool *postgres.PostgresPool
	var cacheManager *cache.Manager
	var warmer *cache.Warmer

	if cfg.RequiresPostgres() {
		pgConfig := &postgres.PostgresConfig{
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			Database:        cfg.Database.Database,
			User:            cfg.Database.Username,
			Password:        cfg.Database.Password,
			SSLMode:         cfg.Database.SSLMode,
			MaxConns:        int32(cfg.Database.MaxConnections),
			MinConns:        int32(cfg.Database.MinConnections),
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
			ConnectTimeout:  cfg.Database.ConnectTimeout,
		}

		pool = postgres.NewPostgresPool(pgConfig, log)
		if err := pool.Connect(ctx); err != nil {
			return fmt.Errorf("connecting to metadata database: %w", err)
		}
		defer pool.Close()
		log.Info("connected to postgres metadata store")

		introspector := schema.NewPostgresIntrospector(pool.Pool(), log)

		cacheCfg := cache.DefaultConfig()
		cacheCfg.L1Enabled = true
		cacheCfg.L2Enabled = cfg.Redis.Addr != ""
		cacheCfg.RedisAddr = cfg.Redis.Addr
		cacheCfg.RedisPassword = cfg.Redis.Password
		cacheCfg.RedisDB = cfg.Redis.DB
		cacheCfg.RedisPoolSize = cfg.Redis.PoolSize
		cacheCfg.RedisMinIdle = cfg.Redis.MinIdleConns
		cacheCfg.L1TTL = cfg.Cache.DefaultTTL
		cacheCfg.L2TTL = cfg.Cache.MaxTTL

		cacheManager, err = cache.NewManager(cacheCfg, log)
		if err != nil {
			return fmt.Errorf("initializing schema cache: %w", err)
		}
		defer cacheManager.Close()

		warmer = cache.NewWarmer(cacheManager, introspector, nil, log)
		go warmer.Start(ctx, 5*time.Minute)
		defer warmer.Stop()
	} else {
		log.Info("running in lite profile, metadata stored on the local filesystem",
			"path", cfg.Storage.FilesystemPath)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/connections", func(w http.ResponseWriter, r *http.Request) {
		active := connManager.ListActive()
		ids := make([]string, len(active))
		for i, id := range active {
			ids[i] = id.String()
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string][]string{"active": ids})
	})
	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, promhttp.Handler())
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("http server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	log.Info("shutdown complete")
	return nil
}

func newIntrospectCmd() *cobra.Command {
	var schemaName string

	introspectCmd := &cobra.Command{
		Use:   "introspect [table]",
		Short: "Describe a table's columns, indexes, and foreign keys",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}

			log := logger.NewLogger(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: "stdout"})

			pgConfig := &postgres.PostgresConfig{
				Host:     cfg.Database.Host,
				Port:     cfg.Database.Port,
				Database: cfg.Database.Database,
				User:     cfg.Database.Username,
				Password: cfg.Database.Password,
				SSLMode:  cfg.Database.SSLMode,
				MaxConns: 2,
				MinConns: 1,
			}

			pool := postgres.NewPostgresPool(pgConfig, log)
			ctx := context.Background()
			if err := pool.Connect(ctx); err != nil {
				return fmt.Errorf("connecting to database: %w", err)
			}
			defer pool.Close()

			introspector := schema.NewPostgresIntrospector(pool.Pool(), log)
			info, err := introspector.DescribeTable(ctx, schemaName, args[0])
			if err != nil {
				return fmt.Errorf("describing table: %w", err)
			}

			fmt.Printf("%s.%s (~%d rows)\n", info.Schema, info.Name, info.RowEstimate)
			for _, col := range info.Columns {
				marker := " "
				if col.IsPrimaryKey {
					marker = "*"
				}
				fmt.Printf("  %s %-24s %-16s nullable=%v\n", marker, col.Name, col.DataType, col.Nullable)
			}
			for _, idx := range info.Indexes {
				fmt.Printf("  index %s on (%v) unique=%v\n", idx.Name, idx.Columns, idx.Unique)
			}
			for _, fk := range info.ForeignKeys {
				fmt.Printf("  fk %s: %s -> %s.%s\n", fk.ConstraintName, fk.Column, fk.RefTable, fk.RefColumn)
			}

			return nil
		},
	}
	introspectCmd.Flags().StringVar(&schemaName, "schema", "public", "schema containing the table")

	return introspectCmd
}
