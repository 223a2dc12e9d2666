// Package main provides the market data synchronization daemon.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/graphtrader/internal/config"
	"github.com/yourusername/graphtrader/internal/database"
	"github.com/yourusername/graphtrader/internal/datasource"
	"github.com/yourusername/graphtrader/internal/health"
	"github.com/yourusername/graphtrader/internal/logger"
	"github.com/yourusername/graphtrader/internal/metrics"
	"github.com/yourusername/graphtrader/internal/repository"
	"github.com/yourusername/graphtrader/internal/scheduler"
	"github.com/yourusername/graphtrader/internal/service"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
)

var (
	configFile string
	appLog     *logrus.Logger
	cfg        *config.Config
	db         *database.DB
	ch         *database.ClickHouseDB
	repos      *repository.Repositories
	syncSvc    *service.SyncService
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
}

var rootCmd = &cobra.Command{
	Use:   "datasync",
	Short: "Synchronize market bars into the store",
	Long:  `Fetches OHLCV bars from the configured provider, validates them and stores them in PostgreSQL (and optionally the ClickHouse archive).`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		return setupDependencies(cmd.Context())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		teardown()
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one synchronization pass and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Minute)
		defer cancel()

		summary, err := syncSvc.SyncAll(ctx)
		if err != nil {
			return err
		}
		fmt.Println(summary.String())
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduled sync daemon with live streaming",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		metrics.InitRegistry()

		healthSrv := health.NewServer(health.Config{
			ServiceName: "graphtrader-datasync",
			Version:     Version,
			Commit:      GitCommit,
			Port:        fmt.Sprintf("%d", cfg.Metrics.Port),
			Logger:      appLog,
			DB:          db,
			Archive:     archivePinger(),
			Metrics:     metrics.Handler(),
		})
		if err := healthSrv.Start(ctx); err != nil {
			return err
		}

		sched := scheduler.NewScheduler(syncSvc, appLog)
		if err := sched.ScheduleSync(cfg.DataSync.SyncSchedule); err != nil {
			return err
		}
		if err := sched.Start(); err != nil {
			return err
		}
		defer sched.Stop()

		healthSrv.SetReady(true)

		if cfg.Features.LiveSyncEnabled {
			factory := datasource.NewFactory(cfg.DataSync, appLog)
			go func() {
				if err := syncSvc.RunLive(ctx, factory.NewStreamClient()); err != nil && ctx.Err() == nil {
					appLog.WithError(err).Error("Live stream terminated")
				}
			}()
		}

		appLog.WithField("schedule", cfg.DataSync.SyncSchedule).Info("Sync daemon running")
		<-ctx.Done()
		appLog.Info("Shutting down")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stored bar counts per symbol",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		for _, symbol := range cfg.DataSync.Symbols {
			count, err := repos.Bars.Count(ctx, symbol, cfg.DataSync.Timeframe)
			if err != nil {
				return err
			}
			latest, err := repos.Bars.GetLatestTime(ctx, symbol, cfg.DataSync.Timeframe)
			latestStr := "never"
			if err == nil {
				latestStr = latest.Format(time.RFC3339)
			}
			fmt.Printf("%-12s %8d bars, latest %s\n", symbol, count, latestStr)
		}
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func loadConfig() error {
	var err error
	cfg, err = config.LoadWithDefaults(configFile)
	if err != nil {
		return err
	}
	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			return fmt.Errorf("AWS_REGION and AWS_SECRET_NAME must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(cfg, region, secretName); err != nil {
			return err
		}
	}
	return config.Validate(cfg)
}

func setupDependencies(ctx context.Context) error {
	appLog = logger.NewLogger(cfg.App.LogLevel)

	initCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	var err error
	db, err = database.Initialize(initCtx, cfg, appLog)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Features.BarArchiveEnabled && cfg.ClickHouse.Addr != "" {
		ch, err = database.NewClickHouseDB(initCtx, &cfg.ClickHouse)
		if err != nil {
			return fmt.Errorf("failed to connect to ClickHouse: %w", err)
		}
	}

	repos, err = repository.NewRepositories(db, ch)
	if err != nil {
		return fmt.Errorf("failed to initialize repositories: %w", err)
	}

	factory := datasource.NewFactory(cfg.DataSync, appLog)
	source, err := factory.Create(datasource.RESTSourceType)
	if err != nil {
		return fmt.Errorf("failed to create data source: %w", err)
	}

	syncSvc = service.NewSyncService(source, repos.Bars, repos.Archive, cfg.DataSync, appLog)
	return nil
}

func archivePinger() health.Pinger {
	if ch == nil {
		return nil
	}
	return ch
}

func teardown() {
	if db != nil {
		db.Close()
	}
	if ch != nil {
		_ = ch.Close()
	}
}
