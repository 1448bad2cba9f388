package main

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ukydev/oilchange-tracker/internal/backup"
	"github.com/ukydev/oilchange-tracker/internal/config"
	"github.com/ukydev/oilchange-tracker/internal/db"
	"github.com/ukydev/oilchange-tracker/internal/records"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tracker",
		Short:         "Oil change and warranty tracker",
		Long:          `tracker keeps the oil change schedule and service warranties of a repair shop and serves them as a small web application.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringSlice("env-file", []string{".env"}, "dotenv files to load before reading the environment")
	root.PersistentFlags().Bool("ephemeral", false, "keep records in memory only")

	root.AddCommand(serveCommand())
	root.AddCommand(proxyCommand())
	root.AddCommand(listCommand())
	root.AddCommand(exportCommand())
	root.AddCommand(importCommand())
	root.AddCommand(infoCommand())
	root.AddCommand(clearCommand())
	return root
}

// loadConfig reads the configuration and applies the persistent flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	files, err := cmd.Flags().GetStringSlice("env-file")
	if err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return config.Config{}, err
	}
	if ephemeral, _ := cmd.Flags().GetBool("ephemeral"); ephemeral {
		cfg.Storage.Driver = db.DriverMemory
	}
	if err := cfg.SetupLogging(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// app is the record layer shared by every command.
type app struct {
	cfg         config.Config
	store       db.KeyValueStore
	maintenance *records.MaintenanceManager
	warranties  *records.WarrantyManager
	backup      *backup.Service
}

func openApp(ctx context.Context, cfg config.Config) (*app, error) {
	store, err := db.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	clock := cfg.Clock()
	m := records.NewMaintenanceManager(ctx, store,
		records.WithInterval(cfg.IntervalDays),
		records.WithMaintenanceClock(clock))
	w := records.NewWarrantyManager(ctx, store, clock)

	log.WithFields(log.Fields{
		"driver":      cfg.Storage.Driver,
		"oil_changes": m.Count(),
		"warranties":  w.Count(),
	}).Debug("Records loaded")

	return &app{
		cfg:         cfg,
		store:       store,
		maintenance: m,
		warranties:  w,
		backup:      backup.New(m, w, clock),
	}, nil
}

func (a *app) Close(ctx context.Context) {
	if err := a.store.Close(ctx); err != nil {
		log.WithError(err).Warn("Failed to close storage")
	}
}

// withApp opens the record layer for the duration of fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())
	return fn(ctx, a)
}
