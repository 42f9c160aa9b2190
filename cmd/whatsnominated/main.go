package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/whatsnominated/backend/internal/app"
	"github.com/whatsnominated/backend/internal/config"
	"github.com/whatsnominated/backend/internal/db"
	"github.com/whatsnominated/backend/internal/importer"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	_ = godotenv.Load()

	var configPath string

	root := &cobra.Command{
		Use:           "whatsnominated",
		Short:         "Awards picks site backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "config file path")

	loadConfig := func() (*config.Config, error) {
		cfg, errLoad := config.Load(configPath)
		if errLoad != nil {
			return nil, errLoad
		}
		setupLogging(cfg)
		return cfg, nil
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, errLoad := loadConfig()
			if errLoad != nil {
				return errLoad
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return app.RunServer(ctx, cfg)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, errLoad := loadConfig()
			if errLoad != nil {
				return errLoad
			}
			return app.Migrate(cmd.Context(), cfg)
		},
	}

	var adminEmail, adminPassword string
	createAdminCmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create or update an admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, errLoad := loadConfig()
			if errLoad != nil {
				return errLoad
			}
			if adminEmail == "" || adminPassword == "" {
				return fmt.Errorf("both --email and --password are required")
			}
			return app.ProvisionAdmin(cmd.Context(), cfg, adminEmail, adminPassword)
		},
	}
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "admin email address")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "admin password (min 10 characters)")

	var importYear int
	var importPrune bool
	importCmd := &cobra.Command{
		Use:   "import-year <payload.json>",
		Short: "Import or update one year's nominees from a JSON payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, errLoad := loadConfig()
			if errLoad != nil {
				return errLoad
			}
			conn, errOpen := db.Open(cfg.Database.DSN)
			if errOpen != nil {
				return errOpen
			}
			if errMigrate := db.Migrate(conn); errMigrate != nil {
				return errMigrate
			}
			result, errImport := importer.New(conn).ImportFile(cmd.Context(), args[0], importYear, importPrune)
			if errImport != nil {
				return errImport
			}
			log.Infof("import %s: year=%d %v", result.Status, result.Year, result.Counts)
			return nil
		},
	}
	importCmd.Flags().IntVar(&importYear, "year", 0, "year to import from a multi-year bundle")
	importCmd.Flags().BoolVar(&importPrune, "prune", false, "remove categories and film links absent from the payload")

	root.AddCommand(serveCmd, migrateCmd, createAdminCmd, importCmd)

	if errExec := root.Execute(); errExec != nil {
		log.WithError(errExec).Fatal("command failed")
	}
}

// setupLogging points logrus at the configured file with rotation, or
// stderr when no file is set.
func setupLogging(cfg *config.Config) {
	level, errParse := log.ParseLevel(cfg.Logging.Level)
	if errParse != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	if cfg.Logging.File == "" {
		return
	}
	log.SetOutput(&lumberjack.Logger{
		Filename:   cfg.Logging.File,
		MaxSize:    cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAgeDays,
	})
}
