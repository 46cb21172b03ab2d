package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/mediavault-backend/internal/app"
	"github.com/yungbote/mediavault-backend/internal/data/db"
	httpMW "github.com/yungbote/mediavault-backend/internal/http/middleware"
	"github.com/yungbote/mediavault-backend/internal/platform/logger"
)

var configFile string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mediavault",
		Short:         "Media ingestion and asset service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "optional config file (yaml, toml or json); env vars still win")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  runServe,
	})
	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or update the asset catalog schema and exit",
		RunE:  runMigrate,
	})
	root.AddCommand(newTokenCmd())
	return root
}

func loadConfig() (app.Config, error) {
	v, err := app.NewViper(configFile)
	if err != nil {
		return app.Config{}, err
	}
	return app.LoadConfig(v)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	a.Start()
	return a.Run(ctx)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	pg, err := db.NewPostgresService(log, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("init postgres: %w", err)
	}
	defer pg.Close()
	if err := app.Migrate(pg.DB().WithContext(cmd.Context())); err != nil {
		return err
	}
	log.Info("Migration complete")
	return nil
}

func newTokenCmd() *cobra.Command {
	var (
		businessID string
		subject    string
		ttl        time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for a business (development only)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			id, err := uuid.Parse(businessID)
			if err != nil {
				return fmt.Errorf("invalid --business-id: %w", err)
			}
			tok, err := httpMW.SignToken(cfg.JWTSecretKey, id, subject, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}
	cmd.Flags().StringVar(&businessID, "business-id", "", "owning business uuid")
	cmd.Flags().StringVar(&subject, "subject", "cli", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("business-id")
	return cmd
}

