package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"github.com/vadimbarashkov/shortly/internal/config"
	"github.com/vadimbarashkov/shortly/internal/database/sqlite"
	"github.com/vadimbarashkov/shortly/internal/service"

	sqlitedb "github.com/vadimbarashkov/shortly/pkg/sqlite"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "shortly-cli",
	Short:         "Administer the shortly database from the command line",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// openService connects to the configured database and builds the same
// repository/service wiring the server uses. The caller closes the pool.
func openService(ctx context.Context) (*service.URLService, *config.Config, *sqlx.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	db, err := sqlitedb.New(ctx, cfg.SQLite.DSN())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	repo := sqlite.NewURLRepository(db)
	svc := service.NewURLService(
		repo,
		cfg.ShortCode.Length,
		service.WithMaxAttempts(cfg.ShortCode.MaxAttempts),
	)

	return svc, cfg, db, nil
}

func newCreateCmd() *cobra.Command {
	var rawURL string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a short URL for a long URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			svc, cfg, db, err := openService(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			url, err := svc.ShortenURL(ctx, rawURL)
			if err != nil {
				return fmt.Errorf("failed to create short url: %w", err)
			}

			fmt.Printf("Short code: %s\n", url.ShortCode)
			fmt.Printf("Short URL:  %s/%s\n", cfg.BaseURL, url.ShortCode)
			fmt.Printf("Original:   %s\n", url.OriginalURL)
			return nil
		},
	}

	cmd.Flags().StringVarP(&rawURL, "url", "u", "", "long URL to shorten (required)")
	_ = cmd.MarkFlagRequired("url")

	return cmd
}

func newStatsCmd() *cobra.Command {
	var shortCode string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show the stored record for a short code",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			svc, cfg, db, err := openService(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			url, err := svc.GetURLStats(ctx, shortCode)
			if err != nil {
				return fmt.Errorf("failed to get stats for '%s': %w", shortCode, err)
			}

			fmt.Printf("Short code: %s\n", url.ShortCode)
			fmt.Printf("Short URL:  %s/%s\n", cfg.BaseURL, url.ShortCode)
			fmt.Printf("Original:   %s\n", url.OriginalURL)
			fmt.Printf("Created at: %s\n", url.CreatedAt.Format("2006-01-02 15:04:05"))
			return nil
		},
	}

	cmd.Flags().StringVarP(&shortCode, "code", "c", "", "short code to look up (required)")
	_ = cmd.MarkFlagRequired("code")

	return cmd
}

func newMigrateCmd() *cobra.Command {
	var migrationsPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			if err := sqlitedb.RunMigrations(migrationsPath, cfg.SQLite.Path); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}

			fmt.Println("Migrations applied")
			return nil
		},
	}

	cmd.Flags().StringVar(&migrationsPath, "migrations", "file://migrations", "migrations source URL")

	return cmd
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("CONFIG_PATH"), "path to config file")
	rootCmd.AddCommand(newCreateCmd(), newStatsCmd(), newMigrateCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
