package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oliveiraaldo/finsplit/internal/config"
	"github.com/oliveiraaldo/finsplit/internal/db"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "finsplit",
		Short: "FinSplit receipt-intake service",
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server",
		Run: func(cmd *cobra.Command, args []string) {
			runServe()
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return db.Migrate(cfg.Postgres)
		},
	}

	rootCmd.AddCommand(serveCmd, migrateCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
