// minectl is the operator CLI: migrations, config validation and health
// probes against a running instance.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/yieldland/production-core/internal/config"
	"github.com/yieldland/production-core/internal/database"
	"github.com/yieldland/production-core/internal/land"
	"github.com/yieldland/production-core/internal/synthesis"
)

func main() {
	root := &cobra.Command{
		Use:           "minectl",
		Short:         "Operational tooling for the production core",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(migrateCmd(), validateCmd(), healthCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()
			if err := database.Migrate(ctx, cfg.GetDBConnString()); err != nil {
				return err
			}
			fmt.Println("Migrations applied")
			return nil
		},
	}
}

func validateCmd() *cobra.Command {
	var recipePath, landPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate recipe and land catalog files",
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := synthesis.LoadTable(recipePath)
			if err != nil {
				return fmt.Errorf("recipes: %w", err)
			}
			catalog, err := land.Load(landPath)
			if err != nil {
				return fmt.Errorf("land catalog: %w", err)
			}
			fmt.Printf("OK: %d recipes, %d land kinds\n", len(table.Recipes()), len(catalog.Kinds()))
			return nil
		},
	}

	cmd.Flags().StringVar(&recipePath, "recipes", config.ConfigPathRecipes, "path to the synthesis recipe file")
	cmd.Flags().StringVar(&landPath, "lands", config.ConfigPathLands, "path to the land catalog file")
	return cmd
}

func healthCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Probe a running instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := &http.Client{Timeout: 5 * time.Second}
			for _, path := range []string{"/healthz", "/readyz"} {
				resp, err := client.Get(addr + path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				resp.Body.Close()
				fmt.Printf("%s: %s\n", path, resp.Status)
				if resp.StatusCode != http.StatusOK {
					return fmt.Errorf("%s returned %s", path, resp.Status)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "http://localhost:8080", "base URL of the instance")
	return cmd
}
