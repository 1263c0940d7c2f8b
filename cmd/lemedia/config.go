package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leleasley/lemedia/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
}

var configTestCmd = &cobra.Command{
	Use:   "test [path]",
	Short: "Validate configuration file",
	Long:  "Validates config syntax, required fields, and environment variable substitution without starting the server.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigTest,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configTestCmd)
}

func runConfigTest(cmd *cobra.Command, args []string) error {
	var path string
	if len(args) > 0 {
		path = args[0]
	} else {
		found, err := config.Discover()
		if err != nil {
			return err
		}
		path = found
	}

	fmt.Printf("Validating %s...\n\n", path)

	cfg, err := config.Load(path)
	if err != nil {
		var configErr *config.ConfigError
		if errors.As(err, &configErr) {
			printConfigErrors(configErr)
			return fmt.Errorf("configuration invalid")
		}
		return fmt.Errorf("failed to load config: %w", err)
	}

	printConfigSummary(cfg)
	fmt.Println("\nConfiguration valid!")
	return nil
}

func printConfigErrors(e *config.ConfigError) {
	if len(e.Missing) > 0 {
		fmt.Println("Missing environment variables:")
		for _, m := range e.Missing {
			fmt.Printf("  - %s\n", m)
		}
		fmt.Println()
	}

	if len(e.Errors) > 0 {
		fmt.Println("Validation errors:")
		for _, err := range e.Errors {
			fmt.Printf("  - %s\n", err)
		}
		fmt.Println()
	}
}

func printConfigSummary(cfg *config.Config) {
	fmt.Println("Configuration Summary:")
	fmt.Printf("  Server:     %s:%d (log: %s)\n", cfg.Server.Host, cfg.Server.Port, cfg.Server.LogLevel)
	fmt.Printf("  Database:   %s\n", cfg.Database.Path)

	integrations := []string{}
	if cfg.MediaServer != nil {
		integrations = append(integrations, "media server")
	}
	if cfg.Catalog != nil {
		integrations = append(integrations, "catalog")
	}
	if cfg.SeriesAutomation != nil {
		integrations = append(integrations, "series automation")
	}
	if cfg.MovieAutomation != nil {
		integrations = append(integrations, "movie automation")
	}
	if len(integrations) > 0 {
		fmt.Printf("  Integrations: %s\n", strings.Join(integrations, ", "))
	} else {
		fmt.Println("  Integrations: none")
	}

	fmt.Printf("  Quota:      %s\n", quotaSummary(cfg.Quota))

	sweep := "off"
	if cfg.Sweep.Enabled {
		sweep = fmt.Sprintf("every %dm", cfg.Sweep.IntervalMinutes)
	}
	fmt.Printf("  Sweep:      %s\n", sweep)
}

func quotaSummary(q config.QuotaConfig) string {
	part := func(limit, days int) string {
		if limit <= 0 {
			return "unlimited"
		}
		return fmt.Sprintf("%d/%dd", limit, days)
	}
	return fmt.Sprintf("movies %s, tv %s", part(q.MovieLimit, q.MovieDays), part(q.TVLimit, q.TVDays))
}
