package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"herbtrace/internal/app"
	"herbtrace/internal/config"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// newApp reads the config and creates an HTApp. The caller must defer a.Close().
// operation names the CLI command being run (e.g. "harvest", "scan").
func newApp(operation string, args ...string) (*app.HTApp, error) {
	return newAppWithLog(nil, operation, args...)
}

// newAppWithLog is newApp with log lines also copied to w.
func newAppWithLog(w io.Writer, operation string, args ...string) (*app.HTApp, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewHTApp(cfg, app.Options{LogWriter: w}, operation, args...)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

var rootCmd = &cobra.Command{
	Use:          "herbtrace",
	Short:        "Traceability ledger for medicinal herb harvests",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration, database and archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		ledgerID := uuid.New().String()
		cfg := config.NewConfig(ledgerID, defaults["base_dir"])

		if err := app.Initialize(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Ledger ID: %s\n", ledgerID)
		fmt.Printf("Base Dir:  %s\n", defaults["base_dir"])
		fmt.Println("Run 'herbtrace archive setup-keys' before the first harvest to enable sealed snapshots.")
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Ledger ID:     %s\n", cfg.LedgerID)
		fmt.Printf("Base Dir:      %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:       %s\n", cfg.LogDir)
		fmt.Printf("Log Level:     %s\n", cfg.LogLevel)
		fmt.Printf("Database:      %s %s\n", cfg.Database.Type, cfg.Database.DataDir)
		for _, a := range cfg.Archives {
			fmt.Printf("Archive:       %s (%s)\n", a.Name, a.Type)
		}
		fmt.Printf("Encryption:    %s\n", cfg.Encryption.Type)
		rules := cfg.Compliance.RulesPath
		if rules == "" {
			rules = "built-in NMPB rules"
		}
		fmt.Printf("Rules:         %s\n", rules)
		fmt.Printf("Scan Bonus:    %d (once per serial: %t)\n", cfg.Rewards.BonusAmount, cfg.Rewards.OncePerSerial)
		fmt.Printf("Labels/Batch:  %d\n", cfg.Labels.UnitsPerBatch)
		fmt.Printf("Listen:        %s\n", cfg.Server.Listen)
		return nil
	},
}

// db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the ledger database",
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := app.MigrateDatabase(cfg); err != nil {
			return err
		}
		fmt.Println("Database is up to date.")
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// db subcommands
	dbCmd.AddCommand(dbMigrateCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(dbCmd)
}
