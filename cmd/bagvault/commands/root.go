package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/studio1767/bagvault/internal/config"
	"github.com/studio1767/bagvault/internal/vault"
)

// App holds the initialised services shared by the subcommands.
type App struct {
	Cfg   *config.Config
	Store *vault.Store
	Vault *vault.Service
}

var (
	cfgFile string
	verbose bool

	BV *App
)

var rootCmd = &cobra.Command{
	Use:   "bagvault",
	Short: "bagvault: archival packaging for project files",
	Long: `bagvault packages project files into BagIt bags and tracks them
in a local vault: archive sources, build bags, validate them, and
quarantine or export what you no longer need online.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelInfo
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})))

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		if err := os.MkdirAll(cfg.VaultRoot, 0755); err != nil {
			return fmt.Errorf("failed to create vault root: %w", err)
		}

		store, err := vault.OpenStore(cfg.DatabasePath)
		if err != nil {
			return err
		}

		svc, err := vault.NewService(store, cfg.VaultRoot, vault.Tags{
			Organization: cfg.Organization,
			ContactName:  cfg.ContactName,
			ContactEmail: cfg.ContactEmail,
		})
		if err != nil {
			return err
		}

		BV = &App{
			Cfg:   cfg,
			Store: store,
			Vault: svc,
		}
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ., .bagvault, ~/.bagvault)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose reporting")
}
