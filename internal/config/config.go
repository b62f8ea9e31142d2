package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config carries the application settings: where the vault lives and
// the default descriptive tags stamped into new bags.
type Config struct {
	VaultRoot    string
	DatabasePath string

	Organization string
	ContactName  string
	ContactEmail string
}

// Load reads the configuration from an explicit file, or searches the
// usual locations, with BAGVAULT_* environment variables overriding
// file values. A missing config file is fine; the defaults stand.
func Load(cfgFile string) (*Config, error) {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}

		viper.AddConfigPath(".")
		viper.AddConfigPath(".bagvault")
		viper.AddConfigPath(filepath.Join(home, ".bagvault"))

		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("BAGVAULT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := Config{
		VaultRoot:    viper.GetString("vault.root"),
		DatabasePath: viper.GetString("vault.database"),
		Organization: viper.GetString("tags.organization"),
		ContactName:  viper.GetString("tags.contact_name"),
		ContactEmail: viper.GetString("tags.contact_email"),
	}

	// the database lives inside the vault unless configured elsewhere
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = filepath.Join(cfg.VaultRoot, "vault.db")
	}

	return &cfg, nil
}

func setDefaults() {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	viper.SetDefault("vault.root", filepath.Join(home, ".bagvault", "vault"))
}
