// Config loading for the doubletake CLI. A config file supplies
// defaults for flags; flags passed on the command line win.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configDirEnv   = "DOUBLETAKE_CONFIG_DIR"
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
)

// defaultConfigYAML is written to config.yaml on first run.
const defaultConfigYAML = `# doubletake CLI configuration
# Values here become flag defaults; command-line flags override them.

# Output format (json|text)
# format: text

# Default locale for synthesized values
# locale: en-US

# Seed for reproducible synthesis (0 = random)
# seed: 0

# sqlite cache path for cross-invocation consistency
# cache:

# YAML file of extra field-name heuristics
# patterns:
`

// configDir resolves the config directory: $DOUBLETAKE_CONFIG_DIR, or
// ~/.doubletake.
func configDir() string {
	if dir := os.Getenv(configDirEnv); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".doubletake"
	}
	return filepath.Join(home, ".doubletake")
}

// loadConfig reads config.yaml from the config directory using Viper,
// creating the directory and a default file on first run. A missing
// config file is not an error.
func loadConfig(dir string) (*viper.Viper, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(dir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(dir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// ensureDefaultConfigFile creates a commented-out default config.yaml
// if none exists.
func ensureDefaultConfigFile(dir string) error {
	path := filepath.Join(dir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

// applyConfigDefaults rewrites flag defaults from config values before
// parsing, so explicit flags still take precedence.
func applyConfigDefaults(cmd *cobra.Command, cfg *viper.Viper) {
	if cfg.IsSet("format") {
		setFlagDefault(cmd.PersistentFlags().Lookup("format"), cfg.GetString("format"))
	}

	scrub, _, err := cmd.Find([]string{"scrub"})
	if err != nil {
		return
	}
	for key, flag := range map[string]string{
		"locale":   "locale",
		"seed":     "seed",
		"cache":    "cache",
		"patterns": "patterns",
	} {
		if cfg.IsSet(key) {
			setFlagDefault(scrub.Flags().Lookup(flag), cfg.GetString(key))
		}
	}
}

func setFlagDefault(f *pflag.Flag, value string) {
	if f == nil {
		return
	}
	f.DefValue = value
	_ = f.Value.Set(value)
}
