package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"go.klb.dev/imgclip/internal/logging"
)

// settings is what a command reads from imgclip.toml, IMGCLIP_* env vars
// and its flags, in increasing order of precedence. Keys are the flag names.
type settings struct {
	BaseURL   string `mapstructure:"base-url"`
	Selection string `mapstructure:"selection"`
	Display   string `mapstructure:"display"`
	JSON      bool   `mapstructure:"json"`

	Interactive bool   `mapstructure:"interactive"`
	LogFormat   string `mapstructure:"log-format"`
	LogLevel    string `mapstructure:"log-level"`
}

// configDirs is the imgclip.toml search path used when --config is unset.
func configDirs() []string {
	dirs := []string{"/etc/imgclip"}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", "imgclip"))
	}
	return dirs
}

// loadSettings layers the config file and environment under cmd's parsed
// flags. A config file that exists but does not parse is a usage error.
func loadSettings(cmd *cobra.Command) (settings, error) {
	v := viper.New()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("imgclip")
		v.SetConfigType("toml")
		for _, dir := range configDirs() {
			v.AddConfigPath(dir)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return settings{}, usageErrorf("config: %w", err)
		}
	}

	v.SetEnvPrefix("IMGCLIP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return settings{}, fmt.Errorf("binding flags: %w", err)
	}

	var s settings
	if err := v.Unmarshal(&s); err != nil {
		return settings{}, usageErrorf("config: %w", err)
	}
	return s, nil
}

// baseURL prefers the positional base URL over every other source.
func (s settings) baseURL(args []string) string {
	if len(args) == 2 {
		return args[1]
	}
	return s.BaseURL
}

// startLogging installs the global slog handler. A terminal on stderr
// counts as --interactive.
func (s settings) startLogging() {
	resolveLogging(s.Interactive || logging.IsTTY(os.Stderr), s.LogFormat, s.LogLevel)
}

func addLoggingFlags(f *pflag.FlagSet) {
	f.Bool("interactive", false, "force tinter logs + debug level")
	f.String("log-format", "auto", "log format: auto|text|json")
	f.String("log-level", "", "log level: debug|info|warn|error (default: info, debug when interactive)")
}

func addConfigFlag(f *pflag.FlagSet) {
	f.String("config", "", "path to config file (overrides auto-discovery)")
}
