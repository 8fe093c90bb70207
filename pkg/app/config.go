package app

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// loadConfig layers configuration onto the command's flags. Precedence from
// highest to lowest: explicit flags, environment variables, the config file,
// and option defaults.
func loadConfig(cmd *cobra.Command, name string, opts CliOptions) error {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName(name)
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(filepath.Join(os.Getenv("HOME"), "."+name))
		viper.AddConfigPath("/etc/" + name)
	}

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine; every option carries defaults.
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	expandEnv()

	viper.SetEnvPrefix(strings.ToUpper(strings.ReplaceAll(name, "-", "_")))
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if opts == nil {
		return nil
	}

	// Unmarshal overwrites the flag-bound fields, so remember which flags
	// the user set and re-apply them afterwards.
	changed := map[string]string{}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		changed[f.Name] = f.Value.String()
	})

	if err := viper.Unmarshal(opts); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	for flagName, value := range changed {
		if err := cmd.Flags().Set(flagName, value); err != nil {
			return fmt.Errorf("failed to re-apply flag %s: %w", flagName, err)
		}
	}
	return nil
}

var envRef = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expandEnv resolves ${VAR} and $VAR references in config values so files
// can point at secrets without embedding them.
func expandEnv() {
	for _, key := range viper.AllKeys() {
		raw, ok := viper.Get(key).(string)
		if !ok {
			continue
		}
		expanded := envRef.ReplaceAllStringFunc(raw, func(ref string) string {
			name := strings.TrimPrefix(ref, "$")
			if strings.HasPrefix(name, "{") {
				name = strings.Trim(name, "{}")
			}
			if value := os.Getenv(name); value != "" {
				return value
			}
			// An unset variable keeps the literal reference.
			return ref
		})
		if expanded != raw {
			viper.Set(key, expanded)
		}
	}
}
