package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	configName      = ".importlyrical"
	configType      = "yaml"
	envPrefix       = "IMPORTLYRICAL"
	envKeySeparator = "_"
)

// Load reads configuration from file, env vars and defaults. An explicit
// configPath must exist; otherwise .importlyrical.yaml is searched in the
// working directory and $HOME, and a missing file is not an error. A file
// that was read is validated against the embedded schema.
func Load(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	if used := viperCfg.ConfigFileUsed(); used != "" && readErr == nil {
		schemaErr := ValidateFile(used)
		if schemaErr != nil {
			return nil, schemaErr
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("libraries", []map[string]any{})
	viperCfg.SetDefault("exclude", []string{})

	viperCfg.SetDefault("build.entry_points", []string{})
	viperCfg.SetDefault("build.outdir", DefaultOutdir)
	viperCfg.SetDefault("build.format", DefaultFormat)
	viperCfg.SetDefault("build.platform", DefaultPlatform)
	viperCfg.SetDefault("build.target", DefaultTarget)
	viperCfg.SetDefault("build.external", []string{})
	viperCfg.SetDefault("build.bundle", DefaultBundle)
	viperCfg.SetDefault("build.minify", false)
	viperCfg.SetDefault("build.sourcemap", false)

	viperCfg.SetDefault("serve.host", DefaultServeHost)
	viperCfg.SetDefault("serve.port", DefaultServePort)
	viperCfg.SetDefault("serve.servedir", "")
	viperCfg.SetDefault("serve.metrics_addr", "")

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.json", false)

	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_headers", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", DefaultOTLPInsecure)
	viperCfg.SetDefault("telemetry.sample_ratio", 0.0)
}
