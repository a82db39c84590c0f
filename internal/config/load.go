package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var defineFlagsOnce sync.Once

// RunOptions carries the per-invocation flags that are not configuration:
// what to compile, against which clock, and whether to execute the result.
type RunOptions struct {
	IntentPath  string
	Execute     bool
	Now         string
	ShowVersion bool
}

// Load loads configuration from multiple sources with the following precedence:
// 1. Command line flags
// 2. Environment variables
// 3. Config file
// 4. Default values
func Load() (*Config, *RunOptions, error) {
	v := viper.New()
	setDefaults(v)

	defineFlags()
	if !pflag.Parsed() {
		pflag.Parse()
	}

	cfgPath, _ := pflag.CommandLine.GetString("config")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.SetConfigName("semql")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/semql/")
		v.AddConfigPath("$HOME/.semql")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if cfgPath != "" {
			return nil, nil, fmt.Errorf("failed to read config file %q: %w", cfgPath, err)
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Canonical keys: dot + snake_case. Env vars: SEMQL_DATABASE_PATH.
	v.SetEnvPrefix("SEMQL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	bindChangedFlagsToViper(v)

	cfg := &Config{}
	if err := v.Unmarshal(cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	opts := &RunOptions{}
	opts.IntentPath, _ = pflag.CommandLine.GetString("intent")
	opts.Execute, _ = pflag.CommandLine.GetBool("execute")
	opts.Now, _ = pflag.CommandLine.GetString("now")
	opts.ShowVersion, _ = pflag.CommandLine.GetBool("version")

	return cfg, opts, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "semql.db")
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("tenant.name", "default")
	v.SetDefault("tenant.model_file", "semantic_model.yaml")
	v.SetDefault("tenant.snapshot_file", "")

	v.SetDefault("observability.service_name", "semql")
	v.SetDefault("observability.service_version", "dev")
	v.SetDefault("observability.environment", "development")
	v.SetDefault("observability.metrics_enabled", false)
	v.SetDefault("observability.tracing_enabled", false)
	v.SetDefault("observability.metrics_port", 9464)
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "text")
	v.SetDefault("observability.logging.exports_enabled", false)
	v.SetDefault("observability.otlp.endpoint", "")
	v.SetDefault("observability.otlp.insecure", false)
	v.SetDefault("observability.otlp.timeout", "10s")
}

func defineFlags() {
	defineFlagsOnce.Do(func() {
		pflag.String("config", "", "Path to config file")
		pflag.String("intent", "", "Path to intent JSON file ('-' for stdin)")
		pflag.Bool("execute", false, "Execute the compiled query and print rows")
		pflag.String("now", "", "Override the current date (YYYY-MM-DD) for date range resolution")
		pflag.Bool("version", false, "Print version and exit")

		pflag.String("db-path", "", "Path to the SQLite database file")
		pflag.String("model", "", "Path to the tenant semantic model file")
		pflag.String("snapshot", "", "Path to the schema snapshot artifact")
		pflag.String("tenant", "", "Tenant name")
		pflag.String("log-level", "", "Log level: debug, info, warn, error")
		pflag.String("log-format", "", "Log format: json, text")
	})
}

// bindChangedFlagsToViper binds only the flags the user actually set, so
// unset flags never shadow env vars or config file values.
func bindChangedFlagsToViper(v *viper.Viper) {
	bindings := map[string]string{
		"db-path":    "database.path",
		"model":      "tenant.model_file",
		"snapshot":   "tenant.snapshot_file",
		"tenant":     "tenant.name",
		"log-level":  "observability.logging.level",
		"log-format": "observability.logging.format",
	}
	pflag.CommandLine.Visit(func(f *pflag.Flag) {
		if key, ok := bindings[f.Name]; ok {
			v.Set(key, f.Value.String())
		}
	})
}
