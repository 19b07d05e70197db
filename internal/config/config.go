package config

import (
	"os"
	"strings"

	"codeberg.org/mutker/weatheragent/internal/collector"
	"codeberg.org/mutker/weatheragent/internal/errors"
	"codeberg.org/mutker/weatheragent/internal/fetcher"
	"codeberg.org/mutker/weatheragent/internal/logger"
	"codeberg.org/mutker/weatheragent/internal/quality"
	"codeberg.org/mutker/weatheragent/internal/ratecontrol"
	"codeberg.org/mutker/weatheragent/internal/report"
	"codeberg.org/mutker/weatheragent/internal/storage"
	"codeberg.org/mutker/weatheragent/internal/telemetry"
	"codeberg.org/mutker/weatheragent/internal/validator"
	"codeberg.org/mutker/weatheragent/internal/weather"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	LogLevel string   `mapstructure:"log_level"`
	PIDFile  string   `mapstructure:"pid_file"`
	Cities   []string `mapstructure:"-"`

	API        API                `mapstructure:"api"`
	Rate       ratecontrol.Config `mapstructure:"rate"`
	Validation validator.Config   `mapstructure:"validation"`
	Quality    quality.Config     `mapstructure:"quality"`
	Collection collector.Config   `mapstructure:"collection"`
	Storage    storage.Config     `mapstructure:"storage"`
	Telemetry  telemetry.Config   `mapstructure:"telemetry"`
	Report     report.Config      `mapstructure:"report"`

	// ShowVersion is set by --version and skips validation.
	ShowVersion bool `mapstructure:"-"`

	credential string
}

// API holds the provider endpoint and credential lookup.
type API struct {
	Key            string `mapstructure:"key"`
	KeyEnvVar      string `mapstructure:"key_env_var"`
	fetcher.Config `mapstructure:",squash"`
}

// Load reads configuration from the config file, environment and os.Args.
func Load(opts ...Option) (*Config, error) {
	return LoadArgs(os.Args[1:], opts...)
}

// LoadArgs is Load with an explicit argument list.
func LoadArgs(args []string, opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := options{envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}

	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	// A missing .env file is normal; the environment may already carry the key.
	if envFile, _ := fs.GetString("env-file"); envFile != "" {
		_ = godotenv.Load(envFile)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := readConfigFile(v, fs, o); err != nil {
		return nil, err
	}

	var visitErr error
	fs.Visit(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return
		}

		if f.Value.Type() == "stringArray" {
			values, err := fs.GetStringArray(f.Name)
			if err != nil {
				visitErr = err
				return
			}
			v.Set(key, values)

			return
		}

		v.Set(key, f.Value.String())
	})
	if visitErr != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, visitErr)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err).
			WithMessage("Failed to decode configuration")
	}

	cfg.Cities = cities(v.Get("cities"))
	cfg.ShowVersion, _ = fs.GetBool("version")

	if cfg.ShowVersion {
		return cfg, nil
	}

	cfg.credential = resolveCredential(cfg.API)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func readConfigFile(v *viper.Viper, fs *pflag.FlagSet, o options) error {
	path := o.configPath
	if p, _ := fs.GetString("config"); p != "" {
		path = p
	}
	if path == "" {
		path = os.Getenv(o.envPrefix + "_CONFIG")
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("toml")
		for _, dir := range DefaultConfigPaths {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}

		return errors.New().Wrap(errors.ErrReadConfig, err).
			WithMessage("Failed to read config file")
	}

	return nil
}

func resolveCredential(api API) string {
	if api.Key != "" {
		return api.Key
	}
	if api.KeyEnvVar == "" {
		return ""
	}

	return strings.TrimSpace(os.Getenv(api.KeyEnvVar))
}

// cities accepts a TOML array, a flag array, or a ';'-separated env value.
// City identifiers contain commas, so ',' cannot be the separator.
func cities(raw any) []string {
	var list []string

	switch val := raw.(type) {
	case string:
		list = strings.Split(val, ";")
	case []string:
		list = val
	case []any:
		for _, item := range val {
			if s, ok := item.(string); ok {
				list = append(list, s)
			}
		}
	}

	out := make([]string, 0, len(list))
	for _, c := range list {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}

	return out
}

// Credential returns the resolved API key.
func (c *Config) Credential() string {
	return c.credential
}

// Targets converts the configured city list into fetch targets.
func (c *Config) Targets() []weather.CityTarget {
	return weather.ParseTargets(c.Cities)
}

func (c *Config) Validate() error {
	errFactory := errors.New()

	if !LogLevel(strings.ToLower(c.LogLevel)).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	if len(c.Cities) == 0 {
		return errFactory.Wrap(errors.ErrConfiguration, errFactory.New(errors.ErrNoCities))
	}

	if c.credential == "" {
		return errFactory.Wrap(errors.ErrConfiguration, errFactory.New(errors.ErrMissingAPIKey)).
			WithMessage("Missing API credential (set " + c.API.KeyEnvVar + " or api.key)")
	}

	validators := []func() error{
		c.API.Config.Validate,
		c.Rate.Validate,
		c.Validation.Validate,
		c.Quality.Validate,
		c.Collection.Validate,
		c.Storage.Validate,
		c.Telemetry.Validate,
		c.Report.Validate,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return errFactory.Wrap(errors.ErrConfiguration, err)
		}
	}

	return nil
}

// Log writes the effective configuration at debug level.
func (c *Config) Log(log logger.Logger) {
	log.Debug().
		Strs("cities", c.Cities).
		Str("base_url", c.API.BaseURL).
		Str("units", c.API.Units).
		Dur("initial_delay", c.Rate.InitialDelay).
		Dur("min_delay", c.Rate.MinDelay).
		Dur("max_delay", c.Rate.MaxDelay).
		Int("target_observations", c.Collection.TargetObservations).
		Int("max_cycles", c.Collection.MaxCycles).
		Str("stop_mode", string(c.Collection.Mode)).
		Bool("storage", c.Storage.Enabled).
		Bool("telemetry", c.Telemetry.Enabled).
		Str("output_dir", c.Report.OutputDir).
		Msg("Configuration loaded")
}
