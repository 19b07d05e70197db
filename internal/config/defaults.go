package config

import (
	"codeberg.org/mutker/weatheragent/internal/collector"
	"codeberg.org/mutker/weatheragent/internal/fetcher"
	"codeberg.org/mutker/weatheragent/internal/quality"
	"codeberg.org/mutker/weatheragent/internal/ratecontrol"
	"codeberg.org/mutker/weatheragent/internal/report"
	"codeberg.org/mutker/weatheragent/internal/storage"
	"codeberg.org/mutker/weatheragent/internal/telemetry"
	"codeberg.org/mutker/weatheragent/internal/validator"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps command-line flags onto configuration keys.
var flagKeys = map[string]string{
	"log-level":           "log_level",
	"pid-file":            "pid_file",
	"city":                "cities",
	"api-key-env":         "api.key_env_var",
	"units":               "api.units",
	"initial-delay":       "rate.initial_delay",
	"min-delay":           "rate.min_delay",
	"max-delay":           "rate.max_delay",
	"jitter":              "rate.jitter",
	"target-observations": "collection.target_observations",
	"min-per-city":        "collection.min_per_city",
	"min-quality":         "collection.min_quality",
	"max-cycles":          "collection.max_cycles",
	"stop-mode":           "collection.mode",
	"pacing":              "collection.pacing",
	"storage":             "storage.enabled",
	"telemetry":           "telemetry.enabled",
	"output-dir":          "report.output_dir",
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("weatheragent", pflag.ContinueOnError)

	fs.String("config", "", "Path to configuration file")
	fs.String("env-file", ".env", "Path to .env file holding the API key")
	fs.Bool("version", false, "Print version and exit")
	fs.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	fs.String("pid-file", DefaultPIDFile, "PID file name")
	fs.StringArray("city", nil, "City to poll, e.g. \"Boston,MA,US\" (repeatable)")
	fs.String("api-key-env", DefaultKeyEnvVar, "Environment variable holding the API key")
	fs.String("units", "", "Provider units (metric, imperial, standard)")
	fs.Duration("initial-delay", 0, "Initial delay between requests")
	fs.Duration("min-delay", 0, "Minimum delay between requests")
	fs.Duration("max-delay", 0, "Maximum delay between requests")
	fs.Float64("jitter", 0, "Relative jitter applied to each wait")
	fs.Int("target-observations", 0, "Stop after this many accepted observations")
	fs.Int("min-per-city", 0, "Stop once every city has this many observations")
	fs.Float64("min-quality", 0, "Stop once the aggregate quality reaches this score")
	fs.Int("max-cycles", 0, "Hard cap on collection cycles")
	fs.String("stop-mode", "", "Combine stop conditions with any or all")
	fs.String("pacing", "", "Apply the delay per request or per cycle")
	fs.Bool("storage", false, "Persist observations to SQLite")
	fs.Bool("telemetry", false, "Record per-cycle telemetry to SQLite")
	fs.String("output-dir", "", "Directory reports are written to")

	return fs
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("pid_file", DefaultPIDFile)
	v.SetDefault("cities", DefaultCities)

	api := fetcher.DefaultConfig()
	v.SetDefault("api.key", "")
	v.SetDefault("api.key_env_var", DefaultKeyEnvVar)
	v.SetDefault("api.base_url", api.BaseURL)
	v.SetDefault("api.units", api.Units)
	v.SetDefault("api.timeout", api.Timeout)
	v.SetDefault("api.breaker_threshold", api.BreakerThreshold)
	v.SetDefault("api.breaker_interval", api.BreakerInterval)
	v.SetDefault("api.breaker_cooldown", api.BreakerCooldown)

	rate := ratecontrol.DefaultConfig()
	v.SetDefault("rate.initial_delay", rate.InitialDelay)
	v.SetDefault("rate.min_delay", rate.MinDelay)
	v.SetDefault("rate.max_delay", rate.MaxDelay)
	v.SetDefault("rate.increase_factor", rate.IncreaseFactor)
	v.SetDefault("rate.decrease_factor", rate.DecreaseFactor)
	v.SetDefault("rate.low_success_threshold", rate.LowSuccessThreshold)
	v.SetDefault("rate.high_success_threshold", rate.HighSuccessThreshold)
	v.SetDefault("rate.window_size", rate.WindowSize)
	v.SetDefault("rate.jitter", rate.Jitter)

	val := validator.DefaultConfig()
	v.SetDefault("validation.min_temperature", val.MinTemperature)
	v.SetDefault("validation.max_temperature", val.MaxTemperature)
	v.SetDefault("validation.min_humidity", val.MinHumidity)
	v.SetDefault("validation.max_humidity", val.MaxHumidity)

	q := quality.DefaultConfig()
	v.SetDefault("quality.anomaly_stddev", q.AnomalyStdDev)
	v.SetDefault("quality.min_anomaly_samples", q.MinAnomalySamples)
	v.SetDefault("quality.timeliness_tolerance", q.TimelinessTolerance)
	v.SetDefault("quality.max_temperature_swing", q.MaxTemperatureSwing)
	v.SetDefault("quality.max_humidity_swing", q.MaxHumiditySwing)
	v.SetDefault("quality.weights.completeness", q.Weights.Completeness)
	v.SetDefault("quality.weights.consistency", q.Weights.Consistency)
	v.SetDefault("quality.weights.accuracy", q.Weights.Accuracy)
	v.SetDefault("quality.weights.timeliness", q.Weights.Timeliness)
	v.SetDefault("quality.low_success_rate", q.LowSuccessRate)
	v.SetDefault("quality.moderate_success_rate", q.ModerateSuccessRate)
	v.SetDefault("quality.min_observations", q.MinObservations)

	col := collector.DefaultConfig()
	v.SetDefault("collection.target_observations", col.TargetObservations)
	v.SetDefault("collection.min_per_city", col.MinPerCity)
	v.SetDefault("collection.min_quality", col.MinQuality)
	v.SetDefault("collection.max_cycles", col.MaxCycles)
	v.SetDefault("collection.mode", string(col.Mode))
	v.SetDefault("collection.pacing", string(col.Pacing))

	st := storage.DefaultConfig()
	v.SetDefault("storage.enabled", st.Enabled)
	v.SetDefault("storage.db_path", st.DBPath)
	v.SetDefault("storage.backup_dir", st.BackupDir)
	v.SetDefault("storage.batch_size", st.BatchSize)
	v.SetDefault("storage.batch_timeout", st.BatchTimeout)

	tel := telemetry.DefaultConfig()
	v.SetDefault("telemetry.enabled", tel.Enabled)
	v.SetDefault("telemetry.db_path", tel.DBPath)

	rep := report.DefaultConfig()
	v.SetDefault("report.output_dir", rep.OutputDir)
	v.SetDefault("report.collector", rep.Collector)
}
