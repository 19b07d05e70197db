package config_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/weatheragent/internal/collector"
	"codeberg.org/mutker/weatheragent/internal/config"
	"codeberg.org/mutker/weatheragent/internal/errors"
	"codeberg.org/mutker/weatheragent/internal/logger"
	"codeberg.org/mutker/weatheragent/internal/weather"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "weatheragent.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad(t *testing.T) {
	configPath := writeConfig(t, `
log_level = "debug"
cities = ["Boston,MA,US", "Albany,NY,US"]

[api]
key_env_var = "TEST_WEATHER_KEY"
units = "imperial"

[rate]
initial_delay = "3s"
max_delay = "30s"
jitter = 0.2

[collection]
target_observations = 20
max_cycles = 4
mode = "all"

[storage]
enabled = true
db_path = "/path/to/observations.db"
`)

	t.Setenv("WEATHERAGENT_CONFIG", configPath)
	t.Setenv("TEST_WEATHER_KEY", "secret")

	cfg, err := config.LoadArgs(nil)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"Boston,MA,US", "Albany,NY,US"}, cfg.Cities)
	assert.Equal(t, "secret", cfg.Credential())
	assert.Equal(t, "imperial", cfg.API.Units)
	assert.Equal(t, 3*time.Second, cfg.Rate.InitialDelay)
	assert.Equal(t, 30*time.Second, cfg.Rate.MaxDelay)
	assert.InDelta(t, 0.2, cfg.Rate.Jitter, 1e-9)
	assert.Equal(t, 20, cfg.Collection.TargetObservations)
	assert.Equal(t, 4, cfg.Collection.MaxCycles)
	assert.Equal(t, collector.StopAll, cfg.Collection.Mode)
	assert.True(t, cfg.Storage.Enabled)
	assert.Equal(t, "/path/to/observations.db", cfg.Storage.DBPath)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("WEATHERAGENT_CONFIG", "")
	t.Setenv("WEATHER_API_KEY", "secret")

	cfg, err := config.LoadArgs(nil)
	require.NoError(t, err, "Failed to load config")

	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, config.DefaultCities, cfg.Cities)
	assert.Equal(t, config.DefaultKeyEnvVar, cfg.API.KeyEnvVar)
	assert.Equal(t, "metric", cfg.API.Units)
	assert.Equal(t, 2*time.Second, cfg.Rate.InitialDelay)
	assert.Equal(t, 50, cfg.Collection.TargetObservations)
	assert.Equal(t, 10, cfg.Collection.MaxCycles)
	assert.Equal(t, collector.StopAny, cfg.Collection.Mode)
	assert.False(t, cfg.Storage.Enabled)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.InDelta(t, 0.25, cfg.Quality.Weights.Accuracy, 1e-9)
}

func TestLoadConfigFileInvalidFormat(t *testing.T) {
	configPath := writeConfig(t, `
This is not a valid TOML file
`)
	t.Setenv("WEATHERAGENT_CONFIG", configPath)
	t.Setenv("WEATHER_API_KEY", "secret")

	_, err := config.LoadArgs(nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrReadConfig))
	assert.Contains(t, err.Error(), "Failed to read config file")
}

func TestLoadMissingConfigFile(t *testing.T) {
	t.Setenv("WEATHER_API_KEY", "secret")

	_, err := config.LoadArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.toml")})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrReadConfig))
}

func TestInvalidLogLevel(t *testing.T) {
	configPath := writeConfig(t, `
log_level = "invalid"
`)
	t.Setenv("WEATHERAGENT_CONFIG", configPath)
	t.Setenv("WEATHER_API_KEY", "secret")

	_, err := config.LoadArgs(nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrInvalidLogLevel, errors.CodeOf(err))
}

func TestMissingCredential(t *testing.T) {
	t.Setenv("WEATHERAGENT_CONFIG", "")
	t.Setenv("WEATHER_API_KEY", "")

	_, err := config.LoadArgs([]string{"--env-file", filepath.Join(t.TempDir(), ".env")})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrConfiguration))
	assert.True(t, errors.HasCode(err, errors.ErrMissingAPIKey))
}

func TestCredentialFromEnvFile(t *testing.T) {
	t.Setenv("WEATHERAGENT_CONFIG", "")
	t.Setenv("DOTENV_WEATHER_KEY", "")
	require.NoError(t, os.Unsetenv("DOTENV_WEATHER_KEY"))

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("DOTENV_WEATHER_KEY=from-dotenv\n"), 0o600))

	cfg, err := config.LoadArgs([]string{
		"--env-file", envFile,
		"--api-key-env", "DOTENV_WEATHER_KEY",
	})
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Credential())
}

func TestEmptyCityList(t *testing.T) {
	t.Setenv("WEATHERAGENT_CONFIG", writeConfig(t, `cities = []`))
	t.Setenv("WEATHER_API_KEY", "secret")

	_, err := config.LoadArgs(nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrConfiguration))
	assert.True(t, errors.HasCode(err, errors.ErrNoCities))
}

func TestCitiesFromEnvironment(t *testing.T) {
	t.Setenv("WEATHERAGENT_CONFIG", "")
	t.Setenv("WEATHER_API_KEY", "secret")
	t.Setenv("WEATHERAGENT_CITIES", "Boston,MA,US; New York,NY,US")

	cfg, err := config.LoadArgs(nil)
	require.NoError(t, err)
	assert.Equal(t, []weather.CityTarget{"Boston,MA,US", "New York,NY,US"}, cfg.Targets())
}

func TestFlagsOverrideFile(t *testing.T) {
	t.Setenv("WEATHERAGENT_CONFIG", writeConfig(t, `
[collection]
max_cycles = 4
`))
	t.Setenv("WEATHER_API_KEY", "secret")

	cfg, err := config.LoadArgs([]string{
		"--max-cycles", "7",
		"--city", "Boston,MA,US",
		"--city", "Albany,NY,US",
		"--min-delay", "250ms",
		"--telemetry",
	})
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Collection.MaxCycles)
	assert.Equal(t, []string{"Boston,MA,US", "Albany,NY,US"}, cfg.Cities)
	assert.Equal(t, 250*time.Millisecond, cfg.Rate.MinDelay)
	assert.True(t, cfg.Telemetry.Enabled)
}

func TestInvalidComponentConfig(t *testing.T) {
	t.Setenv("WEATHERAGENT_CONFIG", "")
	t.Setenv("WEATHER_API_KEY", "secret")

	_, err := config.LoadArgs([]string{"--stop-mode", "sometimes"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrConfiguration))
}

func TestVersionSkipsValidation(t *testing.T) {
	t.Setenv("WEATHERAGENT_CONFIG", "")
	t.Setenv("WEATHER_API_KEY", "")

	cfg, err := config.LoadArgs([]string{"--version", "--env-file", ""})
	require.NoError(t, err)
	assert.True(t, cfg.ShowVersion)
}

func TestLogLevelFlag(t *testing.T) {
	t.Setenv("WEATHERAGENT_CONFIG", "")
	t.Setenv("WEATHER_API_KEY", "secret")

	// Save original args and restore after test
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	os.Args = []string{"cmd", "--log-level", "debug"}

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel, "Expected LogLevel to be set by flag")
}

func TestLogLevelsMatchLogger(t *testing.T) {
	t.Setenv("WEATHERAGENT_CONFIG", "")
	t.Setenv("WEATHER_API_KEY", "secret")

	for _, level := range []string{"debug", "info", "warn", "warning", "error"} {
		cfg, err := config.LoadArgs([]string{"--log-level", level})
		require.NoError(t, err, level)
		require.NoError(t, logger.InitWithWriter(io.Discard, cfg.LogLevel), level)
	}
}
