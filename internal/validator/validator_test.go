package validator_test

import (
	"math"
	"testing"
	"time"

	"codeberg.org/mutker/weatheragent/internal/errors"
	"codeberg.org/mutker/weatheragent/internal/validator"
	"codeberg.org/mutker/weatheragent/internal/weather"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidator(t *testing.T) *validator.Validator {
	t.Helper()
	v, err := validator.New(validator.DefaultConfig())
	require.NoError(t, err)
	return v
}

func obs(temp, humidity float64) weather.Observation {
	return weather.Observation{
		Timestamp:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		City:        "Boston",
		Temperature: temp,
		Humidity:    humidity,
		Description: "clear sky",
	}
}

func TestHumidityBounds(t *testing.T) {
	v := newValidator(t)

	res, err := v.Validate(obs(20, 150))
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Equal(t, []string{"humidity 150 outside [0, 100]"}, res.Reasons)

	res, err = v.Validate(obs(20, 50))
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Empty(t, res.Reasons)

	for _, h := range []float64{0, 100} {
		res, err = v.Validate(obs(20, h))
		require.NoError(t, err)
		assert.True(t, res.Accepted, "humidity %v is inclusive", h)
	}
}

func TestTemperatureBounds(t *testing.T) {
	v := newValidator(t)

	for _, temp := range []float64{-91, 71, math.NaN()} {
		res, err := v.Validate(obs(temp, 50))
		require.NoError(t, err)
		assert.False(t, res.Accepted, "temperature %v", temp)
	}

	res, err := v.Validate(obs(60, 50))
	require.NoError(t, err)
	assert.True(t, res.Accepted)
}

func TestRequiredFields(t *testing.T) {
	v := newValidator(t)

	o := obs(20, 50)
	o.City = ""
	o.Description = ""
	o.Timestamp = time.Time{}

	res, err := v.Validate(o)
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.ElementsMatch(t, []string{"timestamp is missing", "city is empty", "description is empty"}, res.Reasons)
}

func TestValidateBatch(t *testing.T) {
	v := newValidator(t)

	_, err := v.ValidateBatch(nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrEmptyBatch))

	bad := obs(20, 150)
	bad.City = "Albany"
	res, err := v.ValidateBatch([]weather.Observation{obs(20, 50), bad, obs(21, 55)})
	require.NoError(t, err)
	require.Len(t, res.Accepted, 2)
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, "Albany", res.Rejected[0].Observation.City)
	assert.Equal(t, 21.0, res.Accepted[1].Temperature)
}

func TestConfigValidate(t *testing.T) {
	cfg := validator.DefaultConfig()
	cfg.MaxHumidity = 120
	_, err := validator.New(cfg)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, validator.ErrInvalidBounds))

	cfg = validator.DefaultConfig()
	cfg.MinTemperature = 80
	_, err = validator.New(cfg)
	require.Error(t, err)
}
