package config

import (
	"testing"
	"time"

	"storefront/internal/domain/model"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(env map[string]any) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	for k, val := range env {
		v.Set(k, val)
	}
	return v
}

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := fromViper(newViper(map[string]any{"JWT_SECRET": "s"}))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, []model.Location{"monastir", "tunis", "sfax"}, cfg.Locations)
	assert.Equal(t, model.Location("monastir"), cfg.DefaultRestoreLocation)
	assert.Equal(t, 3, cfg.RecalcMaxAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.RecalcRetryBackoff)
	assert.Equal(t, "order.status_changed", cfg.KafkaTopic)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Contains(t, cfg.DSN(), "host=localhost port=5432")
}

func TestFromViper_Overrides(t *testing.T) {
	cfg, err := fromViper(newViper(map[string]any{
		"JWT_SECRET":               "s",
		"PORT":                     ":9000",
		"DATABASE_URL":             "postgres://u:p@db:5432/shop",
		"STOCK_LOCATIONS":          " Tunis , sousse ",
		"DEFAULT_RESTORE_LOCATION": "sousse",
		"RECALC_RETRY_BACKOFF":     "250ms",
		"KAFKA_BROKERS":            "k1:9092, k2:9092",
	}))
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "postgres://u:p@db:5432/shop", cfg.DSN())
	assert.Equal(t, []model.Location{"tunis", "sousse"}, cfg.Locations)
	assert.Equal(t, model.Location("sousse"), cfg.DefaultRestoreLocation)
	assert.Equal(t, 250*time.Millisecond, cfg.RecalcRetryBackoff)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestFromViper_Errors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]any
		want string
	}{
		{"missing secret", map[string]any{}, "JWT_SECRET is required"},
		{"online location", map[string]any{"JWT_SECRET": "s", "STOCK_LOCATIONS": "tunis,online"}, "must not contain"},
		{"duplicate location", map[string]any{"JWT_SECRET": "s", "STOCK_LOCATIONS": "tunis,TUNIS"}, "duplicate"},
		{"empty locations", map[string]any{"JWT_SECRET": "s", "STOCK_LOCATIONS": " , "}, "STOCK_LOCATIONS is required"},
		{"unknown default", map[string]any{"JWT_SECRET": "s", "DEFAULT_RESTORE_LOCATION": "paris"}, "not in STOCK_LOCATIONS"},
		{"zero attempts", map[string]any{"JWT_SECRET": "s", "RECALC_MAX_ATTEMPTS": 0}, "RECALC_MAX_ATTEMPTS"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := fromViper(newViper(tc.env))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoad_ReadsEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("STOCK_LOCATIONS", "sfax")
	t.Setenv("RECALC_MAX_ATTEMPTS", "5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.JWTSecret)
	assert.Equal(t, []model.Location{"sfax"}, cfg.Locations)
	assert.Equal(t, 5, cfg.RecalcMaxAttempts)
}
