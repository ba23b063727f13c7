package main

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Konsultn-Engineering/querykit/connector"
)

func TestLoadConfigFromYAML(t *testing.T) {
	v := viper.New()
	setDefaults(v, connector.DefaultConfig())
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(`
host: db.internal
database: ledger
schema: bank
driver: sql
query_timeout: 750ms
pool:
  max_open: 4
log:
  slow_query: 2s
`)))

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, 5432, cfg.Port)
	assert.Equal(t, "bank", cfg.Schema)
	assert.Equal(t, connector.DriverSQL, cfg.Driver)
	assert.Equal(t, 750*time.Millisecond, cfg.QueryTimeout)
	assert.Equal(t, 4, cfg.Pool.MaxOpen)
	assert.Equal(t, time.Hour, cfg.Pool.MaxLifetime)
	assert.Equal(t, 2*time.Second, cfg.Log.SlowQuery)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("QUERYKIT_DATABASE", "ledger")
	t.Setenv("QUERYKIT_POOL__MAX_OPEN", "7")

	v := viper.New()
	setDefaults(v, connector.DefaultConfig())
	v.SetEnvPrefix("QUERYKIT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "ledger", cfg.Database)
	assert.Equal(t, 7, cfg.Pool.MaxOpen)
	assert.Equal(t, "public", cfg.Schema)
}
