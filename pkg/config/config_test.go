package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimal = `
device:
  url: http://plant.local
`

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte(minimal))
	require.NoError(t, err)

	assert.Equal(t, "development", c.Environment)
	assert.Equal(t, 8080, c.Server.Port)
	assert.True(t, c.Server.CORS)
	assert.Equal(t, 30*time.Second, c.Dashboard.RefreshTTL)
	assert.Equal(t, "dry", c.Dashboard.Averaging)
	assert.Equal(t, "info", c.Logger.Level)
	assert.Equal(t, "plantdash", c.Cache.Redis.Prefix)
	assert.Equal(t, 7, c.Simulator.Plant.WaterHour)
	assert.Equal(t, 500, c.Simulator.Plant.WaterStart)
	assert.Equal(t, 10, c.Simulator.Plant.Refill)
	assert.Equal(t, 25, c.Simulator.WaterTime.Scale)
	assert.Equal(t, 1024, c.Render.PNGWidth)
}

func TestLoadShippedConfig(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "dry", c.Dashboard.Averaging)
	assert.Equal(t, "http://localhost:8090", c.Device.URL)
	assert.Equal(t, 9, c.Simulator.Plant.UpdateHour)
	assert.Equal(t, 0, c.Simulator.WaterTime.Offset)
	assert.Equal(t, 40.0, c.Simulator.Scale)
}

func TestParseKeepsExplicitFalse(t *testing.T) {
	c, err := Parse([]byte(minimal + `
server:
  cors: false
  port: 9000
metrics:
  enabled: false
`))
	require.NoError(t, err)
	assert.False(t, c.Server.CORS)
	assert.False(t, c.Metrics.Enabled)
	assert.Equal(t, 9000, c.Server.Port)
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"missing device url": `environment: test`,
		"bad scheme":         "device:\n  url: ftp://plant.local\n",
		"bad averaging":      minimal + "dashboard:\n  averaging: median\n",
		"kafka no brokers":   minimal + "kafka:\n  enabled: true\n",
		"bad port":           minimal + "server:\n  port: 70000\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadWithEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimal), 0o600))

	t.Setenv("PLANTDASH_DEVICE_URL", "http://10.0.0.7:8080")
	t.Setenv("PLANTDASH_PORT", "8181")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("KAFKA_ENABLED", "yes")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.7:8080", c.Device.URL)
	assert.Equal(t, 8181, c.Server.Port)
	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
