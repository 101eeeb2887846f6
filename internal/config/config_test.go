package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
transport: sim
device: sim0
read_timeout_ms: 250
mqtt:
  broker: tcp://localhost:1883
`), 0644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sim", c.Transport)
	assert.Equal(t, "sim0", c.Device)
	assert.Equal(t, 250*time.Millisecond, c.ReadTimeout())
	assert.Equal(t, "40h", c.Protocol)
	assert.Equal(t, 115200, c.Baud)
	assert.Equal(t, "tcp://localhost:1883", c.MQTT.Broker)
	assert.Equal(t, "grid40h", c.MQTT.TopicPrefix)
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.yaml")
	c := Default()
	c.HTTP.Addr = ":9000"
	c.Intensity = 8
	require.NoError(t, Save(path, c))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("baud: [1, 2"), 0644))
	_, err = Load(path)
	assert.Error(t, err)
}
