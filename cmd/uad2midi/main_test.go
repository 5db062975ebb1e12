package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/leandrodaf/uad2midi/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uad2midi.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
uad2midi:
  uad:
    hostname: studio.local
  subscription:
    - '{"path":"/devices/0/inputs/0/Mute/value","midiCommand":144}'
`), 0o644))

	out, err := execute(t, "config", "--config", path,
		"--port", "4800",
		"--device", "Bus 2",
		"--rule", `{"path":"/devices/0/inputs/1/Mute/value","response":"get /devices"}`)
	require.NoError(t, err)

	var decoded map[string]config.Config
	require.NoError(t, yaml.Unmarshal([]byte(out), &decoded))
	cfg := decoded["uad2midi"]
	assert.Equal(t, "studio.local", cfg.UAD.Hostname)
	assert.Equal(t, 4800, cfg.UAD.Port)
	assert.Equal(t, "Bus 2", cfg.MIDI.DeviceName)
	assert.Equal(t, []string{
		`{"path":"/devices/0/inputs/0/Mute/value","midiCommand":144}`,
		`{"path":"/devices/0/inputs/1/Mute/value","response":"get /devices"}`,
	}, cfg.Subscription)
}

func TestInvalidConfigurationIsRejected(t *testing.T) {
	_, err := execute(t, "config", "--dialect", "xml")
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	_, err = execute(t, "config", "--config", filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestLogFileFlag(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "bridge.log")
	_, err := execute(t, "config", "--log-file", logPath)
	require.NoError(t, err)
	assert.FileExists(t, logPath)
}
