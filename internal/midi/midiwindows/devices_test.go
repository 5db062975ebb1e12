package midiwindows

import (
	"testing"

	"github.com/leandrodaf/uad2midi/sdk/contracts"
	"github.com/stretchr/testify/assert"
)

func TestIndexByName(t *testing.T) {
	devices := []contracts.DeviceInfo{
		{Name: "Microsoft GS Wavetable Synth"},
		unavailableDevice(1),
		{Name: "Bus 1"},
	}

	i, ok := indexByName(devices, "Bus 1")
	assert.True(t, ok)
	assert.Equal(t, 2, i)

	_, ok = indexByName(devices, "")
	assert.False(t, ok)

	_, ok = indexByName(devices, "MIDI output 1 (unavailable)")
	assert.False(t, ok)

	_, ok = indexByName(devices, "Bus 2")
	assert.False(t, ok)
}

func TestUnavailableDeviceIsNamed(t *testing.T) {
	d := unavailableDevice(3)
	assert.Equal(t, "MIDI output 3 (unavailable)", d.Name)
	assert.NotEmpty(t, d.EntityName)
}
