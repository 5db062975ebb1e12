package midiwindows

import (
	"fmt"

	"github.com/leandrodaf/uad2midi/sdk/contracts"
)

// unavailableDevice stands in for an output whose capabilities could not be
// read, so indexes keep matching winmm device ids.
func unavailableDevice(id int) contracts.DeviceInfo {
	return contracts.DeviceInfo{
		Name:       fmt.Sprintf("MIDI output %d (unavailable)", id),
		EntityName: "unavailable",
	}
}

// indexByName returns the winmm id of the first device named name. Empty
// names and placeholder entries never match.
func indexByName(devices []contracts.DeviceInfo, name string) (int, bool) {
	if name == "" {
		return -1, false
	}
	for i, d := range devices {
		if d.Name == name && d != unavailableDevice(i) {
			return i, true
		}
	}
	return -1, false
}
