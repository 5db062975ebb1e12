package midi

import (
	"runtime"

	"github.com/leandrodaf/uad2midi/internal/midi/mididarwin"
	"github.com/leandrodaf/uad2midi/internal/midi/midirtmidi"
	"github.com/leandrodaf/uad2midi/internal/midi/midiwindows"
	"github.com/leandrodaf/uad2midi/sdk/contracts"
)

type clientInitializer func(*contracts.ClientOptions) (contracts.ClientMIDI, error)

// clientInitializers maps OS names to native MIDI client initializers.
var clientInitializers = map[string]clientInitializer{
	"darwin":  mididarwin.NewMIDIClient,  // macOS (Darwin) CoreMIDI client initializer.
	"windows": midiwindows.NewMIDIClient, // Windows winmm client initializer.
}

// fallbackInitializer serves every OS without a native client through the
// registered gomidi driver.
var fallbackInitializer clientInitializer = midirtmidi.NewMIDIClient

// NewClient initializes a MIDI output client based on the current operating system.
// macOS and Windows use their native APIs; other systems use the gomidi driver.
//
// opts *contracts.ClientOptions: Configuration options for the MIDI client.
//
// Returns:
//   - contracts.ClientMIDI: An instance of the MIDI client.
//   - error: An error if initialization fails.
func NewClient(opts *contracts.ClientOptions) (contracts.ClientMIDI, error) {
	return initializerFor(runtime.GOOS)(opts)
}

func initializerFor(goos string) clientInitializer {
	if initializer, exists := clientInitializers[goos]; exists {
		return initializer
	}
	return fallbackInitializer
}
