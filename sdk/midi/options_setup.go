package midi

import (
	"fmt"

	"github.com/leandrodaf/uad2midi/internal/logger"
	"github.com/leandrodaf/uad2midi/sdk/contracts"
)

// Default names registered with the OS MIDI service.
const (
	DefaultClientName = "uad2midi"
	DefaultPortName   = "uad2midi output"
)

// applyDefaultOptions sets default values for ClientOptions if not explicitly provided.
//
// opts ...contracts.Option: A variadic list of option functions that can modify ClientOptions.
//
// Returns:
//   - contracts.ClientOptions: A structure containing the finalized client options with defaults applied.
//   - error: An error if the log file could not be opened.
func applyDefaultOptions(opts ...contracts.Option) (contracts.ClientOptions, error) {
	options := &contracts.ClientOptions{}
	for _, opt := range opts {
		opt(options)
	}

	// Set defaults if options are not provided
	if options.Logger == nil {
		options.Logger = logger.NewZapLogger()
	}
	if options.LogLevel == 0 {
		options.LogLevel = contracts.InfoLevel
	}

	if options.CoreMIDIConfig == nil {
		options.CoreMIDIConfig = &contracts.CoreMIDIConfig{}
	}
	if options.CoreMIDIConfig.ClientName == "" {
		options.CoreMIDIConfig.ClientName = DefaultClientName
	}
	if options.CoreMIDIConfig.PortName == "" {
		options.CoreMIDIConfig.PortName = DefaultPortName
	}

	options.Logger.SetLevel(options.LogLevel)
	if options.LogFilePath != "" {
		if err := options.Logger.SetDestination(contracts.FileLog, options.LogFilePath); err != nil {
			return contracts.ClientOptions{}, fmt.Errorf("failed to open log file: %w", err)
		}
	}
	return *options, nil
}
