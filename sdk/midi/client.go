package midi

import (
	"fmt"

	"github.com/leandrodaf/uad2midi/sdk/contracts"
	"go.uber.org/multierr"
)

// NewMIDIClient creates a MIDI output client for the current operating system.
// When WithDeviceName is given, the named device is opened before returning.
//
// opts ...contracts.Option: A variadic list of option functions to customize the client configuration.
//
// Returns:
//   - contracts.ClientMIDI: An instance of the MIDI client, ready to Send if a device was named.
//   - error: An error if the options are invalid, the platform client fails or the device is missing.
func NewMIDIClient(opts ...contracts.Option) (contracts.ClientMIDI, error) {
	options, err := applyDefaultOptions(opts...)
	if err != nil {
		return nil, err
	}

	client, err := NewClient(&options)
	if err != nil {
		if options.DeviceName != "" {
			return nil, fmt.Errorf("opening MIDI output %q: %w", options.DeviceName, err)
		}
		return nil, err
	}
	return client, nil
}

// ListOutputDevices creates a client without opening a device, lists the
// outputs and releases the client.
func ListOutputDevices(opts ...contracts.Option) (devices []contracts.DeviceInfo, err error) {
	opts = append(opts, contracts.WithDeviceName(""))
	client, err := NewMIDIClient(opts...)
	if err != nil {
		return nil, err
	}
	defer func() { err = multierr.Append(err, client.Stop()) }()

	return client.ListDevices()
}
