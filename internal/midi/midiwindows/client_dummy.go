//go:build !windows
// +build !windows

package midiwindows

import (
	"errors"

	"github.com/leandrodaf/uad2midi/sdk/contracts"
)

// ErrUnavailable is returned by every dummy client operation.
var ErrUnavailable = errors.New("winmm MIDI output is not available on this platform")

type dummyMIDIClient struct {
	logger contracts.Logger
}

// NewMIDIClient initializes a dummy MIDI client for non-Windows systems.
func NewMIDIClient(options *contracts.ClientOptions) (contracts.ClientMIDI, error) {
	options.Logger.Info("Using dummy MIDI client for non-Windows system")
	return &dummyMIDIClient{
		logger: options.Logger,
	}, nil
}

// ListDevices logs a warning and returns ErrUnavailable.
func (m *dummyMIDIClient) ListDevices() ([]contracts.DeviceInfo, error) {
	m.logger.Warn("ListDevices called on dummy MIDI client")
	return nil, ErrUnavailable
}

// SelectDevice logs a warning and returns ErrUnavailable.
func (m *dummyMIDIClient) SelectDevice(deviceID int) error {
	m.logger.Warn("SelectDevice called on dummy MIDI client")
	return ErrUnavailable
}

// SelectDeviceByName logs a warning and returns ErrUnavailable.
func (m *dummyMIDIClient) SelectDeviceByName(name string) error {
	m.logger.Warn("SelectDeviceByName called on dummy MIDI client")
	return ErrUnavailable
}

// Send returns ErrUnavailable.
func (m *dummyMIDIClient) Send(msg contracts.MIDIMessage) error {
	return ErrUnavailable
}

// Stop logs a warning indicating that Stop was called on the dummy MIDI client.
func (m *dummyMIDIClient) Stop() error {
	m.logger.Warn("Stop called on dummy MIDI client")
	return nil
}
