//go:build !darwin
// +build !darwin

package mididarwin

import (
	"errors"

	"github.com/leandrodaf/uad2midi/sdk/contracts"
)

// ErrUnavailable is returned by every dummy client operation.
var ErrUnavailable = errors.New("CoreMIDI output is not available on this platform")

type DummyMIDIClient struct {
	logger contracts.Logger
}

func NewMIDIClient(options *contracts.ClientOptions) (contracts.ClientMIDI, error) {
	options.Logger.Info("Using dummy MIDI client for non-macOS system")
	return &DummyMIDIClient{
		logger: options.Logger,
	}, nil
}

func (m *DummyMIDIClient) ListDevices() ([]contracts.DeviceInfo, error) {
	m.logger.Warn("ListDevices called on dummy MIDI client")
	return nil, ErrUnavailable
}

func (m *DummyMIDIClient) SelectDevice(deviceID int) error {
	m.logger.Warn("SelectDevice called on dummy MIDI client")
	return ErrUnavailable
}

func (m *DummyMIDIClient) SelectDeviceByName(name string) error {
	m.logger.Warn("SelectDeviceByName called on dummy MIDI client")
	return ErrUnavailable
}

func (m *DummyMIDIClient) Send(msg contracts.MIDIMessage) error {
	return ErrUnavailable
}

func (m *DummyMIDIClient) Stop() error {
	m.logger.Warn("Stop called on dummy MIDI client")
	return nil
}
