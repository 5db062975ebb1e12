//go:build darwin || windows
// +build darwin windows

package midirtmidi

import (
	"errors"

	"github.com/leandrodaf/uad2midi/sdk/contracts"
)

// ErrUnavailable is returned by every dummy client operation.
var ErrUnavailable = errors.New("gomidi output is not used on this platform")

type dummyMIDIClient struct {
	logger contracts.Logger
}

// NewMIDIClient initializes a dummy MIDI client where a native client exists.
func NewMIDIClient(options *contracts.ClientOptions) (contracts.ClientMIDI, error) {
	options.Logger.Info("Using dummy gomidi client on a system with native MIDI output")
	return &dummyMIDIClient{logger: options.Logger}, nil
}

func (m *dummyMIDIClient) ListDevices() ([]contracts.DeviceInfo, error) {
	m.logger.Warn("ListDevices called on dummy MIDI client")
	return nil, ErrUnavailable
}

func (m *dummyMIDIClient) SelectDevice(deviceID int) error {
	m.logger.Warn("SelectDevice called on dummy MIDI client")
	return ErrUnavailable
}

func (m *dummyMIDIClient) SelectDeviceByName(name string) error {
	m.logger.Warn("SelectDeviceByName called on dummy MIDI client")
	return ErrUnavailable
}

func (m *dummyMIDIClient) Send(msg contracts.MIDIMessage) error {
	return ErrUnavailable
}

func (m *dummyMIDIClient) Stop() error {
	return nil
}
