//go:build !darwin && !windows
// +build !darwin,!windows

// Package midirtmidi sends MIDI through the registered gomidi driver. The
// driver is registered by importing it, e.g.
//
//	import _ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
package midirtmidi

import (
	"fmt"
	"strings"
	"sync"

	"github.com/leandrodaf/uad2midi/sdk/contracts"
	"gitlab.com/gomidi/midi/v2"
	"go.uber.org/multierr"
)

// outPort is the subset of drivers.Out the client uses.
type outPort interface {
	Open() error
	Close() error
	IsOpen() bool
	Send(data []byte) error
	String() string
}

// ClientMid sends MIDI messages to one gomidi output port.
type ClientMid struct {
	logger      contracts.Logger
	ports       func() []outPort // Lists the driver's output ports.
	closeDriver func()           // Releases the driver on Stop.
	mu          sync.Mutex
	out         outPort
}

// NewMIDIClient creates a client on the registered gomidi driver. When
// options.DeviceName is set, that port is opened.
func NewMIDIClient(options *contracts.ClientOptions) (contracts.ClientMIDI, error) {
	return newClient(options, driverPorts, midi.CloseDriver)
}

func newClient(options *contracts.ClientOptions, ports func() []outPort, closeDriver func()) (*ClientMid, error) {
	m := &ClientMid{
		logger:      options.Logger,
		ports:       ports,
		closeDriver: closeDriver,
	}
	options.Logger.Info("MIDI client created for gomidi driver")

	if options.DeviceName != "" {
		if err := m.SelectDeviceByName(options.DeviceName); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func driverPorts() []outPort {
	outs := midi.GetOutPorts()
	ports := make([]outPort, len(outs))
	for i, out := range outs {
		ports[i] = out
	}
	return ports
}

// ListDevices lists the driver's output ports.
func (m *ClientMid) ListDevices() ([]contracts.DeviceInfo, error) {
	ports := m.ports()
	if len(ports) == 0 {
		m.logger.Warn(contracts.ErrNoMIDIDevices.Error())
		return nil, contracts.ErrNoMIDIDevices
	}
	devices := make([]contracts.DeviceInfo, len(ports))
	for i, p := range ports {
		devices[i] = contracts.DeviceInfo{Name: p.String(), EntityName: p.String()}
	}
	return devices, nil
}

// SelectDevice opens the output port at index deviceID.
func (m *ClientMid) SelectDevice(deviceID int) error {
	ports := m.ports()
	if deviceID < 0 || deviceID >= len(ports) {
		return fmt.Errorf("%w: index %d", contracts.ErrDeviceNotFound, deviceID)
	}
	return m.open(ports[deviceID], deviceID)
}

// SelectDeviceByName opens the port named name. ALSA decorates port names
// with client and port numbers, so a port containing name is accepted when
// none matches exactly.
func (m *ClientMid) SelectDeviceByName(name string) error {
	ports := m.ports()
	for i, p := range ports {
		if p.String() == name {
			return m.open(p, i)
		}
	}
	for i, p := range ports {
		if strings.Contains(p.String(), name) {
			return m.open(p, i)
		}
	}
	m.logger.Error("MIDI output device not found", m.logger.Field().String("deviceName", name))
	return fmt.Errorf("%w: %q", contracts.ErrDeviceNotFound, name)
}

func (m *ClientMid) open(p outPort, deviceID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.out != nil {
		if err := m.out.Close(); err != nil {
			m.logger.Warn("Failed closing previous MIDI port", m.logger.Field().Error("error", err))
		}
		m.out = nil
	}
	if !p.IsOpen() {
		if err := p.Open(); err != nil {
			return fmt.Errorf("failed to open MIDI port %q: %w", p.String(), err)
		}
	}
	m.out = p
	m.logger.Info("MIDI device selected",
		m.logger.Field().Int("deviceID", deviceID),
		m.logger.Field().String("deviceName", p.String()))
	return nil
}

// Send validates msg and writes it to the open port.
func (m *ClientMid) Send(msg contracts.MIDIMessage) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.out == nil {
		return contracts.ErrDeviceNotSelected
	}
	data := midi.Message(msg.Bytes())
	if err := m.out.Send(data); err != nil {
		return fmt.Errorf("failed to send %s: %w", data.String(), err)
	}
	return nil
}

// Stop closes the open port and the driver.
func (m *ClientMid) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	if m.out != nil {
		err = multierr.Append(err, m.out.Close())
		m.out = nil
	}
	if m.closeDriver != nil {
		m.closeDriver()
		m.closeDriver = nil
	}
	m.logger.Info("MIDI output closed")
	return err
}
