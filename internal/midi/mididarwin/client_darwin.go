//go:build darwin
// +build darwin

package mididarwin

import (
	"errors"
	"fmt"
	"sync"

	"github.com/leandrodaf/uad2midi/sdk/contracts"
	"github.com/youpy/go-coremidi"
)

// Error definitions for CoreMIDI output issues.
var (
	ErrInvalidMIDIDevice = errors.New("invalid MIDI device")
	ErrCreateOutputPort  = errors.New("error creating output port")
	ErrMIDISendError     = errors.New("error sending MIDI packet")
)

// ClientMid sends MIDI messages to a CoreMIDI destination on Darwin (macOS).
// Send may be called from any goroutine.
type ClientMid struct {
	logger         contracts.Logger
	client         coremidi.Client           // CoreMIDI client instance.
	outputPort     coremidi.OutputPort       // Output port the packets are sent through.
	destination    *coremidi.Destination     // Selected destination; nil until a device is selected.
	deviceName     string                    // Name of the selected destination.
	coreMIDIConfig *contracts.CoreMIDIConfig // Configuration for MIDI client.
	mu             sync.Mutex                // Guards destination and sends.
}

// NewMIDIClient initializes a CoreMIDI client with one output port. When
// options.DeviceName is set, the destination with that name is selected.
func NewMIDIClient(options *contracts.ClientOptions) (contracts.ClientMIDI, error) {
	client, err := coremidi.NewClient(options.CoreMIDIConfig.ClientName)
	if err != nil {
		return nil, err
	}
	outputPort, err := coremidi.NewOutputPort(client, options.CoreMIDIConfig.PortName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCreateOutputPort, err)
	}
	options.Logger.Info("MIDI client successfully created",
		options.Logger.Field().String("client", options.CoreMIDIConfig.ClientName))

	m := &ClientMid{
		logger:         options.Logger,
		client:         client,
		outputPort:     outputPort,
		coreMIDIConfig: options.CoreMIDIConfig,
	}
	if options.DeviceName != "" {
		if err := m.SelectDeviceByName(options.DeviceName); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ListDevices retrieves and returns available MIDI destinations.
func (m *ClientMid) ListDevices() ([]contracts.DeviceInfo, error) {
	destinations, err := coremidi.AllDestinations()
	if err != nil {
		return nil, fmt.Errorf("error listing MIDI destinations: %w", err)
	}
	if len(destinations) == 0 {
		m.logger.Warn(contracts.ErrNoMIDIDevices.Error())
		return nil, contracts.ErrNoMIDIDevices
	}

	devices := make([]contracts.DeviceInfo, len(destinations))
	for i, destination := range destinations {
		entity := destination.Entity()
		devices[i] = contracts.DeviceInfo{
			Name:         destination.Name(),
			EntityName:   entity.Name(),
			Manufacturer: entity.Manufacturer(),
		}
	}
	return devices, nil
}

// SelectDevice selects a MIDI destination by index.
func (m *ClientMid) SelectDevice(deviceID int) error {
	destinations, err := coremidi.AllDestinations()
	if err != nil {
		return fmt.Errorf("error retrieving MIDI destinations: %w", err)
	}
	if deviceID < 0 || deviceID >= len(destinations) {
		m.logger.Error(ErrInvalidMIDIDevice.Error(), m.logger.Field().Int("deviceID", deviceID))
		return ErrInvalidMIDIDevice
	}
	m.use(destinations[deviceID], deviceID)
	return nil
}

// SelectDeviceByName selects the first MIDI destination named name.
func (m *ClientMid) SelectDeviceByName(name string) error {
	destinations, err := coremidi.AllDestinations()
	if err != nil {
		return fmt.Errorf("error retrieving MIDI destinations: %w", err)
	}
	for i, destination := range destinations {
		if destination.Name() == name {
			m.use(destination, i)
			return nil
		}
	}
	m.logger.Error("MIDI output device not found", m.logger.Field().String("deviceName", name))
	return fmt.Errorf("%w: %q", contracts.ErrDeviceNotFound, name)
}

func (m *ClientMid) use(destination coremidi.Destination, deviceID int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.destination = &destination
	m.deviceName = destination.Name()
	m.logger.Info("MIDI device selected",
		m.logger.Field().Int("deviceID", deviceID),
		m.logger.Field().String("deviceName", m.deviceName))
}

// Send validates msg and sends it to the selected destination.
func (m *ClientMid) Send(msg contracts.MIDIMessage) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.destination == nil {
		return contracts.ErrDeviceNotSelected
	}
	packet := coremidi.NewPacket(msg.Bytes(), 0)
	if err := packet.Send(&m.outputPort, m.destination); err != nil {
		return fmt.Errorf("%w: %v", ErrMIDISendError, err)
	}
	return nil
}

// Stop releases the selected destination. Further sends fail with
// ErrDeviceNotSelected.
func (m *ClientMid) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.destination != nil {
		m.logger.Info("MIDI output closed", m.logger.Field().String("deviceName", m.deviceName))
	}
	m.destination = nil
	m.deviceName = ""
	return nil
}
