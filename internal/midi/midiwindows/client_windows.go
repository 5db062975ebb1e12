//go:build windows
// +build windows

package midiwindows

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/leandrodaf/uad2midi/sdk/contracts"
	"go.uber.org/multierr"
	"golang.org/x/sys/windows"
)

// Type definitions for MIDI handles
type HMIDIOUT windows.Handle

// Constants for midiOutOpen flags
const (
	CALLBACK_NULL = 0x00000000 // No callback
)

// MMSYSERR_NOERROR is the winmm success code.
const MMSYSERR_NOERROR = 0

// Struct representing MIDI output device capabilities (MIDIOUTCAPSW)
type midiOutCaps struct {
	wMid           uint16
	wPid           uint16
	vDriverVersion uint32
	szPname        [32]uint16
	wTechnology    uint16
	wVoices        uint16
	wNotes         uint16
	wChannelMask   uint16
	dwSupport      uint32
}

// ClientMid sends MIDI short messages through winmm on Windows
type ClientMid struct {
	logger     contracts.Logger
	handle     HMIDIOUT
	deviceName string
	mu         sync.Mutex
}

// Load the winmm.dll library and required functions
var (
	winmm                 = windows.NewLazySystemDLL("winmm.dll")
	procMidiOutGetNumDevs = winmm.NewProc("midiOutGetNumDevs")
	procMidiOutGetDevCaps = winmm.NewProc("midiOutGetDevCapsW")
	procMidiOutOpen       = winmm.NewProc("midiOutOpen")
	procMidiOutShortMsg   = winmm.NewProc("midiOutShortMsg")
	procMidiOutReset      = winmm.NewProc("midiOutReset")
	procMidiOutClose      = winmm.NewProc("midiOutClose")
)

// NewMIDIClient creates a MIDI output client for Windows. When
// options.DeviceName is set, the device with that name is opened.
func NewMIDIClient(options *contracts.ClientOptions) (contracts.ClientMIDI, error) {
	options.Logger.Info("MIDI client created for Windows")

	m := &ClientMid{logger: options.Logger}
	if options.DeviceName != "" {
		if err := m.SelectDeviceByName(options.DeviceName); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ListDevices lists the available MIDI output devices
func (m *ClientMid) ListDevices() ([]contracts.DeviceInfo, error) {
	r0, _, _ := procMidiOutGetNumDevs.Call()
	numDevices := uint32(r0)
	if numDevices == 0 {
		m.logger.Warn("No MIDI devices found")
		return nil, contracts.ErrNoMIDIDevices
	}

	devices := make([]contracts.DeviceInfo, numDevices)
	for i := uint32(0); i < numDevices; i++ {
		var caps midiOutCaps
		r1, _, _ := procMidiOutGetDevCaps.Call(
			uintptr(i),
			uintptr(unsafe.Pointer(&caps)),
			unsafe.Sizeof(caps),
		)
		if r1 != MMSYSERR_NOERROR {
			m.logger.Warn("Failed to get information for MIDI device", m.logger.Field().Int("deviceID", int(i)))
			devices[i] = unavailableDevice(int(i))
			continue
		}
		deviceName := windows.UTF16ToString(caps.szPname[:])
		devices[i] = contracts.DeviceInfo{
			Name:         deviceName,
			EntityName:   deviceName,
			Manufacturer: fmt.Sprintf("MID: %d PID: %d", caps.wMid, caps.wPid),
		}
	}
	return devices, nil
}

// SelectDevice opens a MIDI output device by index, closing any open one
func (m *ClientMid) SelectDevice(deviceID int) error {
	devices, err := m.ListDevices()
	if err != nil {
		return err
	}
	if deviceID < 0 || deviceID >= len(devices) {
		return fmt.Errorf("%w: index %d", contracts.ErrDeviceNotFound, deviceID)
	}
	return m.open(deviceID, devices[deviceID].Name)
}

// SelectDeviceByName opens the first MIDI output device named name
func (m *ClientMid) SelectDeviceByName(name string) error {
	devices, err := m.ListDevices()
	if err != nil {
		return err
	}
	if i, ok := indexByName(devices, name); ok {
		return m.open(i, name)
	}
	m.logger.Error("MIDI output device not found", m.logger.Field().String("deviceName", name))
	return fmt.Errorf("%w: %q", contracts.ErrDeviceNotFound, name)
}

func (m *ClientMid) open(deviceID int, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.handle != 0 {
		if err := m.close(); err != nil {
			return fmt.Errorf("failed to close previous MIDI device: %w", err)
		}
	}

	var handle HMIDIOUT
	r1, _, _ := procMidiOutOpen.Call(
		uintptr(unsafe.Pointer(&handle)),
		uintptr(deviceID),
		0,
		0,
		CALLBACK_NULL,
	)
	if r1 != MMSYSERR_NOERROR {
		m.logger.Error("Failed to open MIDI device",
			m.logger.Field().Int("deviceID", deviceID),
			m.logger.Field().Int("mmresult", int(r1)))
		return fmt.Errorf("failed to open MIDI device %d: mmresult %d", deviceID, r1)
	}

	m.handle = handle
	m.deviceName = name
	m.logger.Info("MIDI device selected",
		m.logger.Field().Int("deviceID", deviceID),
		m.logger.Field().String("deviceName", name))
	return nil
}

// Send validates msg and writes it as a packed short message
func (m *ClientMid) Send(msg contracts.MIDIMessage) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.handle == 0 {
		return contracts.ErrDeviceNotSelected
	}
	r1, _, _ := procMidiOutShortMsg.Call(uintptr(m.handle), uintptr(msg.Packed()))
	if r1 != MMSYSERR_NOERROR {
		return fmt.Errorf("midiOutShortMsg failed: mmresult %d", r1)
	}
	return nil
}

// Stop resets and closes the open device
func (m *ClientMid) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.handle == 0 {
		return nil
	}
	if err := m.close(); err != nil {
		return fmt.Errorf("failed to close MIDI device: %w", err)
	}
	m.logger.Info("MIDI output closed")
	return nil
}

// close releases the handle; callers hold mu
func (m *ClientMid) close() error {
	var err error
	if r1, _, _ := procMidiOutReset.Call(uintptr(m.handle)); r1 != MMSYSERR_NOERROR {
		err = multierr.Append(err, fmt.Errorf("midiOutReset: mmresult %d", r1))
	}
	if r1, _, _ := procMidiOutClose.Call(uintptr(m.handle)); r1 != MMSYSERR_NOERROR {
		err = multierr.Append(err, fmt.Errorf("midiOutClose: mmresult %d", r1))
	}
	m.handle = 0
	m.deviceName = ""
	return err
}
