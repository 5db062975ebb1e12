package contracts

import (
	"errors"
	"fmt"
)

// Errors returned by MIDI output clients.
var (
	ErrInvalidMIDIMessage = errors.New("invalid MIDI message")
	ErrDeviceNotSelected  = errors.New("no MIDI output device selected")
	ErrDeviceNotFound     = errors.New("MIDI output device not found")
	ErrNoMIDIDevices      = errors.New("no MIDI output devices found")
)

// MIDI channel message commands (upper nibble of the status byte).
const (
	NoteOff         = 0x80
	NoteOn          = 0x90
	PolyPressure    = 0xA0
	ControlChange   = 0xB0
	ProgramChange   = 0xC0
	ChannelPressure = 0xD0
	PitchBend       = 0xE0
)

// DeviceInfo contains information about a MIDI output device.
type DeviceInfo struct {
	Name         string // Device name.
	Manufacturer string // Device manufacturer.
	EntityName   string // Name of the entity to which the device belongs.
}

// MIDIMessage is a channel short message: command, channel and two data bytes.
type MIDIMessage struct {
	Command int `json:"midiCommand" yaml:"command"`
	Channel int `json:"midiChannel" yaml:"channel"`
	Data1   int `json:"midiData1" yaml:"data1"`
	Data2   int `json:"midiData2" yaml:"data2"`
}

// Validate checks the message against the short message ranges.
func (m MIDIMessage) Validate() error {
	if m.Command < NoteOff || m.Command > 0xEF {
		return fmt.Errorf("%w: command 0x%X out of range", ErrInvalidMIDIMessage, m.Command)
	}
	if m.Channel < 0 || m.Channel > 15 {
		return fmt.Errorf("%w: channel %d out of range", ErrInvalidMIDIMessage, m.Channel)
	}
	if m.Data1 < 0 || m.Data1 > 127 {
		return fmt.Errorf("%w: data1 %d out of range", ErrInvalidMIDIMessage, m.Data1)
	}
	if m.hasData2() && (m.Data2 < 0 || m.Data2 > 127) {
		return fmt.Errorf("%w: data2 %d out of range", ErrInvalidMIDIMessage, m.Data2)
	}
	return nil
}

// Status returns the status byte. The low nibble of Command is ignored.
func (m MIDIMessage) Status() byte {
	return byte(m.Command&0xF0) | byte(m.Channel&0x0F)
}

// Bytes returns the wire encoding. Program change and channel pressure carry
// a single data byte.
func (m MIDIMessage) Bytes() []byte {
	if !m.hasData2() {
		return []byte{m.Status(), byte(m.Data1)}
	}
	return []byte{m.Status(), byte(m.Data1), byte(m.Data2)}
}

// Packed returns the message packed little-endian into a 32-bit word
// (status | data1<<8 | data2<<16).
func (m MIDIMessage) Packed() uint32 {
	word := uint32(m.Status()) | uint32(m.Data1)<<8
	if m.hasData2() {
		word |= uint32(m.Data2) << 16
	}
	return word
}

func (m MIDIMessage) String() string {
	return fmt.Sprintf("command=0x%X channel=%d data1=%d data2=%d", m.Command&0xF0, m.Channel, m.Data1, m.Data2)
}

func (m MIDIMessage) hasData2() bool {
	cmd := m.Command & 0xF0
	return cmd != ProgramChange && cmd != ChannelPressure
}

// MIDISender is the sink the console bridge emits MIDI messages to.
type MIDISender interface {
	Send(msg MIDIMessage) error
}

// ClientMIDI defines an interface for MIDI output client operations.
type ClientMIDI interface {
	MIDISender
	// Stop closes the selected device and releases resources.
	Stop() error
	// ListDevices lists all available MIDI output devices.
	ListDevices() ([]DeviceInfo, error)
	// SelectDevice opens a MIDI output device by its index.
	SelectDevice(deviceID int) error
	// SelectDeviceByName opens the first MIDI output device with the given name.
	SelectDeviceByName(name string) error
}
