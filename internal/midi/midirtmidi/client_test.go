//go:build !darwin && !windows

package midirtmidi

import (
	"errors"
	"testing"

	"github.com/leandrodaf/uad2midi/internal/logger"
	"github.com/leandrodaf/uad2midi/sdk/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakePort struct {
	name     string
	open     bool
	sent     [][]byte
	sendErr  error
	closeErr error
}

func (p *fakePort) Open() error { p.open = true; return nil }
func (p *fakePort) IsOpen() bool { return p.open }
func (p *fakePort) String() string { return p.name }

func (p *fakePort) Close() error {
	p.open = false
	return p.closeErr
}

func (p *fakePort) Send(data []byte) error {
	if p.sendErr != nil {
		return p.sendErr
	}
	p.sent = append(p.sent, append([]byte(nil), data...))
	return nil
}

func newTestClient(t *testing.T, deviceName string, ports ...*fakePort) (*ClientMid, *observer.ObservedLogs, *bool, error) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	closed := false
	list := func() []outPort {
		out := make([]outPort, len(ports))
		for i, p := range ports {
			out[i] = p
		}
		return out
	}
	client, err := newClient(&contracts.ClientOptions{
		Logger:     logger.NewZapLoggerWithCore(core),
		DeviceName: deviceName,
	}, list, func() { closed = true })
	return client, logs, &closed, err
}

func TestListDevices(t *testing.T) {
	client, _, _, err := newTestClient(t, "", &fakePort{name: "Midi Through Port-0"}, &fakePort{name: "Bus 1"})
	require.NoError(t, err)

	devices, err := client.ListDevices()
	require.NoError(t, err)
	assert.Equal(t, []contracts.DeviceInfo{
		{Name: "Midi Through Port-0", EntityName: "Midi Through Port-0"},
		{Name: "Bus 1", EntityName: "Bus 1"},
	}, devices)
}

func TestListDevicesEmpty(t *testing.T) {
	client, _, _, err := newTestClient(t, "")
	require.NoError(t, err)

	_, err = client.ListDevices()
	assert.ErrorIs(t, err, contracts.ErrNoMIDIDevices)
}

func TestSelectByNameAtCreation(t *testing.T) {
	decorated := &fakePort{name: "VirMIDI 1-0:Bus 1 20:0"}
	exact := &fakePort{name: "Bus 1"}

	client, _, _, err := newTestClient(t, "Bus 1", decorated, exact)
	require.NoError(t, err)
	assert.True(t, exact.open)
	assert.False(t, decorated.open)

	require.NoError(t, client.Send(contracts.MIDIMessage{Command: contracts.NoteOn, Channel: 2, Data1: 60, Data2: 100}))
	require.NoError(t, client.Send(contracts.MIDIMessage{Command: contracts.ProgramChange, Data1: 5}))
	assert.Equal(t, [][]byte{{0x92, 60, 100}, {0xC0, 5}}, exact.sent)
}

func TestSelectByNameSubstring(t *testing.T) {
	decorated := &fakePort{name: "VirMIDI 1-0:Bus 1 20:0"}

	_, _, _, err := newTestClient(t, "Bus 1", decorated)
	require.NoError(t, err)
	assert.True(t, decorated.open)
}

func TestSelectByNameNotFound(t *testing.T) {
	_, logs, _, err := newTestClient(t, "Bus 9", &fakePort{name: "Bus 1"})
	assert.ErrorIs(t, err, contracts.ErrDeviceNotFound)
	assert.Equal(t, 1, logs.FilterMessage("MIDI output device not found").Len())
}

func TestSelectDeviceSwitchesPort(t *testing.T) {
	a, b := &fakePort{name: "A"}, &fakePort{name: "B"}
	client, _, _, err := newTestClient(t, "", a, b)
	require.NoError(t, err)

	require.NoError(t, client.SelectDevice(0))
	require.NoError(t, client.SelectDevice(1))
	assert.False(t, a.open)
	assert.True(t, b.open)
	assert.ErrorIs(t, client.SelectDevice(2), contracts.ErrDeviceNotFound)
}

func TestSendErrors(t *testing.T) {
	port := &fakePort{name: "Bus 1"}
	client, _, _, err := newTestClient(t, "", port)
	require.NoError(t, err)

	assert.ErrorIs(t, client.Send(contracts.MIDIMessage{Command: contracts.NoteOn}), contracts.ErrDeviceNotSelected)
	require.NoError(t, client.SelectDeviceByName("Bus 1"))
	assert.ErrorIs(t, client.Send(contracts.MIDIMessage{Command: 0x10}), contracts.ErrInvalidMIDIMessage)

	port.sendErr = errors.New("broken pipe")
	assert.ErrorIs(t, client.Send(contracts.MIDIMessage{Command: contracts.NoteOn}), port.sendErr)
}

func TestStop(t *testing.T) {
	port := &fakePort{name: "Bus 1", closeErr: errors.New("busy")}
	client, _, closed, err := newTestClient(t, "Bus 1", port)
	require.NoError(t, err)

	err = client.Stop()
	assert.ErrorIs(t, err, port.closeErr)
	assert.True(t, *closed)
	assert.ErrorIs(t, client.Send(contracts.MIDIMessage{Command: contracts.NoteOn}), contracts.ErrDeviceNotSelected)
	assert.NoError(t, client.Stop())
}
