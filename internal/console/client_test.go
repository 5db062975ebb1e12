package console

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/leandrodaf/uad2midi/sdk/contracts"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest/observer"
)

const (
	muteRule  = `{"path":"/devices/0/inputs/0/Mute/value","data":"true","midiCommand":144,"midiData1":60,"midiData2":127}`
	mutePath  = "/devices/0/inputs/0/Mute/value"
	waitLimit = 2 * time.Second
)

var errRefused = errors.New("connection refused")

// scriptedDialer fails a fixed number of times and then hands out conns.
type scriptedDialer struct {
	mu       sync.Mutex
	failures int
	conns    []net.Conn
	attempts []time.Time
	dialed   chan struct{}
}

func newScriptedDialer(failures int, conns ...net.Conn) *scriptedDialer {
	return &scriptedDialer{failures: failures, conns: conns, dialed: make(chan struct{}, 16)}
}

func (d *scriptedDialer) DialContext(_ context.Context, _, _ string) (net.Conn, error) {
	d.mu.Lock()
	defer func() {
		d.mu.Unlock()
		d.dialed <- struct{}{}
	}()

	d.attempts = append(d.attempts, time.Now())
	if d.failures > 0 || len(d.conns) == 0 {
		d.failures--
		return nil, errRefused
	}
	conn := d.conns[0]
	d.conns = d.conns[1:]
	return conn, nil
}

func (d *scriptedDialer) Attempts() []time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]time.Time(nil), d.attempts...)
}

func newTestClient(t *testing.T, sink contracts.MIDISender, opts contracts.ConsoleOptions) (*Client, *observer.ObservedLogs) {
	t.Helper()
	log, logs := newTestLogger(t)
	opts.Logger = log
	if opts.Hostname == "" {
		opts.Hostname = contracts.DefaultConsoleHost
		opts.Port = contracts.DefaultConsolePort
	}
	c, err := NewConsoleClient(&opts, sink)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Stop() })
	return c, logs
}

// readFrames forwards every frame read from conn until it closes.
func readFrames(conn net.Conn) <-chan string {
	frames := make(chan string, 64)
	go func() {
		defer close(frames)
		r := NewFrameReader(conn)
		for f := range r.Frames() {
			frames <- f
		}
	}()
	return frames
}

func expectFrame(t *testing.T, frames <-chan string, want string) {
	t.Helper()
	select {
	case got, ok := <-frames:
		require.True(t, ok, "connection closed while waiting for %q", want)
		assert.Equal(t, want, got)
	case <-time.After(waitLimit):
		t.Fatalf("timed out waiting for %q", want)
	}
}

func writeFrame(t *testing.T, conn net.Conn, frame string) {
	t.Helper()
	_, err := conn.Write(append([]byte(frame), Separator))
	require.NoError(t, err)
}

func expectMIDI(t *testing.T, sink *recordingSender, want contracts.MIDIMessage) {
	t.Helper()
	select {
	case got := <-sink.ch:
		assert.Equal(t, want, got)
	case <-time.After(waitLimit):
		t.Fatalf("timed out waiting for %s", want)
	}
}

func TestNewConsoleClientRequiresSink(t *testing.T) {
	log, _ := newTestLogger(t)
	_, err := NewConsoleClient(&contracts.ConsoleOptions{Logger: log}, nil)
	assert.ErrorIs(t, err, ErrNoSink)
}

func TestNewConsoleClientSkipsInvalidRules(t *testing.T) {
	c, logs := newTestClient(t, newRecordingSender(), contracts.ConsoleOptions{
		Rules: []string{muteRule, `{"path":"/devices/0/inputs/0/Solo/value"}`, `not json`},
	})

	assert.Equal(t, 1, c.Rules().Len())
	assert.Equal(t, 2, logs.FilterMessage("Skipping invalid rule").Len())
	assert.Equal(t, StateDisconnected, c.State())
}

func TestClientRetriesUntilConnected(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	interval := 30 * time.Millisecond
	dialer := newScriptedDialer(2, client)
	sink := newRecordingSender()
	c, logs := newTestClient(t, sink, contracts.ConsoleOptions{
		Rules:         []string{muteRule},
		RetryInterval: interval,
	})
	c.SetDialer(dialer)

	frames := readFrames(server)
	c.Start(context.Background())

	expectFrame(t, frames, "subscribe "+mutePath)
	expectFrame(t, frames, "get /devices")
	require.Eventually(t, func() bool { return c.State() == StateConnected }, waitLimit, time.Millisecond)

	writeFrame(t, server, `{"path":"`+mutePath+`","data":true}`)
	expectMIDI(t, sink, contracts.MIDIMessage{Command: contracts.NoteOn, Data1: 60, Data2: 127})

	require.NoError(t, c.Stop())
	assert.Equal(t, StateDisconnected, c.State())

	// Discovery ran exactly once: nothing else was written before close.
	select {
	case f, ok := <-frames:
		assert.False(t, ok, "unexpected frame %q", f)
	case <-time.After(waitLimit):
		t.Fatal("connection was not closed by Stop")
	}

	attempts := dialer.Attempts()
	require.Len(t, attempts, 3)
	for i := 1; i < len(attempts); i++ {
		assert.GreaterOrEqual(t, attempts[i].Sub(attempts[i-1]), interval)
	}
	assert.Equal(t, 2, logs.FilterMessage("Could not connect to console, retrying").Len())
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Metrics().ConnectAttempts.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Metrics().ConnectAttempts.WithLabelValues("success")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.Metrics().Connected))
}

func TestClientStopDuringRetryWait(t *testing.T) {
	dialer := newScriptedDialer(1000)
	c, logs := newTestClient(t, newRecordingSender(), contracts.ConsoleOptions{
		RetryInterval: time.Hour,
	})
	c.SetDialer(dialer)

	c.Start(context.Background())
	select {
	case <-dialer.dialed:
	case <-time.After(waitLimit):
		t.Fatal("client never dialed")
	}

	stopped := make(chan error, 1)
	go func() { stopped <- c.Stop() }()
	select {
	case err := <-stopped:
		require.NoError(t, err)
	case <-time.After(waitLimit):
		t.Fatal("Stop did not interrupt the retry wait")
	}

	assert.Len(t, dialer.Attempts(), 1)
	assert.Equal(t, 1, logs.FilterMessage("Console client stopped").Len())
}

func TestClientRunReturnsOnCancel(t *testing.T) {
	c, _ := newTestClient(t, newRecordingSender(), contracts.ConsoleOptions{RetryInterval: time.Hour})
	c.SetDialer(newScriptedDialer(1000))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(waitLimit):
		t.Fatal("Run did not return after cancel")
	}
}

func TestClientStopReleasesBlockedRead(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	c, logs := newTestClient(t, newRecordingSender(), contracts.ConsoleOptions{RetryInterval: time.Hour})
	c.SetDialer(newScriptedDialer(0, client))

	frames := readFrames(server)
	c.Start(context.Background())
	expectFrame(t, frames, "get /devices")
	require.Eventually(t, func() bool { return c.State() == StateConnected }, waitLimit, time.Millisecond)

	require.NoError(t, c.Stop())
	assert.Equal(t, StateDisconnected, c.State())
	assert.Equal(t, 1, logs.FilterMessage("Disconnected from console").Len())
}

func TestClientStopIsIdempotent(t *testing.T) {
	c, logs := newTestClient(t, newRecordingSender(), contracts.ConsoleOptions{RetryInterval: time.Hour})
	c.SetDialer(newScriptedDialer(1000))

	require.NoError(t, c.Stop())
	c.Start(context.Background())
	c.Start(context.Background())
	require.NoError(t, c.Stop())
	require.NoError(t, c.Stop())

	assert.Equal(t, 1, logs.FilterMessage("Console client already started").Len())
}

// fakeConsole answers discovery requests on a loopback listener.
func fakeConsole(t *testing.T, conn net.Conn, frames <-chan string) {
	t.Helper()
	expectFrame(t, frames, "subscribe "+mutePath)
	expectFrame(t, frames, "get /devices")
	writeFrame(t, conn, `{"path":"/devices","data":{"children":{"0":{}}}}`)
	expectFrame(t, frames, "get /devices/0")
	writeFrame(t, conn, `{"path":"/devices/0","data":{"properties":{"DeviceName":{"type":"string","value":"Apollo"}}}}`)
	expectFrame(t, frames, "get /devices/0/inputs")
	writeFrame(t, conn, `{"path":"/devices/0/inputs","data":{"children":{"0":{}}}}`)
	expectFrame(t, frames, "get /devices/0/inputs/0")
	expectFrame(t, frames, "get /devices/0/inputs/0/sends")
}

func TestClientAgainstLoopbackConsole(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	sink := newRecordingSender()
	c, logs := newTestClient(t, sink, contracts.ConsoleOptions{
		Hostname:      host,
		Port:          port,
		Rules:         []string{muteRule},
		RetryInterval: 20 * time.Millisecond,
		DialTimeout:   time.Second,
	})
	c.Start(context.Background())

	conn, err := ln.Accept()
	require.NoError(t, err)
	frames := readFrames(conn)
	fakeConsole(t, conn, frames)

	writeFrame(t, conn, `{"path":"`+mutePath+`","data":false}`)
	writeFrame(t, conn, `{"path":"`+mutePath+`",`)
	writeFrame(t, conn, `{"path":"`+mutePath+`","data":true}`)
	expectMIDI(t, sink, contracts.MIDIMessage{Command: contracts.NoteOn, Data1: 60, Data2: 127})
	require.NoError(t, conn.Close())

	// A new connection starts discovery from scratch.
	conn, err = ln.Accept()
	require.NoError(t, err)
	defer conn.Close()
	fakeConsole(t, conn, readFrames(conn))

	require.NoError(t, c.Stop())

	sink.mu.Lock()
	assert.Len(t, sink.sent, 1)
	sink.mu.Unlock()
	assert.Equal(t, 1, logs.FilterMessage("Received invalid JSON response from console").Len())
	assert.GreaterOrEqual(t, logs.FilterMessage("Connected to console").Len(), 2)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Metrics().FramesDropped.WithLabelValues("malformed")))
}
