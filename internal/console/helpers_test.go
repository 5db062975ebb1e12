package console

import (
	"sync"
	"testing"

	"github.com/leandrodaf/uad2midi/internal/logger"
	"github.com/leandrodaf/uad2midi/sdk/contracts"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestLogger(t *testing.T) (contracts.Logger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	return logger.NewZapLoggerWithCore(core), logs
}

// mockSender is a testify mock of the MIDI sink.
type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(msg contracts.MIDIMessage) error {
	return m.Called(msg).Error(0)
}

// recordingSender collects sent messages and signals each one.
type recordingSender struct {
	mu   sync.Mutex
	sent []contracts.MIDIMessage
	ch   chan contracts.MIDIMessage
}

func newRecordingSender() *recordingSender {
	return &recordingSender{ch: make(chan contracts.MIDIMessage, 16)}
}

func (r *recordingSender) Send(msg contracts.MIDIMessage) error {
	r.mu.Lock()
	r.sent = append(r.sent, msg)
	r.mu.Unlock()
	r.ch <- msg
	return nil
}

// recorder is a commander that remembers every command.
type recorder struct {
	commands []string
	err      error
}

func (r *recorder) command(cmd string) error {
	r.commands = append(r.commands, cmd)
	return r.err
}

func mustRoute(t *testing.T, dialect contracts.Dialect, frame string) Route {
	t.Helper()
	route, err := NewRouter(dialect).Route(frame)
	require.NoError(t, err)
	return route
}

func mustRules(t *testing.T, dialect contracts.Dialect, raw ...string) *RuleTable {
	t.Helper()
	rules := make([]Rule, 0, len(raw))
	for _, r := range raw {
		rule, err := ParseRule(dialect, r)
		require.NoError(t, err, r)
		rules = append(rules, rule)
	}
	return NewRuleTable(dialect, rules...)
}
