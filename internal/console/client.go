package console

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leandrodaf/uad2midi/sdk/contracts"
)

// ErrNoSink is returned when a client is created without a MIDI sink.
var ErrNoSink = errors.New("console client requires a MIDI sink")

// State represents the connection state.
type State int32

const (
	// StateDisconnected indicates no open console connection.
	StateDisconnected State = iota
	// StateConnected indicates an open connection with discovery running or done.
	StateConnected
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnected:
		return "CONNECTED"
	default:
		return "UNKNOWN"
	}
}

// Dialer opens the TCP connection to the console. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Client keeps a connection to the console, discovers its devices and
// dispatches value changes to the rule table until stopped.
type Client struct {
	address       string
	rules         *RuleTable
	sink          contracts.MIDISender
	dialer        Dialer
	retryInterval time.Duration
	dialTimeout   time.Duration
	log           contracts.Logger
	metrics       *Metrics

	state atomic.Int32

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewConsoleClient creates a client from options. Rules are parsed once here;
// invalid rules are logged and skipped.
func NewConsoleClient(options *contracts.ConsoleOptions, sink contracts.MIDISender) (*Client, error) {
	if sink == nil {
		return nil, ErrNoSink
	}
	rules := LoadRuleTable(options.Dialect, options.Rules, options.Logger)
	retry := options.RetryInterval
	if retry <= 0 {
		retry = contracts.DefaultRetryInterval
	}
	return &Client{
		address:       net.JoinHostPort(options.Hostname, strconv.Itoa(options.Port)),
		rules:         rules,
		sink:          sink,
		dialer:        &net.Dialer{},
		retryInterval: retry,
		dialTimeout:   options.DialTimeout,
		log:           options.Logger,
		metrics:       NewMetrics(),
	}, nil
}

// SetDialer replaces the dialer used for new connections.
func (c *Client) SetDialer(d Dialer) { c.dialer = d }

// Metrics returns the client's collectors for registration.
func (c *Client) Metrics() *Metrics { return c.metrics }

// Rules returns the loaded rule table.
func (c *Client) Rules() *RuleTable { return c.rules }

// State returns the current connection state.
func (c *Client) State() State { return State(c.state.Load()) }

func (c *Client) setState(s State) {
	c.state.Store(int32(s))
	if s == StateConnected {
		c.metrics.Connected.Set(1)
	} else {
		c.metrics.Connected.Set(0)
	}
}

// Run connects, serves and reconnects after a fixed wait until ctx is
// cancelled. Connection failures are never fatal.
func (c *Client) Run(ctx context.Context) error {
	c.log.Info("Starting console client",
		c.log.Field().String("address", c.address),
		c.log.Field().String("dialect", c.rules.Dialect().String()),
		c.log.Field().Int("rules", c.rules.Len()))

	for ctx.Err() == nil {
		if conn, ok := c.connect(ctx); ok {
			c.serve(ctx, conn)
		}

		wait := time.NewTimer(c.retryInterval)
		select {
		case <-ctx.Done():
			wait.Stop()
		case <-wait.C:
		}
	}
	c.log.Info("Console client stopped")
	return nil
}

func (c *Client) connect(ctx context.Context) (net.Conn, bool) {
	dialCtx := ctx
	if c.dialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.dialTimeout)
		defer cancel()
	}

	conn, err := c.dialer.DialContext(dialCtx, "tcp", c.address)
	if err != nil {
		c.metrics.ConnectAttempts.WithLabelValues("failure").Inc()
		if ctx.Err() == nil {
			c.log.Info("Could not connect to console, retrying",
				c.log.Field().String("address", c.address),
				c.log.Field().Duration("retry_in", c.retryInterval))
			c.log.Debug("Failed opening connection to console", c.log.Field().Error("error", err))
		}
		return nil, false
	}

	c.metrics.ConnectAttempts.WithLabelValues("success").Inc()
	c.log.Info("Connected to console", c.log.Field().String("remote", conn.RemoteAddr().String()))
	return conn, true
}

// serve owns conn until the stream ends. Cancelling ctx closes conn, which
// releases a blocked read.
func (c *Client) serve(ctx context.Context, conn net.Conn) {
	s := newSession(conn, c.rules, c.sink, c.log, c.metrics)
	c.setState(StateConnected)
	release := context.AfterFunc(ctx, func() { _ = conn.Close() })

	err := s.serve()

	release()
	if cerr := conn.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
		s.log.Error("Failed closing connection to the console", s.log.Field().Error("error", cerr))
	}
	c.setState(StateDisconnected)

	switch {
	case ctx.Err() != nil:
		s.log.Info("Disconnected from console")
	case err != nil:
		s.log.Error("Error while reading from console", s.log.Field().Error("error", err))
	default:
		s.log.Info("Console closed the connection")
	}
}

// Start runs the client in a background goroutine. Calling Start on a running
// client does nothing.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done != nil {
		c.log.Warn("Console client already started")
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancel, c.done = cancel, done

	go func() {
		defer close(done)
		_ = c.Run(ctx)
	}()
}

// Stop cancels a started client and waits for its goroutine to exit. It is a
// no-op on a client that is not running.
func (c *Client) Stop() error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}
