package contracts

import (
	"context"
	"fmt"
	"time"
)

// Dialect selects how rules address console values.
type Dialect int

const (
	// DialectAbsolute rules name full console paths and are subscribed once per connection.
	DialectAbsolute Dialect = iota
	// DialectScoped rules name a property of a device and are subscribed as devices are discovered.
	DialectScoped
)

func (d Dialect) String() string {
	switch d {
	case DialectAbsolute:
		return "absolute"
	case DialectScoped:
		return "scoped"
	default:
		return fmt.Sprintf("Dialect(%d)", int(d))
	}
}

// ParseDialect maps a dialect name to a Dialect.
func ParseDialect(name string) (Dialect, error) {
	switch name {
	case "absolute", "path", "":
		return DialectAbsolute, nil
	case "scoped", "property", "trigger":
		return DialectScoped, nil
	default:
		return 0, fmt.Errorf("unknown console dialect %q", name)
	}
}

// Console connection defaults.
const (
	DefaultConsoleHost   = "localhost"
	DefaultConsolePort   = 4710
	DefaultRetryInterval = 5 * time.Second
	DefaultDialTimeout   = 5 * time.Second
)

// ConsoleOptions defines the configuration options for the console client.
type ConsoleOptions struct {
	Logger        Logger        // Logger for connection and dispatch events.
	LogLevel      LogLevel      // Level of logging to use.
	Hostname      string        // Console host.
	Port          int           // Console TCP port.
	Dialect       Dialect       // Rule addressing dialect.
	Rules         []string      // JSON-encoded rules, in evaluation order.
	RetryInterval time.Duration // Fixed wait between connection attempts.
	DialTimeout   time.Duration // Upper bound for a single connection attempt.
}

// ConsoleOption is a function that modifies ConsoleOptions.
type ConsoleOption func(*ConsoleOptions)

// WithConsoleLogger sets the logger for the console client.
func WithConsoleLogger(l Logger) ConsoleOption {
	return func(opts *ConsoleOptions) {
		opts.Logger = l
	}
}

// WithConsoleLogLevel sets the logging level for the console client.
func WithConsoleLogLevel(level LogLevel) ConsoleOption {
	return func(opts *ConsoleOptions) {
		opts.LogLevel = level
	}
}

// WithConsoleAddress sets the console host and port.
func WithConsoleAddress(hostname string, port int) ConsoleOption {
	return func(opts *ConsoleOptions) {
		opts.Hostname = hostname
		opts.Port = port
	}
}

// WithDialect sets the rule addressing dialect.
func WithDialect(d Dialect) ConsoleOption {
	return func(opts *ConsoleOptions) {
		opts.Dialect = d
	}
}

// WithRules sets the JSON-encoded rules.
func WithRules(rules ...string) ConsoleOption {
	return func(opts *ConsoleOptions) {
		opts.Rules = append(opts.Rules, rules...)
	}
}

// WithRetryInterval sets the wait between connection attempts.
func WithRetryInterval(d time.Duration) ConsoleOption {
	return func(opts *ConsoleOptions) {
		opts.RetryInterval = d
	}
}

// ConsoleClient bridges console value changes to MIDI messages.
type ConsoleClient interface {
	// Run connects and reconnects until ctx is cancelled.
	Run(ctx context.Context) error
	// Start runs the client in a background goroutine.
	Start(ctx context.Context)
	// Stop cancels a started client and waits for it to exit.
	Stop() error
}
