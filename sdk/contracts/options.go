package contracts

// CoreMIDIConfig holds the names the MIDI client registers with the OS MIDI service.
type CoreMIDIConfig struct {
	ClientName string // Name of the MIDI client.
	PortName   string // Name of the output port.
}

// ClientOptions defines the configuration options for the MIDI client.
type ClientOptions struct {
	Logger         Logger          // Logger for logging events and errors.
	LogLevel       LogLevel        // Level of logging to use.
	LogFilePath    string          // File path for logging if file logging is enabled.
	DeviceName     string          // Output device opened at creation; empty leaves the client unselected.
	CoreMIDIConfig *CoreMIDIConfig // Configuration specific to the OS MIDI service.
}

// Option is a function that modifies ClientOptions.
type Option func(*ClientOptions)

// WithLogger sets the logger for the MIDI client.
func WithLogger(l Logger) Option {
	return func(opts *ClientOptions) {
		opts.Logger = l
	}
}

// WithLogLevel sets the logging level for the MIDI client.
func WithLogLevel(level LogLevel) Option {
	return func(opts *ClientOptions) {
		opts.LogLevel = level
	}
}

// WithLogFile directs the client's log output to a file.
func WithLogFile(path string) Option {
	return func(opts *ClientOptions) {
		opts.LogFilePath = path
	}
}

// WithDeviceName selects the output device to open when the client is created.
func WithDeviceName(name string) Option {
	return func(opts *ClientOptions) {
		opts.DeviceName = name
	}
}

// WithCoreMIDIConfig sets the OS MIDI service configuration for the MIDI client.
func WithCoreMIDIConfig(config CoreMIDIConfig) Option {
	return func(opts *ClientOptions) {
		opts.CoreMIDIConfig = &config
	}
}
