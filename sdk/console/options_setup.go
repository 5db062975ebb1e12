package console

import (
	"github.com/leandrodaf/uad2midi/internal/logger"
	"github.com/leandrodaf/uad2midi/sdk/contracts"
)

// applyDefaultOptions sets default values for ConsoleOptions if not explicitly provided.
func applyDefaultOptions(opts ...contracts.ConsoleOption) contracts.ConsoleOptions {
	options := &contracts.ConsoleOptions{}
	for _, opt := range opts {
		opt(options)
	}

	if options.Logger == nil {
		options.Logger = logger.NewZapLogger()
		options.Logger.SetLevel(options.LogLevel)
	}
	if options.Hostname == "" {
		options.Hostname = contracts.DefaultConsoleHost
	}
	if options.Port == 0 {
		options.Port = contracts.DefaultConsolePort
	}
	if options.RetryInterval <= 0 {
		options.RetryInterval = contracts.DefaultRetryInterval
	}
	if options.DialTimeout <= 0 {
		options.DialTimeout = contracts.DefaultDialTimeout
	}

	return *options
}
