package console

import (
	consoleclient "github.com/leandrodaf/uad2midi/internal/console"
	"github.com/leandrodaf/uad2midi/sdk/contracts"
)

// NewConsoleClient creates a console client that emits MIDI messages to sink.
// It applies default options and loads the rules once.
//
// sink contracts.MIDISender: Destination of MIDI actions.
// opts ...contracts.ConsoleOption: A variadic list of option functions to customize the client configuration.
//
// Returns:
//   - contracts.ConsoleClient: An instance of the console client.
//   - error: An error, if any occurred during the creation of the client.
func NewConsoleClient(sink contracts.MIDISender, opts ...contracts.ConsoleOption) (contracts.ConsoleClient, error) {
	options := applyDefaultOptions(opts...)

	client, err := consoleclient.NewConsoleClient(&options, sink)
	if err != nil {
		return nil, err
	}

	return client, nil
}
