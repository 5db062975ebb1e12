package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/leandrodaf/uad2midi/internal/logger"
	"github.com/leandrodaf/uad2midi/sdk/console"
	"github.com/leandrodaf/uad2midi/sdk/contracts"
	"github.com/leandrodaf/uad2midi/sdk/midi"
)

func main() {
	log := logger.NewZapLogger()

	client, err := midi.NewMIDIClient(
		contracts.WithLogger(log),
		contracts.WithLogLevel(contracts.InfoLevel),
	)
	if err != nil {
		log.Error("Failed to initialize MIDI client", log.Field().Error("error", err))
		return
	}
	defer client.Stop()

	devices, err := client.ListDevices()
	if err != nil || len(devices) == 0 {
		log.Error("No MIDI devices found or error listing devices", log.Field().Error("error", err))
		return
	}
	fmt.Println("Available MIDI devices:", devices)

	if err = client.SelectDevice(0); err != nil {
		log.Error("Failed to select MIDI device", log.Field().Error("error", err))
		return
	}

	bridge, err := console.NewConsoleClient(client,
		contracts.WithConsoleLogger(log),
		contracts.WithRules(
			`{"path":"/devices/0/inputs/0/Mute/value","data":"true","midiCommand":176,"midiData1":20,"midiData2":127}`,
			`{"path":"/devices/0/inputs/0/Mute/value","data":"false","midiCommand":176,"midiData1":20,"midiData2":0}`,
		),
	)
	if err != nil {
		log.Error("Failed to create console client", log.Field().Error("error", err))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	bridge.Start(ctx)
	defer bridge.Stop()

	fmt.Println("Forwarding console mute changes to MIDI... Press Ctrl+C to exit.")
	<-ctx.Done()
}
