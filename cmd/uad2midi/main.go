// Command uad2midi bridges a UAD console to a MIDI output device.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
