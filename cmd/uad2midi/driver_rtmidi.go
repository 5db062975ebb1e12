//go:build !darwin && !windows

package main

// Registers the RtMidi driver used by the gomidi output client.
import _ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
