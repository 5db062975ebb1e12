package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/leandrodaf/uad2midi/sdk/midi"
	"github.com/spf13/cobra"
)

func newDevicesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List MIDI output devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			devices, err := midi.ListOutputDevices(a.cfg.MIDIOptions(a.log, false)...)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tENTITY\tMANUFACTURER")
			for i, d := range devices {
				marker := ""
				if d.Name == a.cfg.MIDI.DeviceName {
					marker = " *"
				}
				fmt.Fprintf(w, "%d\t%s%s\t%s\t%s\n", i, d.Name, marker, d.EntityName, d.Manufacturer)
			}
			return w.Flush()
		},
	}
}
