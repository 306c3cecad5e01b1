package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"edgy/internal/touch"
)

var devicesJSON bool

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List multitouch devices",
	Long: `List the multitouch input devices of this machine. Touch screens are used
by default; pass a name to "edgy run -d" to pick a specific device.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		devices, err := touch.ListDevices()
		if err != nil {
			return err
		}

		type entry struct {
			Name        string `json:"name"`
			Path        string `json:"path"`
			TouchScreen bool   `json:"touch_screen"`
		}
		entries := make([]entry, 0, len(devices))
		for _, d := range devices {
			entries = append(entries, entry{Name: d.Name, Path: d.EventPath(), TouchScreen: d.Direct()})
		}

		if devicesJSON {
			return printJSON(cmd.OutOrStdout(), entries)
		}
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no multitouch devices found")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PATH\tKIND\tNAME")
		for _, e := range entries {
			kind := "touchpad"
			if e.TouchScreen {
				kind = "screen"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", e.Path, kind, e.Name)
		}
		return w.Flush()
	},
}

func init() {
	devicesCmd.Flags().BoolVar(&devicesJSON, "json", false, "print JSON")
	rootCmd.AddCommand(devicesCmd)
}
