package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"edgy/internal/bus"
	"edgy/internal/config"
	"edgy/internal/gesture"
)

var (
	busName    string
	statusJSON bool
)

var passthroughCmd = &cobra.Command{
	Use:   "passthrough on|off|toggle|status",
	Short: "Query or change passthrough mode of a running daemon",
	Long: `In passthrough mode the daemon takes every touch, so the touch screen is
effectively disabled for other applications.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off", "toggle", "status"},
	RunE:      runPassthrough,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of a running daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *bus.Client) error {
			st, err := c.Status(ctx)
			if err != nil {
				return err
			}
			if statusJSON {
				return printJSON(cmd.OutOrStdout(), st)
			}
			printStatus(cmd, st)
			return nil
		})
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print gestures recognised by a running daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := bus.Dial(busName)
		if err != nil {
			return err
		}
		defer c.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		return c.WatchGestures(ctx, func(g gesture.Gesture) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %d\n", g.Edge, g.Direction, g.Fingers)
		})
	},
}

func init() {
	for _, cmd := range []*cobra.Command{passthroughCmd, statusCmd, watchCmd} {
		cmd.Flags().StringVar(&busName, "bus-name", config.DefaultBusName, "bus name of the daemon")
		rootCmd.AddCommand(cmd)
	}
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print JSON")
}

func withClient(cmd *cobra.Command, fn func(context.Context, *bus.Client) error) error {
	c, err := bus.Dial(busName)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()
	return fn(ctx, c)
}

func runPassthrough(cmd *cobra.Command, args []string) error {
	return withClient(cmd, func(ctx context.Context, c *bus.Client) error {
		var on bool
		var err error
		switch strings.ToLower(args[0]) {
		case "on":
			on = true
			err = c.SetPassthrough(ctx, true)
		case "off":
			err = c.SetPassthrough(ctx, false)
		case "toggle":
			on, err = c.TogglePassthrough(ctx)
		case "status":
			on, err = c.Passthrough(ctx)
		default:
			return fmt.Errorf("unknown passthrough command %q (want on, off, toggle or status)", args[0])
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), onOff(on))
		return nil
	})
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func printStatus(cmd *cobra.Command, st bus.Status) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "instance:    %s\n", st.Instance)
	fmt.Fprintf(out, "passthrough: %s\n", onOff(st.Passthrough))
	fmt.Fprintf(out, "devices:     %s\n", strings.Join(st.Devices, ", "))
	fmt.Fprintf(out, "grabbed:     %t\n", st.Grabbed)
	fmt.Fprintf(out, "actions:     %d\n", st.Actions)
	if st.Active > 0 {
		fmt.Fprintf(out, "touches:     %d active, edge %s, direction %s, %d decided",
			st.Active, orNone(st.Edge), orNone(st.Direction), st.Fingers)
		if st.Ruined {
			fmt.Fprint(out, ", ruined")
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "gestures:    %d\n", st.Gestures)
	fmt.Fprintf(out, "touches:     %d accepted, %d rejected, %d samples forwarded\n",
		st.Accepted, st.Rejected, st.Forwarded)
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
