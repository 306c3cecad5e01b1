package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"edgy/internal/action"
	"edgy/internal/gesture"
)

var (
	checkFlags    overrides
	checkSimulate string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Parse and print the configured actions",
	Long: `Load the configuration, parse every action and print it in canonical form.
With --simulate EDGE,DIRECTION,FINGERS the actions a gesture would trigger are
listed instead.`,
	Example: `  edgy check -a "with 3 fingers to up from bottom run cmd 'rofi -show run'"
  edgy check --simulate bottom,up,3`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	checkFlags.register(checkCmd)
	checkCmd.Flags().StringVar(&checkSimulate, "simulate", "", "list the actions matching EDGE,DIRECTION,FINGERS")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	loader, cfg, err := checkFlags.load(cmd)
	if err != nil {
		return err
	}
	defer loader.Close()
	descriptors, err := action.ParseAll(cfg.Actions)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if checkSimulate == "" {
		for _, d := range descriptors {
			fmt.Fprintln(out, d)
		}
		fmt.Fprintf(out, "%d action(s) ok\n", len(descriptors))
		return nil
	}

	g, err := parseGesture(checkSimulate)
	if err != nil {
		return err
	}
	matches := action.NewRegistry(descriptors).Match(g)
	for _, d := range matches {
		fmt.Fprintln(out, d.Effect)
	}
	if len(matches) == 0 {
		fmt.Fprintln(out, "no action")
	}
	return nil
}

// parseGesture parses EDGE,DIRECTION,FINGERS, for example bottom,up,3.
func parseGesture(s string) (gesture.Gesture, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return gesture.Gesture{}, fmt.Errorf("gesture %q: want EDGE,DIRECTION,FINGERS", s)
	}
	edge, ok := gesture.ParseEdge(strings.TrimSpace(parts[0]))
	if !ok || edge == gesture.EdgeNone {
		return gesture.Gesture{}, fmt.Errorf("gesture %q: unknown edge %q", s, parts[0])
	}
	dir, ok := gesture.ParseDirection(strings.TrimSpace(parts[1]))
	if !ok || dir == gesture.DirectionNone {
		return gesture.Gesture{}, fmt.Errorf("gesture %q: unknown direction %q", s, parts[1])
	}
	fingers, err := strconv.ParseUint(strings.TrimSpace(parts[2]), 10, 32)
	if err != nil || fingers == 0 {
		return gesture.Gesture{}, fmt.Errorf("gesture %q: invalid finger count %q", s, parts[2])
	}
	return gesture.Gesture{Edge: edge, Direction: dir, Fingers: uint32(fingers)}, nil
}
