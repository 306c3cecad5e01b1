package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"edgy/internal/config"
)

// overrides are the configuration settings given on the command line. They
// are applied on top of the file, and again on every reload.
type overrides struct {
	configPath string
	devices    []string
	zoneWidth  float64
	threshold  float64
	actions    []string
	grab       bool
}

func (o *overrides) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&o.configPath, "config", "c", "", "configuration file (default: $EDGY_CONFIG or the user config directory)")
	f.StringArrayVarP(&o.devices, "device", "d", nil, "touch device name to use; repeatable (default: every touch screen)")
	f.Float64VarP(&o.zoneWidth, "zone", "o", 0, "width of the edge zone in pixels")
	f.Float64VarP(&o.threshold, "threshold", "t", 0, "distance a touch must move to count as a swipe, in pixels")
	f.StringArrayVarP(&o.actions, "action", "a", nil, "action phrase to add; repeatable")
	f.BoolVar(&o.grab, "grab", false, "grab the devices and pass other touches through a virtual device")
}

func (o *overrides) apply(cmd *cobra.Command, cfg *config.Config) {
	if len(o.devices) > 0 {
		cfg.Devices.Names = append([]string(nil), o.devices...)
	}
	if cmd.Flags().Changed("zone") {
		cfg.Gesture.ZoneWidth = o.zoneWidth
	}
	if cmd.Flags().Changed("threshold") {
		cfg.Gesture.DetectionThreshold = o.threshold
	}
	cfg.Actions = append(cfg.Actions, o.actions...)
	if o.grab {
		cfg.Devices.Grab = true
	}
}

// load reads the configuration file and applies the overrides.
func (o *overrides) load(cmd *cobra.Command) (*config.Loader, *config.Config, error) {
	loader := config.NewLoader(o.configPath)
	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", loader.Path(), err)
	}

	cfg = cfg.Clone()
	o.apply(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return loader, cfg, nil
}
