package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"

	"edgy/internal/action"
	"edgy/internal/bus"
	"edgy/internal/config"
	"edgy/internal/daemon"
	"edgy/internal/gesture"
	"edgy/internal/logging"
)

var (
	runFlags  overrides
	runDetach bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the gesture daemon",
	Long: `Run the gesture daemon in the foreground, or in the background with
--detach. The configuration file is watched and reloaded when it changes.`,
	Args: cobra.NoArgs,
	RunE: runDaemon,
}

func init() {
	runFlags.register(runCmd)
	runCmd.Flags().BoolVar(&runDetach, "detach", false, "run in the background")
	rootCmd.AddCommand(runCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	loader, cfg, err := runFlags.load(cmd)
	if err != nil {
		return err
	}
	defer loader.Close()

	// bad actions are fatal before any device is touched
	descriptors, err := action.ParseAll(cfg.Actions)
	if err != nil {
		return err
	}

	if runDetach {
		child, err := detach()
		if err != nil {
			return err
		}
		if child != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "edgy started in the background (pid %d)\n", child.Pid)
			return nil
		}
		defer releaseDetach()
	}

	logger, err := newLogger(cfg.Logging, isDetachedChild())
	if err != nil {
		return err
	}
	defer logger.Close()
	logging.SetDefault(logger)
	log := logger.Logger

	if len(descriptors) == 0 {
		log.Warn("no actions configured", "config", loader.Path())
	}

	var svc *bus.Service
	d := daemon.New(cfg, descriptors,
		daemon.WithLogger(logger.WithComponent("daemon").Logger),
		daemon.OnGesture(func(g gesture.Gesture) {
			if svc == nil {
				return
			}
			if err := svc.EmitGesture(g); err != nil {
				log.Warn("emit gesture signal", "error", err)
			}
		}),
	)

	if cfg.Bus.Enabled {
		svc, err = serveBus(d, cfg.Bus.Name, logger.WithComponent("bus").Logger)
		if err != nil {
			if errors.Is(err, bus.ErrNameTaken) {
				return fmt.Errorf("another edgy daemon is running: %w", err)
			}
			log.Warn("control bus unavailable", "error", err)
		} else {
			defer svc.Close()
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watchConfig(ctx, cmd, loader, d, log)

	return d.Run(ctx)
}

func serveBus(d *daemon.Daemon, name string, log *slog.Logger) (*bus.Service, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect to session bus: %w", err)
	}
	svc, err := bus.Serve(conn, d, name, bus.WithLogger(log), bus.OwnConn())
	if err != nil {
		conn.Close()
		return nil, err
	}
	log.Info("control bus ready", "name", name, "path", bus.ObjectPath)
	return svc, nil
}

// watchConfig reloads the configuration file into d when it changes.
func watchConfig(ctx context.Context, cmd *cobra.Command, loader *config.Loader, d *daemon.Daemon, log *slog.Logger) {
	if _, err := os.Stat(loader.Path()); err != nil {
		log.Debug("config file not watched", "path", loader.Path(), "error", err)
		return
	}

	loader.OnChange(func(cfg *config.Config) {
		cfg = cfg.Clone()
		runFlags.apply(cmd, cfg)
		if err := d.ApplyConfig(ctx, cfg); err != nil {
			log.Error("reload config", "error", err)
		}
	})
	if err := loader.Watch(); err != nil {
		log.Warn("config hot reload disabled", "error", err)
		return
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case err := <-loader.Errors():
				log.Error("config change ignored", "path", loader.Path(), "error", err)
			}
		}
	}()
}
