package action

import (
	"fmt"
	"io"
	"log/slog"
	"os/exec"
)

// Spawner starts commands on behalf of RunCommand effects.
type Spawner interface {
	Spawn(command string) error
}

// ShellSpawner runs commands through a shell in a new session, detached from
// the daemon. Commands are reaped in the background and never waited on by
// the caller.
type ShellSpawner struct {
	// Shell is the interpreter invoked as `Shell -c command`.
	Shell string

	Log *slog.Logger
}

// NewShellSpawner returns a spawner using /bin/sh.
func NewShellSpawner(log *slog.Logger) *ShellSpawner {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ShellSpawner{Shell: "/bin/sh", Log: log}
}

// Spawn starts command and returns once the process exists.
func (s *ShellSpawner) Spawn(command string) error {
	cmd := exec.Command(s.Shell, "-c", command)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.SysProcAttr = detachedProcAttr()

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("spawn %q: %w", command, err)
	}

	log := s.Log
	if log == nil {
		log = slog.Default()
	}
	pid := cmd.Process.Pid
	log.Debug("command started", "pid", pid, "command", command)

	go func() {
		err := cmd.Wait()
		if err != nil {
			log.Debug("command exited", "pid", pid, "error", err)
		}
	}()
	return nil
}
