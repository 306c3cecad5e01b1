package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	godaemon "github.com/sevlyar/go-daemon"

	"edgy/internal/config"
)

var detachCtx *godaemon.Context

// isDetachedChild reports whether this process is the background copy
// started by detach.
func isDetachedChild() bool {
	return godaemon.WasReborn()
}

// detach starts a background copy of this process. The parent gets the
// child process; in the child detach returns nil once the pid file is held.
func detach() (*os.Process, error) {
	dir := config.RuntimeDir()
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create runtime directory: %w", err)
	}

	detachCtx = &godaemon.Context{
		PidFileName: filepath.Join(dir, "edgy.pid"),
		PidFilePerm: 0600,
		WorkDir:     "/",
		Umask:       027,
		Args:        os.Args,
	}
	child, err := detachCtx.Reborn()
	if err != nil {
		if errors.Is(err, godaemon.ErrWouldBlock) {
			return nil, fmt.Errorf("edgy is already running in the background (%s)", detachCtx.PidFileName)
		}
		return nil, fmt.Errorf("detach: %w", err)
	}
	return child, nil
}

// releaseDetach removes the pid file of a background daemon.
func releaseDetach() {
	if detachCtx != nil && isDetachedChild() {
		detachCtx.Release()
	}
}
