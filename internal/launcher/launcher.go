// Package launcher starts and stops desktop programs on behalf of the
// assistant: the code editor and the default web browser.
package launcher

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"os/exec"
	"runtime"
)

// Processes is the part of the OS the adapters need.
type Processes interface {
	// Spawn starts path detached from ctx and does not wait for it.
	Spawn(ctx context.Context, path string, args ...string) error
	// TerminateByName kills every process with the given image name.
	TerminateByName(ctx context.Context, name string) error
}

type Launcher struct {
	goos string
}

func New() *Launcher { return &Launcher{goos: runtime.GOOS} }

func (l *Launcher) Spawn(_ context.Context, path string, args ...string) error {
	cmd := exec.Command(path, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", path, err)
	}

	log.Debug("Spawned", "path", path, "pid", cmd.Process.Pid)
	go func() {
		_ = cmd.Wait()
	}()

	return nil
}

func (l *Launcher) TerminateByName(ctx context.Context, name string) error {
	var cmd *exec.Cmd
	if l.goos == "windows" {
		cmd = exec.CommandContext(ctx, "taskkill", "/F", "/IM", name)
	} else {
		cmd = exec.CommandContext(ctx, "pkill", "-x", name)
	}

	out, err := cmd.CombinedOutput()
	if noneRunning(l.goos, err) {
		log.Debug("Nothing to terminate", "name", name)
		return nil
	}
	if err != nil {
		return fmt.Errorf("terminate %s: %w (%s)", name, err, out)
	}
	return nil
}

// noneRunning reports pkill's "no process matched" exit status 1.
func noneRunning(goos string, err error) bool {
	var exitErr *exec.ExitError
	return goos != "windows" && errors.As(err, &exitErr) && exitErr.ExitCode() == 1
}
