package launcher

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"sagar/internal/assistant"
)

// Editor opens and closes Visual Studio Code.
type Editor struct {
	configured string
	procs      Processes
	goos       string

	lookPath func(string) (string, error)
	exists   func(string) bool
}

func NewEditor(configured string, procs Processes) *Editor {
	return &Editor{
		configured: configured,
		procs:      procs,
		goos:       runtime.GOOS,
		lookPath:   exec.LookPath,
		exists: func(p string) bool {
			st, err := os.Stat(p)
			return err == nil && !st.IsDir()
		},
	}
}

// Resolve picks the configured path, then `code` on PATH, then the usual
// install locations of the platform.
func (e *Editor) Resolve() (string, error) {
	if e.configured != "" && e.exists(e.configured) {
		return e.configured, nil
	}
	if p, err := e.lookPath("code"); err == nil {
		return p, nil
	}
	for _, p := range defaultEditorPaths(e.goos) {
		if e.exists(p) {
			return p, nil
		}
	}

	return "", fmt.Errorf("%w: visual studio code", assistant.ErrNotInstalled)
}

func (e *Editor) Open(ctx context.Context) error {
	path, err := e.Resolve()
	if err != nil {
		return err
	}
	return e.procs.Spawn(ctx, path)
}

func (e *Editor) Close(ctx context.Context) error {
	return e.procs.TerminateByName(ctx, editorImage(e.goos))
}

func editorImage(goos string) string {
	switch goos {
	case "windows":
		return "Code.exe"
	case "darwin":
		return "Electron"
	default:
		return "code"
	}
}

func defaultEditorPaths(goos string) []string {
	switch goos {
	case "windows":
		local := os.Getenv("LOCALAPPDATA")
		if local == "" {
			return []string{`C:\Program Files\Microsoft VS Code\Code.exe`}
		}
		return []string{
			filepath.Join(local, "Programs", "Microsoft VS Code", "Code.exe"),
			`C:\Program Files\Microsoft VS Code\Code.exe`,
		}
	case "darwin":
		return []string{"/Applications/Visual Studio Code.app/Contents/Resources/app/bin/code"}
	default:
		return []string{"/usr/share/code/code", "/usr/bin/code", "/snap/bin/code"}
	}
}
