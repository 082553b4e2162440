// Package launch starts the external programs the interactive session hands
// work to: the text editor and the web browser.
package launch

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// FallbackEditor is used when no editor is configured, none is named in the
// environment and none of the known editors is on PATH.
const FallbackEditor = "nano"

// ResolveEditor picks the editor command.
// Priority: configured → $VISUAL → $EDITOR → nano → vi → FallbackEditor.
func ResolveEditor(configured string, getenv func(string) string) string {
	if strings.TrimSpace(configured) != "" {
		return configured
	}
	for _, env := range []string{"VISUAL", "EDITOR"} {
		if e := strings.TrimSpace(getenv(env)); e != "" {
			return e
		}
	}
	for _, candidate := range []string{"nano", "vi"} {
		if _, err := exec.LookPath(candidate); err == nil {
			return candidate
		}
	}
	return FallbackEditor
}

// System launches real processes.
type System struct {
	// Editor is the editor command line, e.g. "code --wait".
	Editor string
}

// NewSystem resolves the editor against the process environment.
func NewSystem(configuredEditor string) *System {
	return &System{Editor: ResolveEditor(configuredEditor, os.Getenv)}
}

// EditCommand returns the command that opens path in the editor. Extra words
// in the editor command line are passed as leading arguments.
func (s *System) EditCommand(path string) *exec.Cmd {
	fields := strings.Fields(s.Editor)
	if len(fields) == 0 {
		fields = []string{FallbackEditor}
	}
	args := append(fields[1:], path)
	return exec.Command(fields[0], args...)
}

// OpenURL opens url in the default browser without waiting for it.
func (s *System) OpenURL(url string) error {
	name, args := OpenerCommand(runtime.GOOS, url)
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch: open %s: %w", url, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// OpenerCommand returns the platform URL opener for goos.
func OpenerCommand(goos, url string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{url}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}
	default:
		return "xdg-open", []string{url}
	}
}
