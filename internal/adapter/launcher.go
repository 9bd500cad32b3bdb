package adapter

import (
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
)

// Launcher opens links (book pages, WhatsApp contact links) outside the TUI
type Launcher struct {
	command string   // configured browser command, empty for system default
	args    []string // additional arguments before the URL
	logger  *slog.Logger

	// start runs a command without waiting; replaced in tests
	start func(name string, args ...string) error
}

// NewLauncher creates a Launcher. An empty command uses the system default.
func NewLauncher(command string, args []string, logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Launcher{
		command: command,
		args:    args,
		logger:  logger,
		start:   startCommand,
	}
}

func startCommand(name string, args ...string) error {
	if _, err := exec.LookPath(name); err != nil {
		return err
	}
	return exec.Command(name, args...).Start() // Start async, don't wait
}

// Open opens url in the configured browser, falling back to the system default
func (l *Launcher) Open(url string) error {
	if !strings.HasPrefix(url, "https://") && !strings.HasPrefix(url, "http://") {
		return fmt.Errorf("refusing to open non-http url %q", url)
	}

	if l.command != "" {
		args := append(append([]string{}, l.args...), url)
		l.logger.Info("opening with configured browser", "command", l.command, "url", url)
		err := l.start(l.command, args...)
		if err == nil {
			return nil
		}
		l.logger.Warn("configured browser failed, using system default", "command", l.command, "error", err)
	}

	name, args := defaultOpenCommand(runtime.GOOS, url)
	l.logger.Info("opening with system default", "os", runtime.GOOS, "url", url)
	if err := l.start(name, args...); err != nil {
		return fmt.Errorf("open %s: %w", url, err)
	}
	return nil
}

// defaultOpenCommand returns the system handler invocation for goos
func defaultOpenCommand(goos, url string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{url}
	case "windows":
		return "cmd", []string{"/c", "start", "", url}
	default:
		// Linux and other Unix-like systems
		return "xdg-open", []string{url}
	}
}
