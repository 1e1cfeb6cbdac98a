// Package browser manages the headless browser sessions the extraction
// engine drives through the results portal.
package browser

import (
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"

	"gradex/internal/config"
)

// Session is one live browser connection. A coordinator owns exactly
// one session at a time and resets it between hard failures.
type Session struct {
	Browser *rod.Browser

	launcher *launcher.Launcher
}

// Driver launches and tears down browser sessions. When ControlURL is
// configured it attaches to an external browser instead of launching
// its own, which is how container deployments run.
type Driver struct {
	cfg config.BrowserConfig
	log *slog.Logger
}

func NewDriver(cfg config.BrowserConfig, log *slog.Logger) *Driver {
	return &Driver{cfg: cfg, log: log}
}

// Initialize starts a fresh browser and returns the connected session.
func (d *Driver) Initialize() (*Session, error) {
	controlURL := d.cfg.ControlURL
	var l *launcher.Launcher

	if controlURL == "" {
		l = launcher.New().
			Headless(d.cfg.Headless).
			Set("no-sandbox").
			Set("disable-dev-shm-usage")
		if d.cfg.Bin != "" {
			l = l.Bin(d.cfg.Bin)
		}

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		controlURL = u
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		if l != nil {
			l.Kill()
		}
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	d.log.Debug("browser session started", "controlURL", controlURL)
	return &Session{Browser: b, launcher: l}, nil
}

// Reset tears the session down and relaunches it in place. Used after
// driver-level errors where the page state is no longer trustworthy.
func (d *Driver) Reset(s *Session) error {
	d.Quit(s)

	fresh, err := d.Initialize()
	if err != nil {
		return err
	}
	*s = *fresh
	return nil
}

// Quit closes the browser and, when we launched it, kills the process.
func (d *Driver) Quit(s *Session) {
	if s.Browser != nil {
		if err := s.Browser.Close(); err != nil {
			d.log.Debug("browser close", "error", err)
		}
	}
	if s.launcher != nil {
		s.launcher.Kill()
	}
}
