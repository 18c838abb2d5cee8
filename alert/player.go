// Package alert holds the fire-and-forget alert sinks: the audible clip
// player with its terminal-bell fallback, and the MQTT change publisher.
package alert

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"

	"asentry/config"
)

// ErrClipMissing reports that no alert clip could be loaded. It is never fatal.
var ErrClipMissing = errors.New("alert clip missing")

// Player plays the alert once without blocking the caller.
type Player interface {
	Play()
}

// Beeper is a surface that can ring the terminal bell.
type Beeper interface {
	Beep() error
}

// ClipPlayer hands the clip to an external audio command.
type ClipPlayer struct {
	path    string
	command []string
	logger  *log.Logger
	start   func(*exec.Cmd) error
}

// LoadClip checks the configured clip and player. A missing or unreadable
// clip yields ErrClipMissing.
func LoadClip(cfg config.AlertConfig, logger *log.Logger) (*ClipPlayer, error) {
	if cfg.ClipPath == "" {
		return nil, ErrClipMissing
	}
	info, err := os.Stat(cfg.ClipPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClipMissing, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrClipMissing, cfg.ClipPath)
	}
	if len(cfg.PlayerCommand) == 0 {
		return nil, fmt.Errorf("%w: no player command", ErrClipMissing)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ClipPlayer{
		path:    cfg.ClipPath,
		command: append([]string(nil), cfg.PlayerCommand...),
		logger:  logger,
		start:   startAndReap,
	}, nil
}

// Play starts the player process and returns immediately.
func (p *ClipPlayer) Play() {
	args := append(append([]string(nil), p.command[1:]...), p.path)
	cmd := exec.Command(p.command[0], args...)
	if err := p.start(cmd); err != nil {
		p.logger.Printf("Alert: clip player failed to start: %v", err)
	}
}

func startAndReap(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}

// Bell rings the surface bell.
type Bell struct {
	Beeper Beeper
	Logger *log.Logger
}

func (b Bell) Play() {
	if b.Beeper == nil {
		return
	}
	if err := b.Beeper.Beep(); err != nil && b.Logger != nil {
		b.Logger.Printf("Alert: bell failed: %v", err)
	}
}

// Silent is the player used when neither a clip nor a bell is available.
type Silent struct{}

func (Silent) Play() {}

// NewPlayer loads the clip when possible and otherwise falls back to the
// bell, or to silence when the bell is disabled.
func NewPlayer(cfg config.AlertConfig, beeper Beeper, logger *log.Logger) Player {
	if logger == nil {
		logger = log.Default()
	}
	clip, err := LoadClip(cfg, logger)
	if err == nil {
		logger.Printf("Alert: using clip %s", cfg.ClipPath)
		return clip
	}
	logger.Printf("Alert: %v", err)
	if cfg.Bell && beeper != nil {
		return Bell{Beeper: beeper, Logger: logger}
	}
	return Silent{}
}
