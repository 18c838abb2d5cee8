// Package netlink implements the CONNECTING stage: it blocks until the
// catalog host is reachable, optionally joining a Wi-Fi network first.
package netlink

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os/exec"
	"strings"
	"time"

	"asentry/config"
	"asentry/internal/ratelimit"
)

const (
	dialTimeout      = 10 * time.Second
	probeLogInterval = time.Minute
)

// Connector blocks until the network is usable.
type Connector interface {
	Connect(ctx context.Context) error
}

// New returns the connector selected by cfg.Mode.
func New(cfg config.NetworkConfig, creds config.Credentials, logger *log.Logger) Connector {
	if logger == nil {
		logger = log.Default()
	}
	probe := &Probe{
		Address: cfg.ProbeAddress,
		Retry:   time.Duration(cfg.RetrySeconds) * time.Second,
		Logger:  logger,
	}
	switch strings.ToLower(cfg.Mode) {
	case "none":
		return None{}
	case "nmcli":
		return &NMCLI{SSID: creds.NetworkID, Secret: creds.NetworkSecret, Probe: probe, Logger: logger}
	default:
		return probe
	}
}

// None treats the network as always available.
type None struct{}

func (None) Connect(context.Context) error { return nil }

// Probe waits for a TCP connection to Address to succeed, retrying forever.
type Probe struct {
	Address string
	Retry   time.Duration
	Logger  *log.Logger

	dial func(ctx context.Context, network, address string) (net.Conn, error)
}

func (p *Probe) Connect(ctx context.Context) error {
	if p.Address == "" {
		return nil
	}
	dial := p.dial
	if dial == nil {
		d := &net.Dialer{Timeout: dialTimeout}
		dial = d.DialContext
	}
	retry := p.Retry
	if retry <= 0 {
		retry = 5 * time.Second
	}
	failures := ratelimit.NewCounter(probeLogInterval)
	for attempt := 1; ; attempt++ {
		conn, err := dial(ctx, "tcp", p.Address)
		if err == nil {
			_ = conn.Close()
			if attempt > 1 {
				p.Logger.Printf("Network: %s reachable after %d attempts", p.Address, attempt)
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if total, ok := failures.Inc(); ok {
			p.Logger.Printf("Network: %s unreachable (%d failures): %v", p.Address, total, err)
		}
		timer := time.NewTimer(retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// NMCLI joins the configured Wi-Fi network through NetworkManager and then
// waits for the probe address.
type NMCLI struct {
	SSID   string
	Secret string
	Probe  *Probe
	Logger *log.Logger

	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

func (n *NMCLI) Connect(ctx context.Context) error {
	run := n.run
	if run == nil {
		run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput()
		}
	}
	n.Logger.Printf("Network: joining %q", n.SSID)
	out, err := run(ctx, "nmcli", "device", "wifi", "connect", n.SSID, "password", n.Secret)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return &config.ConfigError{Field: "network.mode", Reason: "nmcli not installed", Err: err}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("nmcli connect %q: %w: %s", n.SSID, err, strings.TrimSpace(string(out)))
	}
	if n.Probe == nil {
		return nil
	}
	return n.Probe.Connect(ctx)
}
