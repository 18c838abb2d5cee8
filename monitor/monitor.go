// Package monitor runs the poll control loop: fetch the catalog, diff it
// against the baseline, alert or idle, wait, and halt for an operator on any
// error.
package monitor

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"asentry/config"
	"asentry/display"
	"asentry/schedule"
	"asentry/threat"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// Fetcher obtains one snapshot of the remote catalog.
type Fetcher interface {
	FetchSnapshot(ctx context.Context) (threat.Snapshot, error)
}

// Connector blocks until the network is usable.
type Connector interface {
	Connect(ctx context.Context) error
}

// Player plays the alert once without blocking.
type Player interface {
	Play()
}

// Publisher forwards changes to an external sink without blocking.
type Publisher interface {
	Publish(runID string, detectedAt time.Time, changes []threat.Change)
}

// Options are the loop's tunables.
type Options struct {
	PollInterval time.Duration
	IdleClear    time.Duration
	StartupMode  string
	ShowUptime   bool
	NetworkID    string
}

// OptionsFromConfig maps the monitor section and credentials to Options.
func OptionsFromConfig(cfg *config.Config, creds config.Credentials) Options {
	return Options{
		PollInterval: cfg.PollInterval(),
		IdleClear:    cfg.IdleClear(),
		StartupMode:  cfg.Monitor.StartupMode,
		ShowUptime:   cfg.Monitor.ShowUptime,
		NetworkID:    creds.NetworkID,
	}
}

// Deps are the loop's collaborators. LoadAlert and Publisher may be nil.
type Deps struct {
	Fetcher   Fetcher
	Connector Connector
	LoadAlert func() Player
	Publisher Publisher
	Text      *display.WrappedText
	Waiter    *schedule.Waiter
	Logger    *log.Logger
}

// Monitor owns the baseline and drives the display. All of its work happens on
// the goroutine that calls Run; State may be read from anywhere.
type Monitor struct {
	opts Options
	deps Deps
	log  *log.Logger
	now  func() time.Time

	started time.Time // reset at every STARTUP
	runID   string
	player  Player
	state   atomic.Int32

	polls  atomic.Uint64
	alerts atomic.Uint64
	halts  atomic.Uint64
}

func New(opts Options, deps Deps) *Monitor {
	logger := deps.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Monitor{opts: opts, deps: deps, log: logger, now: time.Now}
}

// State returns the current stage.
func (m *Monitor) State() State {
	return State(m.state.Load())
}

// RunID identifies the current pass since the last STARTUP.
func (m *Monitor) RunID() string { return m.runID }

// Stats returns poll, alert and halt counts since process start.
func (m *Monitor) Stats() (polls, alerts, halts uint64) {
	return m.polls.Load(), m.alerts.Load(), m.halts.Load()
}

func (m *Monitor) setState(s State) {
	if State(m.state.Swap(int32(s))) != s {
		m.log.Printf("Monitor: state %s", s)
	}
}

// Run loops until ctx is canceled. Every error ends the current pass in
// HALTED; after the operator presses the button the loop restarts from
// STARTUP with a fresh baseline.
func (m *Monitor) Run(ctx context.Context) error {
	for {
		err := m.pass(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := m.halt(ctx, err); err != nil {
			return err
		}
	}
}

// pass runs STARTUP through the endless poll cycle; it only returns an error.
func (m *Monitor) pass(ctx context.Context) error {
	m.setState(StateStartup)
	m.started = m.now()
	m.runID = uuid.NewString()
	m.log.Printf("Monitor: starting run %s (startup mode %s)", m.runID, m.opts.StartupMode)
	if err := m.deps.Text.Show("asentry"); err != nil {
		return err
	}
	m.player = nil
	if m.deps.LoadAlert != nil {
		m.player = m.deps.LoadAlert()
	}

	m.setState(StateConnecting)
	if err := m.deps.Text.Show("Connecting to " + m.opts.NetworkID); err != nil {
		return err
	}
	if err := m.deps.Connector.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	var baseline threat.Snapshot
	if m.opts.StartupMode == config.StartupPrime {
		primed, err := m.fetch(ctx)
		if err != nil {
			return err
		}
		baseline = primed
		m.log.Printf("Monitor: baseline primed with %s records", humanize.Comma(int64(baseline.Len())))
	}

	for {
		latest, err := m.fetch(ctx)
		if err != nil {
			return err
		}

		m.setState(StateDiff)
		changes := threat.Diff(baseline, latest)
		baseline = latest

		if len(changes) > 0 {
			err = m.alert(ctx, changes)
		} else {
			err = m.idle(ctx)
		}
		if err != nil {
			return err
		}
	}
}

func (m *Monitor) fetch(ctx context.Context) (threat.Snapshot, error) {
	m.setState(StatePoll)
	if err := m.deps.Text.Show("Fetching data"); err != nil {
		return threat.Snapshot{}, err
	}
	snap, err := m.deps.Fetcher.FetchSnapshot(ctx)
	if err != nil {
		return threat.Snapshot{}, err
	}
	m.polls.Add(1)
	return snap, nil
}

func (m *Monitor) alert(ctx context.Context, changes []threat.Change) error {
	m.setState(StateAlert)
	m.alerts.Add(1)
	for _, c := range changes {
		m.log.Printf("Monitor: %s", threat.Summary(c))
	}

	text := m.deps.Text
	text.SetText("")
	for _, piece := range threat.AlertPieces(changes) {
		text.AddText(piece)
	}
	if err := text.Refresh(); err != nil {
		return err
	}
	if m.player != nil {
		m.player.Play()
	}
	if m.deps.Publisher != nil {
		m.deps.Publisher.Publish(m.runID, m.now(), changes)
	}

	m.setState(StateWait)
	res, err := m.deps.Waiter.Wait(ctx, schedule.Options{})
	if err != nil {
		return err
	}
	m.log.Printf("Monitor: alert acknowledged (%s)", res)
	return nil
}

func (m *Monitor) idle(ctx context.Context) error {
	m.setState(StateIdle)
	msg := "No new threats"
	if m.opts.ShowUptime {
		msg += "\n\n" + m.uptime()
	}
	if err := m.deps.Text.Show(msg); err != nil {
		return err
	}

	m.setState(StateWait)
	_, err := m.deps.Waiter.Wait(ctx, schedule.Options{
		MaxWait:          m.opts.PollInterval,
		ScreenClearAfter: m.opts.IdleClear,
	})
	return err
}

func (m *Monitor) uptime() string {
	return FormatUptime(m.now().Sub(m.started))
}

// FormatUptime renders d as "Uptime: " followed by the non-zero years, weeks,
// days, hours and minutes and always the seconds, e.g.
// "Uptime: 2 days 3 hrs 0 secs". A year is 365 days.
func FormatUptime(d time.Duration) string {
	sec := int64(d / time.Second)
	if sec < 0 {
		sec = 0
	}
	mins := sec / 60
	sec -= mins * 60
	hrs := mins / 60
	mins -= hrs * 60
	days := hrs / 24
	hrs -= days * 24
	yrs := days / 365
	days -= yrs * 365
	wks := days / 7
	days -= wks * 7

	var b strings.Builder
	b.WriteString("Uptime: ")
	for _, part := range []struct {
		n    int64
		unit string
	}{{yrs, "yrs"}, {wks, "wks"}, {days, "days"}, {hrs, "hrs"}, {mins, "mins"}} {
		if part.n > 0 {
			fmt.Fprintf(&b, "%d %s ", part.n, part.unit)
		}
	}
	fmt.Fprintf(&b, "%d secs", sec)
	return b.String()
}

// halt shows a diagnostic dump and parks until the button is pressed.
func (m *Monitor) halt(ctx context.Context, cause error) error {
	m.setState(StateHalted)
	m.halts.Add(1)
	class := ErrorClass(cause)
	m.log.Printf("Monitor: halted on %s error: %v", class, cause)

	msg := fmt.Sprintf("ERROR (%s)\n%v\n\nPress button to restart", class, cause)
	if err := m.deps.Text.Show(msg); err != nil {
		m.log.Printf("Monitor: cannot show diagnostic: %v", err)
	}
	if _, err := m.deps.Waiter.Wait(ctx, schedule.Options{}); err != nil {
		return err
	}
	m.log.Printf("Monitor: restart acknowledged")
	return nil
}
