// Program asentry watches the Sentry impact-risk catalog, diffs each poll
// against the previous one, and announces new or escalated threats on a
// small scrolling display with an audible alert and an acknowledge button.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"asentry/alert"
	"asentry/button"
	"asentry/config"
	"asentry/display"
	"asentry/monitor"
	"asentry/netlink"
	"asentry/schedule"
	"asentry/sentry"
	"asentry/ui"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

const (
	defaultConfigPath = "data/config"
	envConfigPath     = "ASENTRY_CONFIG"

	statsInterval = 15 * time.Minute
)

// Version will be set at build time
var Version = "dev"

const (
	surfaceTView    = "tview"
	surfaceANSI     = "ansi"
	surfaceHeadless = "headless"
)

// Purpose: Report whether stdout is a TTY for UI gating.
// Key aspects: Uses term.IsTerminal on stdout fd.
// Upstream: main UI selection.
// Downstream: term.IsTerminal.
func isStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Purpose: Build the ordered list of config locations to try.
// Key aspects: Explicit flag wins, then the env override, then the default dir.
// Upstream: loadMonitorConfig.
// Downstream: None.
func configCandidates(flagPath string) []string {
	candidates := make([]string, 0, 3)
	if p := strings.TrimSpace(flagPath); p != "" {
		candidates = append(candidates, p)
	}
	if envPath := strings.TrimSpace(os.Getenv(envConfigPath)); envPath != "" {
		candidates = append(candidates, envPath)
	}
	return append(candidates, defaultConfigPath)
}

// Purpose: Load configuration from flag/env/default locations.
// Key aspects: An explicitly named file must exist; when no candidate exists
// the built-in defaults are used.
// Upstream: main startup.
// Downstream: config.Load and os.IsNotExist.
func loadMonitorConfig(flagPath string) (*config.Config, string, error) {
	explicit := strings.TrimSpace(flagPath) != ""
	for i, path := range configCandidates(flagPath) {
		cfg, err := config.Load(path)
		if err != nil {
			if os.IsNotExist(err) && !(explicit && i == 0) {
				continue
			}
			return nil, path, err
		}
		return cfg, cfg.LoadedFrom, nil
	}
	return config.Default(), "built-in defaults", nil
}

// Purpose: Pick the display surface for the configured mode.
// Key aspects: Interactive surfaces need a terminal; anything unknown falls
// back to headless. The second value explains a fallback.
// Upstream: main startup.
// Downstream: None.
func chooseSurface(mode string, tty bool) (string, string) {
	switch mode {
	case surfaceHeadless:
		return surfaceHeadless, ""
	case surfaceTView, surfaceANSI:
		if !tty {
			return surfaceHeadless, fmt.Sprintf("%s renderer requires an interactive console", mode)
		}
		return mode, ""
	default:
		return surfaceHeadless, fmt.Sprintf("UI mode %q not recognized", mode)
	}
}

// Purpose: Construct and start the chosen surface.
// Key aspects: tview owns the keyboard; the ANSI console reads Enter from
// stdin; headless relies on SIGUSR1 for presses.
// Upstream: main startup.
// Downstream: ui constructors.
func startSurface(kind string, cfg *config.Config, presses *button.Queue, onExit func()) ui.Surface {
	switch kind {
	case surfaceTView:
		console := ui.NewConsole(cfg.Display, cfg.UI, presses, onExit)
		console.Run()
		return console
	case surfaceANSI:
		console := ui.NewANSIConsole(cfg.Display, cfg.UI, os.Stdout)
		go func() {
			if err := ui.ReadPresses(os.Stdin, presses); err != nil {
				log.Printf("UI: stdin reader stopped: %v", err)
			}
		}()
		return console
	default:
		return ui.NewHeadless(cfg.Display, log.Default(), os.Stdout)
	}
}

// Purpose: Report a fatal error once a surface owns the terminal.
// Key aspects: Stops the surface first so the terminal is restored, then
// routes the message to stderr and flushes the log file.
// Upstream: main after startSurface.
// Downstream: ui.Surface.Stop, logFanout.
func abortAfterSurface(surface ui.Surface, fanout *logFanout, stderr io.Writer, err error) {
	surface.Stop()
	fanout.SetConsoleSink(stderr, true)
	fmt.Fprintf(fanout, "Display: %v\n", err)
	_ = fanout.Close()
}

// Purpose: Periodically log loop counters.
// Key aspects: Runs on ticker interval until ctx is canceled.
// Upstream: main startup.
// Downstream: monitor.Stats, logFanout file sink.
func logStats(ctx context.Context, interval time.Duration, m *monitor.Monitor, presses *button.Queue, fanout *logFanout) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			polls, alerts, halts := m.Stats()
			line := fmt.Sprintf("Stats: state %s | polls %s | alerts %s | halts %s | bounced presses %s",
				m.State(), humanize.Comma(int64(polls)), humanize.Comma(int64(alerts)),
				humanize.Comma(int64(halts)), humanize.Comma(int64(presses.Bounced())))
			if written := fanout.FileWritten(); written != "" {
				line += " | log " + written
			}
			log.Print(line)
		}
	}
}

// Purpose: Program entrypoint; wires configuration, surface, and poll loop.
// Key aspects: Everything after setup runs inside monitor.Run; signals cancel
// the context or press the button.
// Upstream: OS process start.
// Downstream: monitor.Run and its collaborators.
func main() {
	configPath := pflag.StringP("config", "c", "", "config file or directory (default $"+envConfigPath+" or "+defaultConfigPath+")")
	envFile := pflag.String("env-file", ".env", "dotenv file with network credentials")
	showVersion := pflag.Bool("version", false, "print version and exit")
	pflag.Parse()
	if *showVersion {
		fmt.Printf("asentry %s\n", Version)
		return
	}

	cfg, configSource, err := loadMonitorConfig(*configPath)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	creds, err := config.LoadCredentials(*envFile)
	if err != nil {
		log.Fatalf("Error loading credentials: %v", err)
	}

	fanout, err := setupLogging(cfg.Logging, os.Stdout)
	log.SetFlags(0)
	log.SetOutput(fanout)
	defer fanout.Close()
	if err != nil {
		log.Printf("Logging: file logging disabled: %v", err)
	}
	log.Printf("Loaded configuration from %s", configSource)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	presses := button.NewQueue(time.Duration(cfg.Button.DebounceMS) * time.Millisecond)

	kind, reason := chooseSurface(cfg.UI.Mode, isStdoutTTY())
	if reason != "" {
		log.Printf("UI: %s; using headless", reason)
	}
	surface := startSurface(kind, cfg, presses, cancel)
	surface.WaitReady()
	defer surface.Stop()
	if kind == surfaceHeadless {
		cfg.Print()
	} else {
		// The UI panes carry their own timestamps.
		fanout.SetConsoleSink(surface.SystemWriter(), false)
	}

	log.Printf("asentry v%s starting...", Version)

	text, err := display.NewWrappedText(surface, display.CellFont{CellWidth: cfg.Display.GlyphWidth, CellHeight: cfg.Display.LineHeight})
	if err != nil {
		abortAfterSurface(surface, fanout, os.Stderr, err)
		os.Exit(1)
	}
	waiter := schedule.NewWaiter(text, presses)
	waiter.ShortDwell = time.Duration(cfg.Display.ShortDwellMS) * time.Millisecond
	waiter.LongDwell = time.Duration(cfg.Display.LongDwellMS) * time.Millisecond
	waiter.Tick = time.Duration(cfg.Display.TickMS) * time.Millisecond

	deps := monitor.Deps{
		Fetcher:   sentry.NewClient(cfg.Sentry, log.Default()),
		Connector: netlink.New(cfg.Network, creds, log.Default()),
		LoadAlert: func() monitor.Player {
			return alert.NewPlayer(cfg.Alert, surface, log.Default())
		},
		Text:   text,
		Waiter: waiter,
		Logger: log.Default(),
	}
	if cfg.MQTT.Enabled {
		publisher := alert.NewPublisher(cfg.MQTT, log.Default())
		if err := publisher.Connect(); err != nil {
			log.Printf("MQTT: publisher disabled: %v", err)
		} else {
			defer publisher.Close()
			deps.Publisher = publisher
		}
	}
	m := monitor.New(monitor.OptionsFromConfig(cfg, creds), deps)

	// Set up signal handling: SIGINT/SIGTERM stop, SIGUSR1 presses the button.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGUSR1)
	defer signal.Stop(sigChan)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-sigChan:
				if sig == syscall.SIGUSR1 {
					presses.Press()
					continue
				}
				log.Printf("Received signal: %v", sig)
				cancel()
				return
			}
		}
	}()

	go logStats(ctx, statsInterval, m, presses, fanout)

	log.Printf("Polling %s every %s. Press Ctrl+C to stop.", cfg.Sentry.BaseURL, cfg.PollInterval())
	if err := m.Run(ctx); err != nil && ctx.Err() == nil {
		log.Printf("Monitor: stopped: %v", err)
	}
	log.Println("Shutting down gracefully...")
}
