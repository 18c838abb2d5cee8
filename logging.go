package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"asentry/config"
	"asentry/internal/ratelimit"

	"github.com/dustin/go-humanize"
)

const (
	logTimestampLayout = "2006/01/02 15:04:05"
	logFileDateLayout  = "2006-01-02"
	logFilePrefix      = "asentry-"
	logFileSuffix      = ".log"
	maxLogBufferBytes  = 16 * 1024
	logErrorInterval   = time.Minute
)

// lineSink receives complete log lines without their newline.
type lineSink interface {
	WriteLine(line string, now time.Time)
	Close() error
}

// ioLineSink feeds the console: stdout before a surface starts, then the
// surface's system pane, and stderr when startup aborts.
type ioLineSink struct {
	w             io.Writer
	withTimestamp bool
}

func (s *ioLineSink) WriteLine(line string, now time.Time) {
	if s == nil || s.w == nil {
		return
	}
	if s.withTimestamp {
		line = formatLogTimestamp(now) + " " + line
	}
	_, _ = io.WriteString(s.w, line+"\n")
}

func (s *ioLineSink) Close() error { return nil }

// dailyFileSink keeps one asentry-YYYY-MM-DD.log per UTC day under dir and
// prunes days outside the retention window whenever a new day opens.
type dailyFileSink struct {
	dir  string
	keep int

	mu       sync.Mutex
	day      string
	file     *os.File
	written  uint64
	lines    uint64
	failures *ratelimit.Counter
}

// Purpose: Open the log directory for the monitor's daily files.
// Key aspects: Creates dir and prunes stale days up front; the first file is
// opened lazily by WriteLine.
// Upstream: setupLogging.
// Downstream: os.MkdirAll, pruneLogs.
func newDailyFileSink(dir string, retentionDays int) (*dailyFileSink, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, &config.ConfigError{Field: "logging.dir", Reason: "empty"}
	}
	if retentionDays <= 0 {
		retentionDays = 7
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory %q: %w", dir, err)
	}
	s := &dailyFileSink{dir: dir, keep: retentionDays, failures: ratelimit.NewCounter(logErrorInterval)}
	if _, err := pruneLogs(dir, time.Now(), retentionDays); err != nil {
		s.report(fmt.Errorf("prune %s: %w", dir, err))
	}
	return s, nil
}

func (s *dailyFileSink) WriteLine(line string, now time.Time) {
	if s == nil {
		return
	}
	now = now.UTC()
	s.mu.Lock()
	defer s.mu.Unlock()

	if day := now.Format(logFileDateLayout); s.file == nil || day != s.day {
		if err := s.openLocked(day, now); err != nil {
			s.report(err)
			return
		}
	}
	n, err := s.file.WriteString(formatLogTimestamp(now) + " " + line + "\n")
	s.written += uint64(n)
	s.lines++
	if err != nil {
		s.report(fmt.Errorf("write %s: %w", s.file.Name(), err))
	}
}

// openLocked switches to the file for day, pruning old days on each switch.
func (s *dailyFileSink) openLocked(day string, now time.Time) error {
	if s.file != nil {
		_ = s.file.Close()
		s.file = nil
	}
	path := filepath.Join(s.dir, logFileNameForDate(now))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	s.file = file
	s.day = day
	if _, err := pruneLogs(s.dir, now, s.keep); err != nil {
		s.report(fmt.Errorf("prune %s: %w", s.dir, err))
	}
	return nil
}

// report writes sink failures to stderr; the log itself may be what failed.
func (s *dailyFileSink) report(err error) {
	if total, ok := s.failures.Inc(); ok {
		fmt.Fprintf(os.Stderr, "Logging: %v (%d failures)\n", err, total)
	}
}

func (s *dailyFileSink) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.day = ""
	return err
}

// Written summarizes file output since start, e.g. "4.1 kB in 52 lines".
func (s *dailyFileSink) Written() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("%s in %s lines", humanize.Bytes(s.written), humanize.Comma(int64(s.lines)))
}

// logFanout is the log package's output. It cuts writes into lines and hands
// each line to the console sink and the daily file.
type logFanout struct {
	mu      sync.Mutex
	pending []byte
	console lineSink
	file    lineSink
	now     func() time.Time
}

func newLogFanout(console lineSink, file lineSink) *logFanout {
	return &logFanout{console: console, file: file, now: time.Now}
}

// Purpose: Build the process log writer from the logging section.
// Key aspects: The console gets timestamps until a surface takes over; a file
// sink failure still returns a usable fanout.
// Upstream: main, before the surface starts.
// Downstream: newDailyFileSink.
func setupLogging(cfg config.LoggingConfig, console io.Writer) (*logFanout, error) {
	fanout := newLogFanout(&ioLineSink{w: console, withTimestamp: true}, nil)
	if !cfg.Enabled {
		return fanout, nil
	}
	sink, err := newDailyFileSink(cfg.Dir, cfg.RetentionDays)
	if err != nil {
		return fanout, err
	}
	fanout.SetFileSink(sink)
	return fanout, nil
}

// Purpose: Redirect console lines.
// Key aspects: main points it at the tview or ANSI system pane (panes stamp
// their own time) and abortAfterSurface points it back at stderr. A nil
// writer silences the console.
// Upstream: main, abortAfterSurface.
// Downstream: None.
func (f *logFanout) SetConsoleSink(writer io.Writer, withTimestamp bool) {
	var sink lineSink
	if writer != nil {
		sink = &ioLineSink{w: writer, withTimestamp: withTimestamp}
	}
	f.mu.Lock()
	f.console = sink
	f.mu.Unlock()
}

func (f *logFanout) SetFileSink(sink lineSink) {
	f.mu.Lock()
	f.file = sink
	f.mu.Unlock()
}

// FileWritten feeds the periodic stats line; "" when file logging is off.
func (f *logFanout) FileWritten() string {
	if f == nil {
		return ""
	}
	f.mu.Lock()
	file := f.file
	f.mu.Unlock()
	if sink, ok := file.(*dailyFileSink); ok {
		return sink.Written()
	}
	return ""
}

func (f *logFanout) Write(p []byte) (int, error) {
	if f == nil {
		return len(p), nil
	}
	f.mu.Lock()
	var lines []string
	lines, f.pending = splitLogLines(append(f.pending, p...))
	console, file := f.console, f.file
	f.mu.Unlock()

	// Sinks run outside the lock: a UI pane may itself log.
	if len(lines) == 0 {
		return len(p), nil
	}
	now := f.now().UTC()
	for _, line := range lines {
		if console != nil {
			console.WriteLine(line, now)
		}
		if file != nil {
			file.WriteLine(line, now)
		}
	}
	return len(p), nil
}

// splitLogLines returns the complete lines in buf and the unterminated rest.
// A rest longer than maxLogBufferBytes is flushed as a line of its own.
func splitLogLines(buf []byte) ([]string, []byte) {
	var lines []string
	for {
		idx := bytes.IndexByte(buf, '\n')
		if idx < 0 {
			break
		}
		lines = append(lines, string(bytes.TrimRight(buf[:idx], "\r")))
		buf = buf[idx+1:]
	}
	if len(buf) > maxLogBufferBytes {
		if rest := string(bytes.TrimRight(buf, "\r")); rest != "" {
			lines = append(lines, rest)
		}
		buf = buf[:0]
	}
	return lines, append([]byte(nil), buf...)
}

// Close releases the file sink. The console sink never owns its writer.
func (f *logFanout) Close() error {
	if f == nil {
		return nil
	}
	f.mu.Lock()
	file := f.file
	f.mu.Unlock()
	if file == nil {
		return nil
	}
	return file.Close()
}

func formatLogTimestamp(now time.Time) string {
	return now.UTC().Format(logTimestampLayout)
}

func logFileNameForDate(now time.Time) string {
	return logFilePrefix + now.UTC().Format(logFileDateLayout) + logFileSuffix
}

func parseLogFileDate(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, logFilePrefix) || !strings.HasSuffix(name, logFileSuffix) {
		return time.Time{}, false
	}
	day := strings.TrimSuffix(strings.TrimPrefix(name, logFilePrefix), logFileSuffix)
	parsed, err := time.ParseInLocation(logFileDateLayout, day, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

// pruneLogs removes asentry log files dated before the last keep days
// (today included) and returns the removed names, oldest first. Other files
// in dir are left alone.
func pruneLogs(dir string, now time.Time, keep int) ([]string, error) {
	if keep <= 0 {
		return nil, nil
	}
	matches, err := filepath.Glob(filepath.Join(dir, logFilePrefix+"*"+logFileSuffix))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	y, m, d := now.UTC().Date()
	cutoff := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(keep - 1))

	var removed []string
	for _, path := range matches {
		day, ok := parseLogFileDate(filepath.Base(path))
		if !ok || !day.Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			return removed, err
		}
		removed = append(removed, filepath.Base(path))
	}
	return removed, nil
}
