package alert

import (
	"errors"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"testing"

	"asentry/config"
)

type countingBeeper struct {
	beeps int
	err   error
}

func (b *countingBeeper) Beep() error {
	b.beeps++
	return b.err
}

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func writeClip(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "alert.wav")
	if err := os.WriteFile(path, []byte("RIFF"), 0o644); err != nil {
		t.Fatalf("write clip: %v", err)
	}
	return path
}

func TestLoadClipMissing(t *testing.T) {
	cases := []config.AlertConfig{
		{},
		{ClipPath: filepath.Join(t.TempDir(), "absent.wav"), PlayerCommand: []string{"aplay"}},
		{ClipPath: t.TempDir(), PlayerCommand: []string{"aplay"}},
		{ClipPath: writeClip(t)},
	}
	for i, cfg := range cases {
		if _, err := LoadClip(cfg, quietLogger()); !errors.Is(err, ErrClipMissing) {
			t.Fatalf("case %d: expected ErrClipMissing, got %v", i, err)
		}
	}
}

func TestClipPlayerStartsCommand(t *testing.T) {
	clip := writeClip(t)
	p, err := LoadClip(config.AlertConfig{ClipPath: clip, PlayerCommand: []string{"aplay", "-q"}}, quietLogger())
	if err != nil {
		t.Fatalf("LoadClip: %v", err)
	}
	var got []string
	p.start = func(cmd *exec.Cmd) error {
		got = cmd.Args
		return nil
	}
	p.Play()
	if want := []string{"aplay", "-q", clip}; !reflect.DeepEqual(got, want) {
		t.Fatalf("args = %q, want %q", got, want)
	}
}

func TestClipPlayerStartFailureIsLogged(t *testing.T) {
	p, err := LoadClip(config.AlertConfig{ClipPath: writeClip(t), PlayerCommand: []string{"aplay"}}, quietLogger())
	if err != nil {
		t.Fatalf("LoadClip: %v", err)
	}
	p.start = func(*exec.Cmd) error { return errors.New("no such file") }
	p.Play()
}

func TestNewPlayerFallback(t *testing.T) {
	beeper := &countingBeeper{}
	p := NewPlayer(config.AlertConfig{Bell: true}, beeper, quietLogger())
	if _, ok := p.(Bell); !ok {
		t.Fatalf("expected bell fallback, got %T", p)
	}
	p.Play()
	if beeper.beeps != 1 {
		t.Fatalf("expected one beep, got %d", beeper.beeps)
	}

	if _, ok := NewPlayer(config.AlertConfig{}, beeper, quietLogger()).(Silent); !ok {
		t.Fatalf("expected silent player with bell disabled")
	}

	clip := NewPlayer(config.AlertConfig{ClipPath: writeClip(t), PlayerCommand: []string{"aplay"}, Bell: true}, beeper, quietLogger())
	if _, ok := clip.(*ClipPlayer); !ok {
		t.Fatalf("expected clip player, got %T", clip)
	}
}

func TestBellErrorTolerated(t *testing.T) {
	b := Bell{Beeper: &countingBeeper{err: errors.New("no tty")}, Logger: quietLogger()}
	b.Play()
	Bell{}.Play()
}
