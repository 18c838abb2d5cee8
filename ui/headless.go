package ui

import (
	"io"
	"log"
	"strings"

	"asentry/config"
)

// Headless logs each committed frame instead of drawing it. It is used when
// stdout is not a terminal (services, containers).
type Headless struct {
	frame  *frame
	logger *log.Logger
	out    io.Writer
	last   string
}

func NewHeadless(displayCfg config.DisplayConfig, logger *log.Logger, out io.Writer) *Headless {
	if logger == nil {
		logger = log.Default()
	}
	return &Headless{frame: newFrame(displayCfg), logger: logger, out: out}
}

func (h *Headless) Size() (int, int) { return h.frame.Size() }

func (h *Headless) SetRow(row int, text string) { h.frame.SetRow(row, text) }

// Commit logs the visible rows when they differ from the previous commit.
func (h *Headless) Commit() error {
	rows := h.frame.commit()
	for len(rows) > 0 && rows[len(rows)-1] == "" {
		rows = rows[:len(rows)-1]
	}
	text := strings.Join(rows, " | ")
	if text == h.last {
		return nil
	}
	h.last = text
	if text == "" {
		h.logger.Printf("Display: (blank)")
		return nil
	}
	h.logger.Printf("Display: %s", text)
	return nil
}

func (h *Headless) Beep() error {
	h.logger.Printf("Display: bell")
	return nil
}

func (h *Headless) SystemWriter() io.Writer { return h.out }

func (h *Headless) WaitReady() {}

func (h *Headless) Stop() {}
