package ui

import (
	"bytes"
	"sync"
)

const lineWriterMaxBytes = 16 * 1024

// lineWriter splits log output into lines for a pane. A partial line is held
// until its newline arrives; the held buffer is bounded.
type lineWriter struct {
	append func(string)

	mu           sync.Mutex
	buf          []byte
	droppedBytes uint64
}

func (w *lineWriter) Write(p []byte) (int, error) {
	if w == nil || w.append == nil {
		return len(p), nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, p...)
	data := w.buf
	for {
		idx := bytes.IndexByte(data, '\n')
		if idx == -1 {
			break
		}
		w.append(string(bytes.TrimRight(data[:idx], "\r")))
		data = data[idx+1:]
	}
	if excess := len(data) - lineWriterMaxBytes; excess > 0 {
		data = data[excess:]
		w.droppedBytes += uint64(excess)
	}
	w.buf = append(w.buf[:0], data...)
	return len(p), nil
}
