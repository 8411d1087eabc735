package telemetry

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/gwillem/roverplan/pkg/navigate"
)

// Writer is an observer that encodes every tick as one JSON line. The first
// write error stops further output and is kept for Err.
type Writer struct {
	mu  sync.Mutex
	enc *json.Encoder
	err error
	n   int
}

// NewWriter writes frames to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: json.NewEncoder(w)}
}

func (w *Writer) OnTick(t navigate.Tick) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return
	}
	if err := w.enc.Encode(NewFrame(t)); err != nil {
		w.err = err
		return
	}
	w.n++
}

// Err returns the first write error.
func (w *Writer) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Written returns the number of frames written.
func (w *Writer) Written() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.n
}
