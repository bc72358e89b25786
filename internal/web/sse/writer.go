// Package sse provides Server-Sent Events utilities for streaming
// responses.
package sse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrStreamingUnsupported is returned when the response writer cannot
// flush.
var ErrStreamingUnsupported = errors.New("response writer does not support streaming")

// Writer frames events over an http.ResponseWriter.
type Writer struct {
	w       io.Writer
	flusher http.Flusher
}

// NewWriter creates an SSE writer and sets the stream headers.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	// Disable nginx buffering so events reach the client immediately.
	w.Header().Set("X-Accel-Buffering", "no")

	return &Writer{w: w, flusher: flusher}, nil
}

// WriteEvent sends one named event with a JSON payload. It returns the
// context error if the client is already gone.
func (w *Writer) WriteEvent(ctx context.Context, event string, payload any) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("stream closed: %w", ctx.Err())
	default:
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", event, err)
	}
	return w.writeFrame(event, string(data))
}

// WriteError sends an error event with a machine code and a
// human-readable message.
func (w *Writer) WriteError(code, message string) error {
	data, err := json.Marshal(map[string]string{"code": code, "message": message})
	if err != nil {
		return fmt.Errorf("marshal error payload: %w", err)
	}
	return w.writeFrame("error", string(data))
}

// writeFrame emits one event in SSE wire format. Each line of the data
// gets its own "data: " prefix so multi-line payloads survive framing.
func (w *Writer) writeFrame(event, data string) error {
	if _, err := fmt.Fprintf(w.w, "event: %s\n", event); err != nil {
		return fmt.Errorf("write event name: %w", err)
	}
	for _, line := range strings.Split(data, "\n") {
		if _, err := fmt.Fprintf(w.w, "data: %s\n", line); err != nil {
			return fmt.Errorf("write data line: %w", err)
		}
	}
	if _, err := io.WriteString(w.w, "\n"); err != nil {
		return fmt.Errorf("write terminator: %w", err)
	}
	w.flusher.Flush()
	return nil
}
