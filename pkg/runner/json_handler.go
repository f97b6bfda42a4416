package runner

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
)

// jsonEvent is one NDJSON output record.
type jsonEvent struct {
	Type    string `json:"type"`
	Machine string `json:"machine,omitempty"`
	State   string `json:"state,omitempty"`
	Label   string `json:"label,omitempty"`
	Color   string `json:"color,omitempty"`
	Text    string `json:"text,omitempty"`
}

// jsonInput is the structured input form. Bare lines and JSON strings
// are accepted too, so a supervisor can stay as simple as `echo b`.
type jsonInput struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// JSONHandler speaks newline-delimited JSON on both sides of the loop,
// for hosts that supervise the runner programmatically. The zero value
// reads stdin and writes stdout.
type JSONHandler struct {
	Reader io.Reader
	Writer io.Writer

	enc      *json.Encoder
	encOnce  sync.Once
	pump     *linePump
	pumpOnce sync.Once
}

// NewJSONHandler returns a handler reading from r and writing to w.
// Nil arguments fall back to stdin and stdout.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{Reader: r, Writer: w}
}

func (h *JSONHandler) encoder() *json.Encoder {
	h.encOnce.Do(func() {
		w := h.Writer
		if w == nil {
			w = os.Stdout
		}
		h.enc = json.NewEncoder(w)
	})
	return h.enc
}

func (h *JSONHandler) initPump() *linePump {
	h.pumpOnce.Do(func() {
		r := h.Reader
		if r == nil {
			r = os.Stdin
		}
		h.pump = newLinePump(r)
	})
	return h.pump
}

func (h *JSONHandler) ShowState(ctx context.Context, view StateView) error {
	return h.encoder().Encode(jsonEvent{
		Type:    "state",
		Machine: view.Machine,
		State:   view.State,
		Label:   view.Label,
		Color:   view.Color,
	})
}

func (h *JSONHandler) Notice(ctx context.Context, msg string) error {
	return h.encoder().Encode(jsonEvent{Type: "notice", Text: msg})
}

// Input reads one line and accepts three shapes: a structured
// {"type":"input","text":"b"} record, a JSON string, or a bare line.
func (h *JSONHandler) Input(ctx context.Context) (string, error) {
	line, err := h.initPump().Read(ctx)
	if err != nil {
		return "", err
	}

	var structured jsonInput
	if json.Unmarshal([]byte(line), &structured) == nil && structured.Text != "" {
		return structured.Text, nil
	}
	var plain string
	if json.Unmarshal([]byte(line), &plain) == nil {
		return plain, nil
	}
	return line, nil
}

func (h *JSONHandler) SystemOutput(ctx context.Context, msg string) error {
	return h.encoder().Encode(jsonEvent{Type: "system", Text: msg})
}

// FeedInput injects an input line for tests, bypassing the reader.
func (h *JSONHandler) FeedInput(text string, err error) {
	h.initPump().Feed(text, err)
}
