package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
)

// Styler renders a state label for display. The CLI injects a color-aware
// implementation; a nil Styler prints labels as-is.
type Styler func(label, color string) string

// TextHandler is the plain-text IOHandler: one "State:" line per
// iteration, notices as bare lines, tokens read from an input stream.
// The zero value reads stdin and writes stdout.
type TextHandler struct {
	Reader io.Reader
	Writer io.Writer
	// Styler decorates the state label when the state declares a color.
	Styler Styler

	pump     *linePump
	pumpOnce sync.Once
}

// NewTextHandler returns a handler wired to stdin/stdout.
func NewTextHandler() *TextHandler {
	return &TextHandler{
		Reader: os.Stdin,
		Writer: os.Stdout,
	}
}

func (h *TextHandler) initPump() *linePump {
	h.pumpOnce.Do(func() {
		r := h.Reader
		if r == nil {
			r = os.Stdin
		}
		h.pump = newLinePump(r)
	})
	return h.pump
}

func (h *TextHandler) out() io.Writer {
	if h.Writer != nil {
		return h.Writer
	}
	return os.Stdout
}

func (h *TextHandler) ShowState(ctx context.Context, view StateView) error {
	label := view.Label
	if h.Styler != nil {
		label = h.Styler(view.Label, view.Color)
	}
	_, err := fmt.Fprintf(h.out(), "State: %s\n", label)
	return err
}

func (h *TextHandler) Notice(ctx context.Context, msg string) error {
	_, err := fmt.Fprintln(h.out(), msg)
	return err
}

func (h *TextHandler) Input(ctx context.Context) (string, error) {
	return h.initPump().Read(ctx)
}

func (h *TextHandler) SystemOutput(ctx context.Context, msg string) error {
	_, err := fmt.Fprintf(h.out(), ">>> %s\n", msg)
	return err
}

// FeedInput injects an input line for tests, bypassing the reader.
func (h *TextHandler) FeedInput(text string, err error) {
	h.initPump().Feed(text, err)
}
