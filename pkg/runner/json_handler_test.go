package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []jsonEvent {
	t.Helper()
	var events []jsonEvent
	dec := json.NewDecoder(buf)
	for {
		var ev jsonEvent
		if err := dec.Decode(&ev); err == io.EOF {
			return events
		} else if err != nil {
			t.Fatalf("decode: %v", err)
		}
		events = append(events, ev)
	}
}

func TestJSONHandler_EmitsTypedEvents(t *testing.T) {
	var buf bytes.Buffer
	h := NewJSONHandler(strings.NewReader(""), &buf)

	ctx := context.Background()
	require.NoError(t, h.ShowState(ctx, StateView{
		Machine: "traffic",
		State:   "Green",
		Label:   "Green",
		Color:   "#00ff00",
	}))
	require.NoError(t, h.Notice(ctx, "--- Broke the lights"))
	require.NoError(t, h.SystemOutput(ctx, "definition reloaded"))

	events := decodeLines(t, &buf)
	require.Len(t, events, 3)

	assert.Equal(t, jsonEvent{
		Type:    "state",
		Machine: "traffic",
		State:   "Green",
		Label:   "Green",
		Color:   "#00ff00",
	}, events[0])
	assert.Equal(t, jsonEvent{Type: "notice", Text: "--- Broke the lights"}, events[1])
	assert.Equal(t, jsonEvent{Type: "system", Text: "definition reloaded"}, events[2])
}

func TestJSONHandler_InputShapes(t *testing.T) {
	cases := []struct {
		name string
		line string
		want string
	}{
		{"structured", `{"type":"input","text":"b"}` + "\n", "b"},
		{"json string", `"b"` + "\n", "b"},
		{"bare line", "b\n", "b"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewJSONHandler(strings.NewReader(tc.line), io.Discard)
			got, err := h.Input(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestJSONHandler_InputEOF(t *testing.T) {
	h := NewJSONHandler(strings.NewReader(""), io.Discard)
	_, err := h.Input(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}
