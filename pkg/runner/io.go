package runner

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"
	"time"
)

// inputResult carries one line (or one failure) from the pump goroutine
// to the loop.
type inputResult struct {
	text string
	err  error
}

// linePump decouples blocking reads from the wait loop. A plain
// bufio read cannot be interrupted, so a goroutine reads lines and the
// loop selects on the channel against its deadline.
type linePump struct {
	reader    io.Reader
	inputChan chan inputResult
	startOnce sync.Once
}

func newLinePump(r io.Reader) *linePump {
	return &linePump{
		reader:    r,
		inputChan: make(chan inputResult, 1),
	}
}

// start launches the reader goroutine on first use.
func (p *linePump) start() {
	p.startOnce.Do(func() {
		go p.pump()
	})
}

func (p *linePump) pump() {
	reader := bufio.NewReader(p.reader)
	for {
		text, err := reader.ReadString('\n')
		if err != nil {
			if text != "" {
				// Deliver the final unterminated line before closing.
				p.inputChan <- inputResult{text: text}
			}
			if err == io.EOF {
				close(p.inputChan)
				return
			}
			p.inputChan <- inputResult{err: err}
			// Avoid a hot loop on a persistently broken reader.
			time.Sleep(50 * time.Millisecond)
			continue
		}
		p.inputChan <- inputResult{text: text}
	}
}

// Read returns the next line without its trailing newline. When ctx
// expires while a line is already pending, the line wins: the runner
// relies on that to give external input priority over a simultaneous
// timeout.
func (p *linePump) Read(ctx context.Context) (string, error) {
	p.start()
	select {
	case res, ok := <-p.inputChan:
		return takeLine(res, ok)
	case <-ctx.Done():
		select {
		case res, ok := <-p.inputChan:
			return takeLine(res, ok)
		default:
			return "", ctx.Err()
		}
	}
}

// Feed injects a line (or an error) as if it had been typed. Test
// seam; it bypasses the reader goroutine entirely.
func (p *linePump) Feed(text string, err error) {
	p.startOnce.Do(func() {})
	p.inputChan <- inputResult{text: text, err: err}
}

func takeLine(res inputResult, ok bool) (string, error) {
	if !ok {
		return "", io.EOF
	}
	if res.err != nil {
		return "", res.err
	}
	return strings.TrimRight(res.text, "\r\n"), nil
}
