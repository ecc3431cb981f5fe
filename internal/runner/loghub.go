package runner

import (
	"bytes"
	"sync"
)

// LogHub is an io.Writer that keeps the most recent log lines and fans new
// lines out to live subscribers. Slow subscribers drop lines rather than
// block the logger.
type LogHub struct {
	mu      sync.Mutex
	lines   []string
	max     int
	partial []byte
	subs    map[chan string]struct{}
	closed  bool
}

// NewLogHub keeps up to max lines of history.
func NewLogHub(max int) *LogHub {
	if max < 1 {
		max = 500
	}
	return &LogHub{
		max:  max,
		subs: make(map[chan string]struct{}),
	}
}

// Write splits p into lines. A trailing fragment without newline is held
// until the next write completes it.
func (h *LogHub) Write(p []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	data := append(h.partial, p...)
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		line := string(bytes.TrimRight(data[:i], "\r"))
		data = data[i+1:]
		if line != "" {
			h.publish(line)
		}
	}
	h.partial = append([]byte(nil), data...)
	return len(p), nil
}

func (h *LogHub) publish(line string) {
	h.lines = append(h.lines, line)
	if over := len(h.lines) - h.max; over > 0 {
		h.lines = append([]string(nil), h.lines[over:]...)
	}
	for ch := range h.subs {
		select {
		case ch <- line:
		default:
		}
	}
}

// Recent returns up to n of the newest lines, oldest first. n <= 0 returns
// the whole history.
func (h *LogHub) Recent(n int) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n <= 0 || n > len(h.lines) {
		n = len(h.lines)
	}
	return append([]string(nil), h.lines[len(h.lines)-n:]...)
}

// Subscribe returns a channel receiving every new line and a function that
// unsubscribes and closes it. After Close the channel is returned closed.
func (h *LogHub) Subscribe() (<-chan string, func()) {
	ch := make(chan string, 64)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
	}
}

// Close ends every subscription so live readers return. History and Write
// keep working.
func (h *LogHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}

// Subscribers returns the number of live subscribers.
func (h *LogHub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
