package signal

// History is a fixed-capacity ring of the most recent signals. When full,
// appending evicts the oldest entry. Not safe for concurrent use; callers
// sharing a strategy instance across goroutines must synchronize.
type History struct {
	buf   []Signal
	start int
	size  int
}

// DefaultHistorySize bounds the per-strategy signal log.
const DefaultHistorySize = 1000

// NewHistory creates a ring holding up to capacity signals.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &History{buf: make([]Signal, capacity)}
}

// Append records a signal, evicting the oldest one when the ring is full.
func (h *History) Append(s Signal) {
	if h.size < len(h.buf) {
		h.buf[(h.start+h.size)%len(h.buf)] = s
		h.size++
		return
	}
	h.buf[h.start] = s
	h.start = (h.start + 1) % len(h.buf)
}

// Len reports how many signals are currently retained.
func (h *History) Len() int { return h.size }

// Snapshot returns the retained signals in append order, oldest first.
func (h *History) Snapshot() []Signal {
	out := make([]Signal, h.size)
	for i := 0; i < h.size; i++ {
		out[i] = h.buf[(h.start+i)%len(h.buf)]
	}
	return out
}
