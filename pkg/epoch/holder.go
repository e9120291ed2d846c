package epoch

import "sync"

// Holder is the process-wide slot for the current Mapper. The orchestrator
// swaps in a rebuilt mapper after every successful sync; HTTP handlers read
// it concurrently.
type Holder struct {
	mu     sync.RWMutex
	mapper *Mapper
}

// NewHolder wraps an initial mapper. m may be nil; Get then returns an
// empty mapper rather than nil so callers never need a nil check.
func NewHolder(m *Mapper) *Holder {
	if m == nil {
		m = &Mapper{}
	}
	return &Holder{mapper: m}
}

// Get returns the current mapper.
func (h *Holder) Get() *Mapper {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.mapper
}

// Set publishes a rebuilt mapper. A nil m is ignored.
func (h *Holder) Set(m *Mapper) {
	if m == nil {
		return
	}
	h.mu.Lock()
	h.mapper = m
	h.mu.Unlock()
}
