package eventstore

import (
	"sync"

	"github.com/veridian-labs/veridian-issuance/internal/types"
)

// Memory is an in-process sink used by tests and by deployments that do
// not persist the record log.
type Memory struct {
	mu   sync.Mutex
	recs []types.IssuanceRecord
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Append(rec types.IssuanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.Seq = int64(len(m.recs) + 1)
	m.recs = append(m.recs, rec)
	return nil
}

// Recent returns up to limit records, newest first.
func (m *Memory) Recent(limit int) ([]types.IssuanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.recs) {
		limit = len(m.recs)
	}
	out := make([]types.IssuanceRecord, 0, limit)
	for i := len(m.recs) - 1; i >= len(m.recs)-limit; i-- {
		out = append(out, m.recs[i])
	}
	return out, nil
}

// Broadcaster wraps a sink and fans appended records out to subscribers.
// Slow subscribers drop records rather than stall an append.
type Broadcaster struct {
	inner Sink
	mu    sync.Mutex
	subs  map[chan types.IssuanceRecord]struct{}
}

func NewBroadcaster(inner Sink) *Broadcaster {
	return &Broadcaster{inner: inner, subs: make(map[chan types.IssuanceRecord]struct{})}
}

func (b *Broadcaster) Append(rec types.IssuanceRecord) error {
	err := b.inner.Append(rec)
	b.mu.Lock()
	for ch := range b.subs {
		select {
		case ch <- rec:
		default:
		}
	}
	b.mu.Unlock()
	return err
}

// Subscribe registers a live feed with the given buffer. The returned
// cancel function must be called when the subscriber goes away.
func (b *Broadcaster) Subscribe(buffer int) (<-chan types.IssuanceRecord, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan types.IssuanceRecord, buffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}
