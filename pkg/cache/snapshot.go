package cache

import (
	"log"
	"sync"
	"time"

	"github.com/veridian-labs/veridian-issuance/internal/types"
)

// Snapshotter produces the current curve state. The issuance controller
// satisfies it.
type Snapshotter interface {
	Snapshot() (*types.CurveSnapshot, error)
}

type Options struct {
	TTL time.Duration
}

type SnapshotCache struct {
	mu   sync.RWMutex
	snap *types.CurveSnapshot
	ttl  time.Duration
	src  Snapshotter
}

func NewSnapshotCache(src Snapshotter, opt Options) *SnapshotCache {
	if opt.TTL <= 0 {
		opt.TTL = 5 * time.Second
	}
	return &SnapshotCache{ttl: opt.TTL, src: src}
}

// Get returns the cached snapshot and whether it is still fresh. A stale
// snapshot is still returned so callers can serve it while refreshing.
func (c *SnapshotCache) Get() (*types.CurveSnapshot, bool) {
	c.mu.RLock()
	s := c.snap
	c.mu.RUnlock()
	if s == nil {
		return nil, false
	}
	if time.Since(s.UpdatedAt) > c.ttl {
		return s, false
	}
	return s, true
}

func (c *SnapshotCache) Update() (*types.CurveSnapshot, error) {
	s, err := c.src.Snapshot()
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.snap = s
	c.mu.Unlock()
	return s, nil
}

// Invalidate drops the cached snapshot so the next read recomputes. Mint
// and burn call this after settling.
func (c *SnapshotCache) Invalidate() {
	c.mu.Lock()
	c.snap = nil
	c.mu.Unlock()
}

// RunRefresher refreshes the snapshot every TTL.
func (c *SnapshotCache) RunRefresher() {
	for {
		if _, err := c.Update(); err != nil {
			log.Printf("refresher error: %v", err)
		}
		time.Sleep(c.ttl)
	}
}
