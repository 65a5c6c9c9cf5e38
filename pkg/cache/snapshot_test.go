package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/veridian-labs/veridian-issuance/internal/types"
)

type fakeSource struct {
	calls int
	fail  bool
}

func (f *fakeSource) Snapshot() (*types.CurveSnapshot, error) {
	f.calls++
	if f.fail {
		return nil, errors.New("source down")
	}
	return &types.CurveSnapshot{
		Supply:    "1000",
		ETag:      "tag",
		UpdatedAt: time.Now().UTC(),
	}, nil
}

func TestGetUpdateInvalidate(t *testing.T) {
	src := &fakeSource{}
	c := NewSnapshotCache(src, Options{TTL: time.Minute})

	if s, fresh := c.Get(); s != nil || fresh {
		t.Fatalf("empty cache returned a snapshot")
	}
	if _, err := c.Update(); err != nil {
		t.Fatalf("update: %v", err)
	}
	s, fresh := c.Get()
	if s == nil || !fresh {
		t.Fatalf("fresh snapshot not served")
	}
	if src.calls != 1 {
		t.Fatalf("source called %d times", src.calls)
	}

	c.Invalidate()
	if s, _ := c.Get(); s != nil {
		t.Fatalf("invalidated cache still serves")
	}

	src.fail = true
	if _, err := c.Update(); err == nil {
		t.Fatalf("source failure swallowed")
	}
}

func TestStaleServedUnfresh(t *testing.T) {
	src := &fakeSource{}
	c := NewSnapshotCache(src, Options{TTL: time.Nanosecond})
	if _, err := c.Update(); err != nil {
		t.Fatalf("update: %v", err)
	}
	time.Sleep(time.Millisecond)
	s, fresh := c.Get()
	if s == nil {
		t.Fatalf("stale snapshot dropped")
	}
	if fresh {
		t.Fatalf("expired snapshot reported fresh")
	}
}
