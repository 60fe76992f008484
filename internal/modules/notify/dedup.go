package notify

import (
	"context"
	"sync"
	"time"

	redisc "github.com/inkpress/core/internal/pkg/redis"
)

// dedupWindow is the span inside which identical events collapse to one.
const dedupWindow = 60 * time.Second

// Deduper answers "is this the first time this key was seen in the window?".
type Deduper interface {
	FirstSeen(ctx context.Context, key string) (bool, error)
}

const dedupKeyPrefix = "ip:notify:dedup:"

type redisDeduper struct {
	rc *redisc.Client
}

// NewRedisDeduper returns a Deduper backed by Redis SETNX with a TTL, so the
// window holds across processes.
func NewRedisDeduper(rc *redisc.Client) Deduper {
	return &redisDeduper{rc: rc}
}

func (d *redisDeduper) FirstSeen(ctx context.Context, key string) (bool, error) {
	return d.rc.SetNX(ctx, dedupKeyPrefix+key, 1, dedupWindow)
}

// MemoryDeduper is an in-process Deduper for tests and single-node fallback.
type MemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]time.Time
	now  func() time.Time
}

func NewMemoryDeduper() *MemoryDeduper {
	return &MemoryDeduper{seen: map[string]time.Time{}, now: time.Now}
}

// SetClock overrides the time source (tests).
func (d *MemoryDeduper) SetClock(now func() time.Time) { d.now = now }

func (d *MemoryDeduper) FirstSeen(_ context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t := d.now()
	if last, ok := d.seen[key]; ok && t.Sub(last) < dedupWindow {
		return false, nil
	}
	d.seen[key] = t
	return true, nil
}
