package protocol

import (
	"sync"
	"time"
)

// Clock produces createdAt stamps: seconds since the clock started plus a
// learned offset. Until SyncTime is called the offset is the host wall
// clock at start, so stamps are ordinary Unix seconds.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Clock struct {
	mu     sync.RWMutex
	start  time.Time
	offset int64
	now    func() time.Time
}

// NewClock starts a clock using now (time.Now when nil).
func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	start := now()
	return &Clock{
		start:  start,
		offset: start.Unix(),
		now:    now,
	}
}

// Unix returns the current createdAt value.
func (c *Clock) Unix() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.offset + int64(c.now().Sub(c.start)/time.Second)
}

// SyncTime learns the offset so that Unix() returns unix right now.
func (c *Clock) SyncTime(unix int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset = unix - int64(c.now().Sub(c.start)/time.Second)
}
