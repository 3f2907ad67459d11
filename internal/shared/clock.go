package shared

import (
	"sync"
	"time"
)

// Clock supplies timestamps for ledger entries.
type Clock func() time.Time

// SystemClock returns UTC wall time.
func SystemClock() time.Time {
	return time.Now().UTC()
}

// MonotonicClock wraps a clock so consecutive readings strictly increase. A
// reading that is not after the previous one advances it by a nanosecond.
func MonotonicClock(base Clock) Clock {
	if base == nil {
		base = SystemClock
	}
	var (
		mu   sync.Mutex
		last time.Time
	)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := base()
		if !now.After(last) {
			now = last.Add(time.Nanosecond)
		}
		last = now
		return now
	}
}
