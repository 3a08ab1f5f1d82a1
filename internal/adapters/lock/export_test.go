package lock

import "time"

// SetRetryDelay changes how often a busy lock is polled.
func (l *Locker) SetRetryDelay(d time.Duration) {
	l.retryDelay = d
}
