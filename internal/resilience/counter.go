package resilience

import "sync/atomic"

// FailureThreshold is the number of consecutive failures after which the
// caller is advised to switch to fallback mode.
const FailureThreshold = 3

// crossed reports whether count lands on a threshold crossing. Every
// multiple of the threshold is a fresh signal.
func crossed(count int64) bool {
	return count > 0 && count%FailureThreshold == 0
}

// FailureCounter counts consecutive failures. The zero value is ready to use
// and safe for concurrent use.
type FailureCounter struct {
	n atomic.Int64
}

// RecordFailure increments the count and reports whether this call crossed
// the threshold.
func (c *FailureCounter) RecordFailure() bool {
	return crossed(c.n.Add(1))
}

// RecordSuccess resets the count after a successful call.
func (c *FailureCounter) RecordSuccess() {
	c.n.Store(0)
}

// Reset clears the count.
func (c *FailureCounter) Reset() {
	c.n.Store(0)
}

// Count returns the current number of consecutive failures.
func (c *FailureCounter) Count() int {
	return int(c.n.Load())
}
