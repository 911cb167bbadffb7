package service

import "sync/atomic"

// quotaValues is an immutable threshold and interval pair.
type quotaValues struct {
	threshold float64
	interval  float64
}

// Quota is a process-local, concurrently readable threshold and interval pair.
// Limiters read it through dynamic parameters, so Set takes effect on the next
// check without rebuilding the limiter.
type Quota struct {
	values atomic.Pointer[quotaValues]
}

// NewQuota creates a quota with the given threshold and interval (seconds).
func NewQuota(threshold, interval float64) *Quota {
	q := &Quota{}
	q.Set(threshold, interval)
	return q
}

// Threshold returns the current threshold.
func (q *Quota) Threshold() float64 {
	return q.values.Load().threshold
}

// Interval returns the current interval in seconds.
func (q *Quota) Interval() float64 {
	return q.values.Load().interval
}

// Values returns threshold and interval from the same Set call.
func (q *Quota) Values() (threshold, interval float64) {
	v := q.values.Load()
	return v.threshold, v.interval
}

// Set replaces both values at once. Readers see either the old pair or the new one.
func (q *Quota) Set(threshold, interval float64) {
	q.values.Store(&quotaValues{threshold: threshold, interval: interval})
}
