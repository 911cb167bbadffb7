package limiter

import (
	"fmt"
	"math"
	"time"
)

// maxIntervalSeconds keeps the resolved interval representable as a Duration.
const maxIntervalSeconds = float64(math.MaxInt64 / int64(time.Second))

// Producer is anything that can report a limit parameter on demand, such as a
// per-tenant quota that changes while the limiter is running.
type Producer interface {
	Value() float64
}

// Param is a limit parameter that is either a fixed value or a producer
// invoked on every check. The form is decided once, when the Param is built.
type Param struct {
	value    float64
	producer func() float64
	dynamic  bool
}

// Static returns a Param that always resolves to v.
func Static(v float64) Param {
	return Param{value: v}
}

// Dynamic returns a Param that calls fn on every resolution. Results are never
// cached. A nil fn is rejected by NewResolver.
func Dynamic(fn func() float64) Param {
	return Param{producer: fn, dynamic: true}
}

// ParamOf classifies an untyped source: numbers become static values, zero-
// argument functions returning a number and Producer implementations become
// dynamic ones.
func ParamOf(v any) (Param, error) {
	switch src := v.(type) {
	case Param:
		return src, nil
	case Producer:
		return Dynamic(src.Value), nil
	case func() float64:
		return Dynamic(src), nil
	case func() int:
		if src == nil {
			return Dynamic(nil), nil
		}
		return Dynamic(func() float64 { return float64(src()) }), nil
	case func() int64:
		if src == nil {
			return Dynamic(nil), nil
		}
		return Dynamic(func() float64 { return float64(src()) }), nil
	case float64:
		return Static(src), nil
	case float32:
		return Static(float64(src)), nil
	case int:
		return Static(float64(src)), nil
	case int32:
		return Static(float64(src)), nil
	case int64:
		return Static(float64(src)), nil
	case uint:
		return Static(float64(src)), nil
	case uint32:
		return Static(float64(src)), nil
	case uint64:
		return Static(float64(src)), nil
	default:
		return Param{}, fmt.Errorf("%w: "+ErrUnsupportedSource, ErrInvalidParameter, "parameter", v)
	}
}

// IsDynamic reports whether the Param is backed by a producer.
func (p Param) IsDynamic() bool {
	return p.dynamic
}

func (p Param) raw() float64 {
	if p.dynamic {
		return p.producer()
	}
	return p.value
}

// Resolver turns threshold and interval parameters into the integers a check
// runs against.
type Resolver struct {
	threshold Param
	interval  Param
}

// NewResolver binds threshold and interval. Static values are validated here;
// dynamic ones on every resolution.
func NewResolver(threshold, interval Param) (*Resolver, error) {
	if threshold.dynamic && threshold.producer == nil {
		return nil, fmt.Errorf("%w: "+ErrNilProducer, ErrInvalidParameter, "threshold")
	}
	if interval.dynamic && interval.producer == nil {
		return nil, fmt.Errorf("%w: "+ErrNilProducer, ErrInvalidParameter, "interval")
	}

	r := &Resolver{threshold: threshold, interval: interval}

	if !threshold.IsDynamic() {
		if _, err := r.Threshold(); err != nil {
			return nil, err
		}
	}
	if !interval.IsDynamic() {
		if _, err := r.Interval(); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Threshold resolves the threshold, rounded up to a whole number of events.
func (r *Resolver) Threshold() (int64, error) {
	v := r.threshold.raw()
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: "+ErrParameterNotFinite, ErrInvalidParameter, "threshold", v)
	}
	if v < 0 {
		return 0, fmt.Errorf("%w: "+ErrThresholdNegative, ErrInvalidParameter, v)
	}
	if v >= math.MaxInt64 {
		return math.MaxInt64, nil
	}
	return int64(math.Ceil(v)), nil
}

// Interval resolves the window length, rounded up to whole seconds.
func (r *Resolver) Interval() (time.Duration, error) {
	v := r.interval.raw()
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: "+ErrParameterNotFinite, ErrInvalidParameter, "interval", v)
	}
	if v < 1 {
		return 0, fmt.Errorf("%w: "+ErrIntervalTooShort, ErrInvalidParameter, v)
	}
	if v > maxIntervalSeconds {
		return 0, fmt.Errorf("%w: "+ErrIntervalTooLong, ErrInvalidParameter, v)
	}
	return time.Duration(math.Ceil(v)) * time.Second, nil
}
