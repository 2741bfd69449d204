package clock

import "time"

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (sc *SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// FixedClock always reports the same instant until moved with Advance
type FixedClock struct {
	T time.Time
}

func (fc *FixedClock) Now() time.Time {
	return fc.T
}

func (fc *FixedClock) Advance(d time.Duration) {
	fc.T = fc.T.Add(d)
}
