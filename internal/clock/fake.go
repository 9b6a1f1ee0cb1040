package clock

import "time"

// FakeClock reports a fixed instant until Advance is called. Tests use it
// to pin created_at/updated_at values and to assert that idempotent status
// writes leave timestamps untouched.
type FakeClock struct {
	now time.Time
}

func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t.UTC()}
}

func (c *FakeClock) Now() time.Time {
	return c.now
}

// Advance moves the fake clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}
