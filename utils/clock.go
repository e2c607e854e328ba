package utils

import "time"

// Clock abstracts "now" so award policy and batch jobs can be pinned to a
// fixed date in tests. Every date comparison in the service goes through
// DateUTC on a Clock value, never through ambient time.Now.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// DateUTC formats t as the canonical YYYY-MM-DD UTC day key.
func DateUTC(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
