package repository

import "time"

// now returns the mutation timestamp. MySQL DATETIME(6) keeps microseconds, so the
// value is truncated to match what a later read returns.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
