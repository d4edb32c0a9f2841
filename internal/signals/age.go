package signals

import "time"

const day = 24 * time.Hour

// AgeFromPosted floors the whole days between postedAt and now. A posting
// date in the future clamps to zero days and is reset to now.
func AgeFromPosted(postedAt, now time.Time) (time.Time, int) {
	if postedAt.IsZero() || postedAt.After(now) {
		return now, 0
	}
	return postedAt, int(now.Sub(postedAt) / day)
}

// PostedFromAge is the inverse for sources that only report "3d".
func PostedFromAge(days int, now time.Time) (time.Time, int) {
	if days < 0 {
		return now, 0
	}
	return now.Add(-time.Duration(days) * day), days
}
