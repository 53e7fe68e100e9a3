package source

import "time"

// KeepIfRecent reports whether a record published at the given time falls
// inside the freshness window. The boundary is inclusive: a record exactly
// window old is kept.
//
// A nil publish time passes. Several origins (trending repos, some
// discussion listings) report no timestamp, and dropping them would empty
// whole snapshot categories.
func KeepIfRecent(publishedAt *time.Time, window time.Duration, now time.Time) bool {
	if publishedAt == nil {
		return true
	}
	return now.Sub(*publishedAt) <= window
}
