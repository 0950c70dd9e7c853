package feed

import (
	"fmt"
	"time"
)

// dateLayout is the en-US short date, e.g. 3/14/2024.
const dateLayout = "1/2/2006"

// FormatRelative renders the age of ts relative to now for display.
// Absolute dates are shown in now's location. A nil or zero ts yields "".
func FormatRelative(ts *time.Time, now time.Time) string {
	if ts == nil || ts.IsZero() {
		return ""
	}

	age := now.Sub(*ts)
	switch {
	case age < time.Minute:
		return "Just now"
	case age < time.Hour:
		return fmt.Sprintf("%d min ago", int(age/time.Minute))
	case age < 24*time.Hour:
		return countAgo(int(age/time.Hour), "hour")
	case age < 7*24*time.Hour:
		return countAgo(int(age/(24*time.Hour)), "day")
	default:
		return ts.In(now.Location()).Format(dateLayout)
	}
}

func countAgo(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
