package briefing

import (
	"fmt"
	"sort"
	"time"
)

// SortEntries orders a feed by timestamp descending. The sort is stable:
// entries with equal timestamps keep their input order, which is provider
// fetch order followed by item order within a provider.
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
}

// FormatDuration renders the elapsed time between start and end as a short
// human-readable label: "45m" under an hour, "2h" on exact hours, "1h 30m"
// otherwise. The duration is rounded to whole minutes.
func FormatDuration(start, end time.Time) string {
	mins := int(end.Sub(start).Round(time.Minute) / time.Minute)
	if mins < 0 {
		mins = 0
	}
	if mins < 60 {
		return fmt.Sprintf("%dm", mins)
	}
	hours := mins / 60
	rem := mins % 60
	if rem == 0 {
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dh %dm", hours, rem)
}
