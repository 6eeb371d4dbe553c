package meetings

import (
	"sort"
	"time"
)

// View is the user-facing result: recent past and near future meetings.
type View struct {
	Past   []CalendarEvent `json:"past"`
	Future []CalendarEvent `json:"future"`
}

// Partition sorts events by start (stable for equal starts) and splits them
// at now. Past keeps its last ViewLimit entries, future its first.
func Partition(events []CalendarEvent, now time.Time) View {
	sorted := make([]CalendarEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	split := sort.Search(len(sorted), func(i int) bool {
		return !sorted[i].Start.Before(now)
	})
	past, future := sorted[:split], sorted[split:]

	if len(past) > ViewLimit {
		past = past[len(past)-ViewLimit:]
	}
	if len(future) > ViewLimit {
		future = future[:ViewLimit]
	}

	return View{
		Past:   append([]CalendarEvent{}, past...),
		Future: append([]CalendarEvent{}, future...),
	}
}
