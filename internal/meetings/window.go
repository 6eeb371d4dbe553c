package meetings

import (
	"time"
)

const (
	// DefaultLookback and DefaultLookahead bound the queried window around now.
	DefaultLookback  = 30 * 24 * time.Hour
	DefaultLookahead = 30 * 24 * time.Hour

	// DefaultMaxItems caps the number of events requested from the broker.
	DefaultMaxItems = 50

	// ViewLimit is the maximum size of each bucket in a View.
	ViewLimit = 5
)

// Window is the time range and size of one calendar query. Recurring events
// are always expanded into single instances and ordered by start time.
type Window struct {
	Start    time.Time
	End      time.Time
	MaxItems int
}

// NewWindow returns the default window around now.
func NewWindow(now time.Time) Window {
	return Window{
		Start:    now.Add(-DefaultLookback),
		End:      now.Add(DefaultLookahead),
		MaxItems: DefaultMaxItems,
	}
}

// ToolArguments renders the window as arguments of the calendar list tool.
func (w Window) ToolArguments() map[string]any {
	maxItems := w.MaxItems
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	return map[string]any{
		"calendar_id":   "primary",
		"time_min":      w.Start.UTC().Format(time.RFC3339),
		"time_max":      w.End.UTC().Format(time.RFC3339),
		"max_results":   maxItems,
		"order_by":      "startTime",
		"single_events": true,
	}
}
