package meetings

import (
	"encoding/json"
	"time"

	calendar "google.golang.org/api/calendar/v3"
)

// UntitledPlaceholder replaces missing or empty event titles.
const UntitledPlaceholder = "(no title)"

const dateLayout = "2006-01-02"

// CalendarEvent is a normalized calendar event.
type CalendarEvent struct {
	ID    string
	Title string
	Start time.Time
	End   time.Time

	// AllDay is set when the event only carries dates, not times.
	AllDay bool

	// JoinURL is the meeting link, if the event has one.
	JoinURL string

	// startValue and endValue keep the source representation of the chosen
	// start and end (an RFC 3339 timestamp or a date).
	startValue string
	endValue   string
}

type eventJSON struct {
	ID          string `json:"id"`
	Summary     string `json:"summary"`
	Start       string `json:"start"`
	End         string `json:"end,omitempty"`
	HangoutLink string `json:"hangoutLink,omitempty"`
	AllDay      bool   `json:"allDay,omitempty"`
}

// MarshalJSON renders the event the way the web client consumes it.
func (e CalendarEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(eventJSON{
		ID:          e.ID,
		Summary:     e.Title,
		Start:       e.startValue,
		End:         e.endValue,
		HangoutLink: e.JoinURL,
		AllDay:      e.AllDay,
	})
}

// rawEvent is the subset of the Google Calendar event schema meetview reads.
type rawEvent struct {
	ID             string                   `json:"id"`
	Summary        string                   `json:"summary"`
	Start          *calendar.EventDateTime  `json:"start"`
	End            *calendar.EventDateTime  `json:"end"`
	HangoutLink    string                   `json:"hangoutLink"`
	ConferenceData *calendar.ConferenceData `json:"conferenceData"`
}

// toCalendarEvent converts a raw entry. ok is false when the entry has no
// usable start, in which case it must be dropped.
func toCalendarEvent(raw rawEvent) (CalendarEvent, bool) {
	start, startValue, allDay, ok := parseEventTime(raw.Start)
	if !ok {
		return CalendarEvent{}, false
	}

	ev := CalendarEvent{
		ID:         raw.ID,
		Title:      raw.Summary,
		Start:      start,
		AllDay:     allDay,
		JoinURL:    joinURL(raw),
		startValue: startValue,
	}
	if ev.Title == "" {
		ev.Title = UntitledPlaceholder
	}

	if end, endValue, _, ok := parseEventTime(raw.End); ok {
		ev.End = end
		ev.endValue = endValue
	} else {
		ev.End = start
	}
	return ev, true
}

// parseEventTime prefers the timed value over the all-day date. Dates are
// interpreted as midnight UTC.
func parseEventTime(dt *calendar.EventDateTime) (t time.Time, value string, allDay, ok bool) {
	if dt == nil {
		return time.Time{}, "", false, false
	}
	if dt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, dt.DateTime); err == nil {
			return t, dt.DateTime, false, true
		}
	}
	if dt.Date != "" {
		if t, err := time.ParseInLocation(dateLayout, dt.Date, time.UTC); err == nil {
			return t, dt.Date, true, true
		}
	}
	return time.Time{}, "", false, false
}

func joinURL(raw rawEvent) string {
	if raw.HangoutLink != "" {
		return raw.HangoutLink
	}
	if raw.ConferenceData != nil {
		for _, ep := range raw.ConferenceData.EntryPoints {
			if ep.EntryPointType == "video" {
				return ep.Uri
			}
		}
	}
	return ""
}
