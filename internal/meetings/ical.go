package meetings

import (
	"bytes"
	"fmt"
	"time"

	"github.com/emersion/go-ical"
)

// ProductID identifies meetview in exported calendars.
const ProductID = "-//meetview//meetings//EN"

// ICS exports a view as an iCalendar document, past then future.
func ICS(view *View, stamp time.Time) ([]byte, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ProductID)

	for _, events := range [][]CalendarEvent{view.Past, view.Future} {
		for _, e := range events {
			cal.Children = append(cal.Children, toICalEvent(e, stamp).Component)
		}
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("failed to encode calendar: %w", err)
	}
	return buf.Bytes(), nil
}

func toICalEvent(e CalendarEvent, stamp time.Time) *ical.Event {
	ev := ical.NewEvent()
	uid := e.ID
	if uid == "" {
		uid = fmt.Sprintf("%d@meetview", e.Start.Unix())
	}
	ev.Props.SetText(ical.PropUID, uid)
	ev.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	ev.Props.SetText(ical.PropSummary, e.Title)

	if e.AllDay {
		ev.Props.SetDate(ical.PropDateTimeStart, e.Start)
		if e.End.After(e.Start) {
			ev.Props.SetDate(ical.PropDateTimeEnd, e.End)
		}
	} else {
		ev.Props.SetDateTime(ical.PropDateTimeStart, e.Start.UTC())
		if e.End.After(e.Start) {
			ev.Props.SetDateTime(ical.PropDateTimeEnd, e.End.UTC())
		}
	}

	if e.JoinURL != "" {
		ev.Props.SetText(ical.PropURL, e.JoinURL)
		ev.Props.SetText(ical.PropLocation, e.JoinURL)
	}
	return ev
}
