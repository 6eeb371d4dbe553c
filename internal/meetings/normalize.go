package meetings

import (
	"bytes"
	"encoding/json"
)

// Shape identifies which known layout a broker payload has.
type Shape int

const (
	ShapeAbsent Shape = iota
	ShapeList
	ShapeItems
	ShapeResultItems
	ShapeDataItems
	ShapeResponseDataItems
)

func (s Shape) String() string {
	switch s {
	case ShapeList:
		return "list"
	case ShapeItems:
		return "items"
	case ShapeResultItems:
		return "result.items"
	case ShapeDataItems:
		return "data.items"
	case ShapeResponseDataItems:
		return "response_data.items"
	default:
		return "absent"
	}
}

type itemsEnvelope struct {
	Items []json.RawMessage `json:"items"`
}

type payloadEnvelope struct {
	Items        []json.RawMessage `json:"items"`
	Result       *itemsEnvelope    `json:"result"`
	Data         *itemsEnvelope    `json:"data"`
	ResponseData *itemsEnvelope    `json:"response_data"`
}

// Classify detects the payload shape and returns its raw entries.
func Classify(payload json.RawMessage) (Shape, []json.RawMessage) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return ShapeAbsent, nil
	}

	switch trimmed[0] {
	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return ShapeAbsent, nil
		}
		return ShapeList, list
	case '{':
		var env payloadEnvelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return ShapeAbsent, nil
		}
		switch {
		case env.Result != nil && env.Result.Items != nil:
			return ShapeResultItems, env.Result.Items
		case env.Items != nil:
			return ShapeItems, env.Items
		case env.Data != nil && env.Data.Items != nil:
			return ShapeDataItems, env.Data.Items
		case env.ResponseData != nil && env.ResponseData.Items != nil:
			return ShapeResponseDataItems, env.ResponseData.Items
		}
	}
	return ShapeAbsent, nil
}

// Normalize coalesces a broker payload to events with a usable start. Entries
// that are not objects or have no parseable start are dropped.
func Normalize(payload json.RawMessage) []CalendarEvent {
	_, items := Classify(payload)

	events := make([]CalendarEvent, 0, len(items))
	for _, item := range items {
		var raw rawEvent
		if err := json.Unmarshal(item, &raw); err != nil {
			continue
		}
		if ev, ok := toCalendarEvent(raw); ok {
			events = append(events, ev)
		}
	}
	return events
}
