package apperror

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/teemow/meetview/internal/broker"
)

// Broker error codes with a known meaning.
const (
	BrokerCodeNoConnectedAccount = 1803
	BrokerCodeAuthConfigNotFound = 302
)

// Hints returned to callers.
const (
	HintConnectCalendar         = "Please connect your Google Calendar first."
	HintAuthConfigSetup         = "Set up Google Calendar auth configuration in Composio dashboard first."
	HintAuthConfigSetupMeetings = "Set up Google Calendar auth configuration in Composio dashboard first, then try connecting."
)

// Operation selects which failure kind is the fallback and which rules apply.
type Operation int

const (
	// Initiation classifies failures of a connection handshake.
	Initiation Operation = iota
	// Fetch classifies failures of a meetings query.
	Fetch
)

type rule struct {
	kind     Kind
	code     int
	patterns []string
}

// Rules are tried in order. Fetch consults all of them, initiation skips the
// not-connected rule since a handshake is how a calendar becomes connected.
var rules = []rule{
	{kind: CalendarNotConnected, code: BrokerCodeNoConnectedAccount, patterns: []string{"no connected account"}},
	{kind: IntegrationNotConfigured, code: BrokerCodeAuthConfigNotFound, patterns: []string{"auth config not found"}},
}

func (op Operation) applies(k Kind) bool {
	return op == Fetch || k != CalendarNotConnected
}

// Classify maps an error from a broker operation onto the taxonomy. An error
// that is already classified is returned unchanged.
func Classify(op Operation, err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := As(err); ok {
		return e
	}

	var be *broker.Error
	if !errors.As(err, &be) {
		be = &broker.Error{Message: err.Error()}
	}

	kind := match(op, be)
	if kind == "" {
		return failure(op, be, err)
	}

	out := New(kind, messageFor(op, kind)).WithCause(err)
	switch kind {
	case CalendarNotConnected:
		out.Hint = HintConnectCalendar
	case IntegrationNotConfigured:
		out.Details = details(be)
		out.Hint = HintAuthConfigSetup
		if op == Fetch {
			out.Hint = HintAuthConfigSetupMeetings
		}
	}
	return out
}

// match applies the structured code first, then falls back to the text.
func match(op Operation, be *broker.Error) Kind {
	if be.Code != 0 {
		for _, r := range rules {
			if op.applies(r.kind) && r.code == be.Code {
				return r.kind
			}
		}
	}

	text := strings.ToLower(be.Message + " " + string(be.Payload))
	for _, r := range rules {
		if !op.applies(r.kind) {
			continue
		}
		for _, p := range r.patterns {
			if strings.Contains(text, p) {
				return r.kind
			}
		}
	}
	return ""
}

func messageFor(op Operation, kind Kind) string {
	switch kind {
	case CalendarNotConnected:
		return "Google Calendar not connected"
	case IntegrationNotConfigured:
		return "Google Calendar auth config not found in Composio"
	}
	if op == Initiation {
		return "Failed to create connection"
	}
	return "Failed to fetch meetings"
}

// failure builds the catch-all kind, keeping the broker's status when it is
// a usable HTTP error status.
func failure(op Operation, be *broker.Error, cause error) *Error {
	kind := FetchFailed
	if op == Initiation {
		kind = ConnectionInitiationFailed
	}

	out := New(kind, messageFor(op, kind)).WithCause(cause)
	if !be.Timeout && be.Status >= http.StatusBadRequest && be.Status <= 599 {
		out.Status = be.Status
	}
	out.Timeout = be.Timeout
	out.Details = details(be)
	return out
}

func details(be *broker.Error) json.RawMessage {
	if len(be.Payload) > 0 && json.Valid(be.Payload) {
		return be.Payload
	}
	raw, err := json.Marshal(be.Message)
	if err != nil {
		return nil
	}
	return raw
}
