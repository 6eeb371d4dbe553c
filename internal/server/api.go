package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/teemow/meetview/internal/apperror"
	"github.com/teemow/meetview/internal/callback"
	"github.com/teemow/meetview/internal/identity"
	"github.com/teemow/meetview/internal/instrumentation"
	"github.com/teemow/meetview/internal/logging"
	"github.com/teemow/meetview/internal/meetings"
)

// ConnectPendingMessage tells the browser to finish the handshake in the popup.
const ConnectPendingMessage = "Please complete the OAuth flow in the popup window"

const viaHTTP = "http"

// ConnectResponse is the body of a successful connect request.
type ConnectResponse struct {
	Success       bool   `json:"success"`
	ConnectionURL string `json:"connectionUrl"`
	ConnectionID  string `json:"connectionId"`
	Message       string `json:"message"`
}

type apiHandlers struct {
	sc     *ServerContext
	logger *slog.Logger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes err as a JSON error body. Errors that were never
// classified are reported as a bare 500.
func (h *apiHandlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ae, ok := apperror.As(err)
	if !ok {
		h.logger.Error("unclassified error", slog.String("path", routeTemplate(r)), logging.Err(err))
		writeJSON(w, http.StatusInternalServerError, apperror.Body{Error: "Internal server error"})
		return
	}
	h.sc.Metrics().RecordErrorClassification(r.Context(), ae.Code)
	writeJSON(w, ae.Status, ae.Body())
}

// audit completes op with err and writes it to the audit log.
func (h *apiHandlers) audit(ctx context.Context, op *instrumentation.Operation, err error) {
	var kind string
	if ae, ok := apperror.As(err); ok {
		kind = ae.Code
	}
	h.sc.AuditLogger().Log(ctx, op.WithSpanContext(ctx).CompleteWithKind(err, kind))
}

// connectCalendar handles POST /api/connect-calendar.
func (h *apiHandlers) connectCalendar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := identity.UserFromContext(ctx)
	op := instrumentation.NewOperation(instrumentation.AuditConnect, viaHTTP).WithUser(user)

	res, err := h.sc.Initiator().Connect(w, r, user)
	h.audit(ctx, op, err)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ConnectResponse{
		Success:       true,
		ConnectionURL: res.RedirectURL,
		ConnectionID:  res.RequestID,
		Message:       ConnectPendingMessage,
	})
}

// fetchView resolves the caller's connection identity and fetches meetings.
func (h *apiHandlers) fetchView(r *http.Request) (*meetings.View, error) {
	ctx := r.Context()
	user := identity.UserFromContext(ctx)
	op := instrumentation.NewOperation(instrumentation.AuditMeetings, viaHTTP).WithUser(user)

	var connectionID string
	if user != "" {
		id, err := h.sc.Store().Lookup(r, user)
		if err != nil {
			h.logger.Warn("connection identifier lookup failed", logging.UserHash(user), logging.Err(err))
		}
		connectionID = id
	}

	view, err := h.sc.Fetcher().Fetch(ctx, meetings.Query{User: user, ConnectionID: connectionID})
	h.audit(ctx, op, err)
	return view, err
}

// listMeetings handles GET /api/meetings.
func (h *apiHandlers) listMeetings(w http.ResponseWriter, r *http.Request) {
	view, err := h.fetchView(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// exportMeetings handles GET /api/meetings.ics.
func (h *apiHandlers) exportMeetings(w http.ResponseWriter, r *http.Request) {
	view, err := h.fetchView(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	body, err := meetings.ICS(view, time.Now())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="meetings.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// composioCallback handles GET /api/composio/callback. It never needs a
// session and never calls the broker.
func (h *apiHandlers) composioCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res := callback.Outcome(q.Get("code"), q.Get("state"), q.Get("error"))
	h.logger.Debug("connection callback received", slog.String("state", string(res.State)))

	page, err := h.sc.Renderer().Render(res)
	if err != nil {
		h.logger.Error("failed to render callback page", logging.Err(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(page)
}
