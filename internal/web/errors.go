package web

// errors.go turns Provider errors into HTTP responses.
//
// The technical error is logged with the request ID; the client gets the
// mapped user message from core.MapError, as JSON for API routes and as an
// HTML fragment for browser requests.

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/tableroute/internal/address"
	"github.com/JonMunkholm/tableroute/internal/core"
	"github.com/JonMunkholm/tableroute/internal/schema"
	"github.com/JonMunkholm/tableroute/internal/storage"
	"github.com/JonMunkholm/tableroute/internal/web/templates"
	"github.com/go-chi/chi/v5/middleware"
)

// errBadBody wraps request body decoding failures.
var errBadBody = errors.New("invalid request body")

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`

	// Inserted is set when a bulk insert stops partway; rows before the
	// failure are stored.
	Inserted *int `json:"inserted,omitempty"`
}

// statusFor picks the HTTP status for a Provider error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, address.ErrUnmatchedAddress),
		errors.Is(err, schema.ErrUnknownTable):
		return http.StatusNotFound
	case errors.Is(err, core.ErrInvalidProjection),
		errors.Is(err, core.ErrUnsupportedScope),
		errors.Is(err, core.ErrInvalidFilter),
		errors.Is(err, core.ErrInvalidCSV),
		errors.Is(err, storage.ErrNoValues),
		errors.Is(err, errBadBody):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotOpen):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the mapped user message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	userMsg := core.MapError(err)
	logRequestError(r, err, status, userMsg.Code)

	if wantsJSON(r) {
		writeJSON(w, status, newErrorResponse(userMsg))
		return
	}
	respondErrorHTML(r.Context(), w, userMsg, status)
}

// respondBulkError reports a bulk insert that stopped at err after storing
// inserted rows.
func (s *Server) respondBulkError(w http.ResponseWriter, r *http.Request, err error, inserted int) {
	status := statusFor(err)
	userMsg := core.MapError(err)
	logRequestError(r, err, status, userMsg.Code, "inserted", inserted)

	resp := newErrorResponse(userMsg)
	resp.Inserted = &inserted
	writeJSON(w, status, resp)
}

func logRequestError(r *http.Request, err error, status int, code string, args ...any) {
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", code,
		"request_id", middleware.GetReqID(r.Context()),
	}
	slog.Log(r.Context(), level, "request error", append(attrs, args...)...)
}

func newErrorResponse(msg core.UserMessage) ErrorResponse {
	return ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	}
}

func respondErrorHTML(ctx context.Context, w http.ResponseWriter, msg core.UserMessage, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(ctx, w); err != nil {
		slog.Error("render error alert failed", "error", err)
	}
}

// wantsJSON reports whether the client should get a JSON error.
func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	return strings.Contains(r.Header.Get("Content-Type"), "application/json")
}
