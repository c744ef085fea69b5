package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"lawlink-quiz-service/internal/domain"
)

// timestampLayout matches JavaScript's Date.toISOString.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// payload is the body of a success envelope. Every payload carries a timestamp.
type payload map[string]any

func (h *Handler) timestamp() string {
	return h.now().UTC().Format(timestampLayout)
}

func (h *Handler) ok(w http.ResponseWriter, data payload) {
	data["timestamp"] = h.timestamp()
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: false, Error: msg})
}

// fail maps a service error to a status code. Anything that is neither a
// validation nor a not-found error is logged and reported with fallback.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Message)
	case errors.Is(err, domain.ErrQuestionNotFound):
		writeError(w, http.StatusNotFound, "Question not found")
	case errors.Is(err, domain.ErrOptionNotFound):
		writeError(w, http.StatusNotFound, "Option not found")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "Quiz not found")
	default:
		h.log.Error(fallback,
			slog.String("path", r.URL.Path),
			slog.String("requestId", requestID(r)),
			slog.Any("error", err),
		)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func defaultClock() time.Time { return time.Now() }
