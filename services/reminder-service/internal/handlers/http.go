package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/md-rashed-zaman/slotbook/libs/auth"
	"github.com/md-rashed-zaman/slotbook/libs/httpx"
	"github.com/md-rashed-zaman/slotbook/services/reminder-service/internal/reminders"
	"golang.org/x/crypto/bcrypt"
)

type BatchRunner interface {
	RunOnce(ctx context.Context, source string) (reminders.Report, error)
}

type Handler struct {
	runner    BatchRunner
	tokenHash []byte
	logger    *slog.Logger
}

// New returns the trigger handler. An empty tokenHash disables the endpoint.
func New(runner BatchRunner, tokenHash string, logger *slog.Logger) *Handler {
	return &Handler{runner: runner, tokenHash: []byte(tokenHash), logger: logger}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/api/v1/reminders/run", h.Run)
}

func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	if len(h.tokenHash) == 0 {
		httpx.WriteError(w, http.StatusServiceUnavailable, "manual trigger disabled")
		return
	}
	token, ok := auth.BearerToken(r)
	if !ok || bcrypt.CompareHashAndPassword(h.tokenHash, []byte(token)) != nil {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid trigger token")
		return
	}

	report, err := h.runner.RunOnce(r.Context(), "manual")
	switch {
	case errors.Is(err, reminders.ErrBatchRunning):
		httpx.WriteError(w, http.StatusConflict, err.Error())
	case err != nil:
		h.logger.Error("manual reminder batch failed", "err", err, "request_id", httpx.RequestIDFromContext(r.Context()))
		httpx.WriteError(w, http.StatusInternalServerError, "reminder batch failed")
	default:
		httpx.WriteJSON(w, http.StatusOK, report)
	}
}
