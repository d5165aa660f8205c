package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/md-rashed-zaman/slotbook/libs/auth"
	"github.com/md-rashed-zaman/slotbook/libs/httpx"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
)

type SlotComputer interface {
	AvailableSlots(ctx context.Context, req availability.Request) (availability.Response, error)
}

type Booker interface {
	Book(ctx context.Context, req booking.BookRequest) (booking.Confirmation, error)
	ChangeStatus(ctx context.Context, businessID, appointmentID, status string) (model.Appointment, error)
	List(ctx context.Context, businessID, date string) ([]model.Appointment, error)
}

// DashboardRoles may read and change a business's appointments.
var DashboardRoles = []string{"owner", "staff"}

type Handler struct {
	slots   SlotComputer
	booking Booker
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func New(slots SlotComputer, booker Booker, m *metrics.Metrics, logger *slog.Logger) *Handler {
	return &Handler{slots: slots, booking: booker, metrics: m, logger: logger}
}

// Routes mounts the public booking surface, wrapped in public, and the
// dashboard endpoints behind an HS256 bearer token carrying the business id
// and one of DashboardRoles.
func (h *Handler) Routes(r chi.Router, jwtSecret string, public ...httpx.Middleware) {
	r.Route("/api/v1/public", func(r chi.Router) {
		for _, mw := range public {
			if mw != nil {
				r.Use(mw)
			}
		}
		r.Get("/slots", h.Slots)
		r.Post("/slots", h.Slots)
		r.Post("/appointments", h.Book)
	})
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireJWT(jwtSecret), auth.RequireRole(DashboardRoles...))
		r.Get("/api/v1/appointments", h.List)
		r.Patch("/api/v1/appointments/{id}/status", h.ChangeStatus)
	})
}

type appointmentItem struct {
	AppointmentID  string `json:"appointmentId"`
	ProfessionalID string `json:"professionalId"`
	ServiceID      string `json:"serviceId"`
	ClientName     string `json:"clientName"`
	ClientPhone    string `json:"clientPhone"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	Status         string `json:"status"`
	ReminderSent   bool   `json:"reminderSent"`
	CreatedAt      string `json:"createdAt"`
}

func (h *Handler) Slots(w http.ResponseWriter, r *http.Request) {
	var req availability.Request
	if r.Method == http.MethodPost {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
			return
		}
	} else {
		q := r.URL.Query()
		req = availability.Request{
			BusinessID:     q.Get("businessId"),
			ProfessionalID: q.Get("professionalId"),
			ServiceID:      q.Get("serviceId"),
			Date:           q.Get("date"),
		}
	}

	start := time.Now()
	resp, err := h.slots.AvailableSlots(r.Context(), req)
	if err != nil {
		h.metrics.ObserveSlots("http", outcome(err), time.Since(start), 0)
		h.writeErr(w, r, err)
		return
	}
	h.metrics.ObserveSlots("http", "ok", time.Since(start), len(resp.AvailableSlots))
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	var req booking.BookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.IdempotencyKey = r.Header.Get("Idempotency-Key")

	conf, err := h.booking.Book(r.Context(), req)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	if conf.Replayed {
		w.Header().Set("Idempotent-Replayed", "true")
	}
	httpx.WriteJSON(w, http.StatusCreated, conf)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	appts, err := h.booking.List(r.Context(), claims.BusinessID, r.URL.Query().Get("date"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	items := make([]appointmentItem, 0, len(appts))
	for _, a := range appts {
		items = append(items, toItem(a))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"appointments": items})
}

func (h *Handler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	claims, _ := auth.ClaimsFromContext(r.Context())
	appt, err := h.booking.ChangeStatus(r.Context(), claims.BusinessID, chi.URLParam(r, "id"), body.Status)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toItem(appt))
}

func (h *Handler) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			"err", err,
			"path", r.URL.Path,
			"request_id", httpx.RequestIDFromContext(r.Context()),
		)
		httpx.WriteError(w, status, "internal error")
		return
	}
	httpx.WriteError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, availability.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, availability.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, booking.ErrSlotUnavailable),
		errors.Is(err, booking.ErrIdempotencyReplay),
		errors.Is(err, model.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, booking.ErrPlanLimitReached):
		return http.StatusPaymentRequired
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func outcome(err error) string {
	switch statusFor(err) {
	case http.StatusBadRequest:
		return "invalid"
	case http.StatusNotFound:
		return "not_found"
	default:
		return "error"
	}
}

func toItem(a model.Appointment) appointmentItem {
	item := appointmentItem{
		AppointmentID:  a.ID,
		ProfessionalID: a.ProfessionalID,
		ServiceID:      a.ServiceID,
		ClientName:     a.ClientName,
		ClientPhone:    a.ClientPhone,
		Date:           a.Date,
		Time:           strings.TrimSpace(a.Time),
		Status:         string(a.Status),
		ReminderSent:   a.ReminderSent,
	}
	if !a.CreatedAt.IsZero() {
		item.CreatedAt = a.CreatedAt.UTC().Format(time.RFC3339)
	}
	return item
}
