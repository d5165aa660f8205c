// Package booking creates appointments against live availability and moves
// them through their status lifecycle.
package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/slotbook/libs/clock"
	"github.com/md-rashed-zaman/slotbook/libs/db"
	"github.com/md-rashed-zaman/slotbook/libs/outbox"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
)

const (
	EventAppointmentBooked    = "booking.appointment.booked.v1"
	EventAppointmentCancelled = "booking.appointment.cancelled.v1"
)

var (
	ErrSlotUnavailable   = errors.New("requested time is not available")
	ErrPlanLimitReached  = errors.New("monthly appointment limit reached (upgrade required)")
	ErrIdempotencyReplay = errors.New("idempotency key already used with a different outcome")
)

var nonDigits = regexp.MustCompile(`\D+`)

type BookRequest struct {
	BusinessID     string `json:"businessId"`
	ProfessionalID string `json:"professionalId"`
	ServiceID      string `json:"serviceId"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	ClientName     string `json:"clientName"`
	ClientPhone    string `json:"clientPhone"`
	IdempotencyKey string `json:"-"`
}

type Confirmation struct {
	AppointmentID  string `json:"appointmentId"`
	BusinessID     string `json:"businessId"`
	ProfessionalID string `json:"professionalId"`
	ServiceID      string `json:"serviceId"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	Status         string `json:"status"`
	Replayed       bool   `json:"-"`
}

type Service struct {
	pool    db.TxQuerier
	repo    *storage.Repository
	outbox  *outbox.Repository
	slots   *availability.Service
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewService(pool db.TxQuerier, repo *storage.Repository, outboxRepo *outbox.Repository, slots *availability.Service, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{pool: pool, repo: repo, outbox: outboxRepo, slots: slots, metrics: m, logger: logger}
}

// Book creates a pending appointment if req.Time is one of the slots
// currently offered for that professional and date.
func (s *Service) Book(ctx context.Context, req BookRequest) (Confirmation, error) {
	conf, err := s.book(ctx, req)
	s.metrics.ObserveBooking(bookingOutcome(conf, err))
	return conf, err
}

func (s *Service) book(ctx context.Context, req BookRequest) (Confirmation, error) {
	req, err := req.normalised()
	if err != nil {
		return Confirmation{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Confirmation{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	repo := s.repo.WithTx(tx)

	if req.IdempotencyKey != "" {
		rec, err := repo.LockIdempotencyKey(ctx, req.BusinessID, req.IdempotencyKey)
		if err != nil {
			return Confirmation{}, fmt.Errorf("lock idempotency key: %w", err)
		}
		if rec.Completed() {
			return replay(rec)
		}
	}

	if err := repo.LockProfessionalDay(ctx, req.ProfessionalID, req.Date); err != nil {
		return Confirmation{}, fmt.Errorf("lock professional day: %w", err)
	}

	offered, err := s.slots.Compute(ctx, repo, availability.Request{
		BusinessID:     req.BusinessID,
		ProfessionalID: req.ProfessionalID,
		ServiceID:      req.ServiceID,
		Date:           req.Date,
	})
	if err != nil {
		return Confirmation{}, err
	}
	if !slices.Contains(offered.AvailableSlots, req.Time) {
		return Confirmation{}, s.reject(ctx, tx, repo, req, http.StatusConflict, ErrSlotUnavailable)
	}

	if err := checkMonthlyLimit(ctx, repo, req.BusinessID, req.Date); err != nil {
		if errors.Is(err, ErrPlanLimitReached) {
			return Confirmation{}, s.reject(ctx, tx, repo, req, http.StatusPaymentRequired, err)
		}
		return Confirmation{}, fmt.Errorf("entitlements check: %w", err)
	}

	clientID, err := repo.UpsertClient(ctx, req.BusinessID, req.ClientName, req.ClientPhone)
	if err != nil {
		return Confirmation{}, fmt.Errorf("upsert client: %w", err)
	}
	appt := model.Appointment{
		BusinessID:     req.BusinessID,
		ProfessionalID: req.ProfessionalID,
		ServiceID:      req.ServiceID,
		ClientID:       clientID,
		ClientName:     req.ClientName,
		ClientPhone:    req.ClientPhone,
		Date:           req.Date,
		Time:           req.Time,
		Status:         model.StatusPending,
	}
	if err := repo.CreateAppointment(ctx, &appt); err != nil {
		if db.IsUniqueViolation(err) {
			return Confirmation{}, ErrSlotUnavailable
		}
		return Confirmation{}, fmt.Errorf("create appointment: %w", err)
	}

	evt, err := outbox.NewEvent("appointment", appt.ID, EventAppointmentBooked, map[string]any{
		"appointment_id":  appt.ID,
		"business_id":     appt.BusinessID,
		"professional_id": appt.ProfessionalID,
		"service_id":      appt.ServiceID,
		"client_id":       appt.ClientID,
		"client_phone":    appt.ClientPhone,
		"date":            appt.Date,
		"time":            appt.Time,
	})
	if err != nil {
		return Confirmation{}, err
	}
	if err := s.outbox.Insert(ctx, tx, evt); err != nil {
		return Confirmation{}, fmt.Errorf("write outbox event: %w", err)
	}

	conf := confirmation(appt)
	if req.IdempotencyKey != "" {
		body, err := json.Marshal(conf)
		if err != nil {
			return Confirmation{}, err
		}
		if err := repo.FinalizeIdempotency(ctx, req.BusinessID, req.IdempotencyKey, appt.ID, http.StatusCreated, body); err != nil {
			return Confirmation{}, fmt.Errorf("finalize idempotency key: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return Confirmation{}, fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("appointment booked",
		"appointment_id", appt.ID,
		"business_id", appt.BusinessID,
		"professional_id", appt.ProfessionalID,
		"date", appt.Date,
		"time", appt.Time,
	)
	return conf, nil
}

// reject records a definitive rejection under the idempotency key so a retry
// gets the same answer. Without a key nothing is written.
func (s *Service) reject(ctx context.Context, tx pgx.Tx, repo *storage.Repository, req BookRequest, status int, cause error) error {
	if req.IdempotencyKey == "" {
		return cause
	}
	if err := repo.FinalizeIdempotency(ctx, req.BusinessID, req.IdempotencyKey, "", status, nil); err != nil {
		s.logger.Error("finalize idempotency key failed", "err", err, "business_id", req.BusinessID)
		return cause
	}
	if err := tx.Commit(ctx); err != nil {
		s.logger.Error("commit rejected booking failed", "err", err, "business_id", req.BusinessID)
	}
	return cause
}

func replay(rec storage.IdempotencyRecord) (Confirmation, error) {
	switch rec.StatusCode {
	case http.StatusCreated:
		var conf Confirmation
		if err := json.Unmarshal(rec.ResponsePayload, &conf); err != nil {
			return Confirmation{}, fmt.Errorf("decode stored response: %w", err)
		}
		conf.Replayed = true
		return conf, nil
	case http.StatusConflict:
		return Confirmation{}, ErrSlotUnavailable
	case http.StatusPaymentRequired:
		return Confirmation{}, ErrPlanLimitReached
	default:
		return Confirmation{}, ErrIdempotencyReplay
	}
}

func checkMonthlyLimit(ctx context.Context, repo *storage.Repository, businessID, date string) error {
	ent, err := repo.Entitlements(ctx, businessID)
	if err != nil {
		return err
	}
	if ent.MaxMonthlyAppointments <= 0 {
		return nil
	}
	day, err := clock.ParseDate(date)
	if err != nil {
		return err
	}
	monthStart := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
	count, err := repo.CountInMonth(ctx, businessID,
		monthStart.Format(clock.DateLayout),
		monthStart.AddDate(0, 1, 0).Format(clock.DateLayout))
	if err != nil {
		return err
	}
	if count >= ent.MaxMonthlyAppointments {
		return ErrPlanLimitReached
	}
	return nil
}

// ChangeStatus applies a lifecycle transition. Setting the current status
// again is a no-op.
func (s *Service) ChangeStatus(ctx context.Context, businessID, appointmentID, rawStatus string) (model.Appointment, error) {
	to, err := model.ParseStatus(rawStatus)
	if err != nil {
		return model.Appointment{}, fmt.Errorf("%w: %s", availability.ErrInvalidRequest, err.Error())
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	repo := s.repo.WithTx(tx)

	appt, err := repo.AppointmentForUpdate(ctx, businessID, appointmentID)
	if err != nil {
		return model.Appointment{}, err
	}
	if appt.Status == to {
		return appt, nil
	}
	if !appt.Status.CanTransition(to) {
		return model.Appointment{}, fmt.Errorf("%w: %s to %s", model.ErrInvalidTransition, appt.Status, to)
	}
	if err := repo.UpdateStatus(ctx, businessID, appointmentID, to); err != nil {
		return model.Appointment{}, err
	}

	if to == model.StatusCancelled {
		evt, err := outbox.NewEvent("appointment", appt.ID, EventAppointmentCancelled, map[string]any{
			"appointment_id":  appt.ID,
			"business_id":     appt.BusinessID,
			"professional_id": appt.ProfessionalID,
			"date":            appt.Date,
			"time":            appt.Time,
			"previous_status": string(appt.Status),
		})
		if err != nil {
			return model.Appointment{}, err
		}
		if err := s.outbox.Insert(ctx, tx, evt); err != nil {
			return model.Appointment{}, fmt.Errorf("write outbox event: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("appointment status changed",
		"appointment_id", appt.ID,
		"business_id", businessID,
		"from", appt.Status,
		"to", to,
	)
	appt.Status = to
	return appt, nil
}

// List returns every appointment of the business on date.
func (s *Service) List(ctx context.Context, businessID, date string) ([]model.Appointment, error) {
	date = strings.TrimSpace(date)
	if _, err := clock.ParseDate(date); err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", availability.ErrInvalidRequest)
	}
	return s.repo.ListByDate(ctx, businessID, date)
}

func (r BookRequest) normalised() (BookRequest, error) {
	out := BookRequest{
		BusinessID:     strings.TrimSpace(r.BusinessID),
		ProfessionalID: strings.TrimSpace(r.ProfessionalID),
		ServiceID:      strings.TrimSpace(r.ServiceID),
		Date:           strings.TrimSpace(r.Date),
		ClientName:     strings.TrimSpace(r.ClientName),
		ClientPhone:    nonDigits.ReplaceAllString(r.ClientPhone, ""),
		IdempotencyKey: strings.TrimSpace(r.IdempotencyKey),
	}
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"businessId", out.BusinessID},
		{"professionalId", out.ProfessionalID},
		{"serviceId", out.ServiceID},
		{"date", out.Date},
		{"time", strings.TrimSpace(r.Time)},
		{"clientName", out.ClientName},
		{"clientPhone", out.ClientPhone},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return BookRequest{}, fmt.Errorf("%w: missing %s", availability.ErrInvalidRequest, strings.Join(missing, ", "))
	}
	if _, err := clock.ParseDate(out.Date); err != nil {
		return BookRequest{}, fmt.Errorf("%w: date must be YYYY-MM-DD", availability.ErrInvalidRequest)
	}
	minute, err := clock.ParseHHMM(r.Time)
	if err != nil {
		return BookRequest{}, fmt.Errorf("%w: time must be HH:MM", availability.ErrInvalidRequest)
	}
	out.Time = clock.FormatMinutes(minute)
	return out, nil
}

func confirmation(a model.Appointment) Confirmation {
	return Confirmation{
		AppointmentID:  a.ID,
		BusinessID:     a.BusinessID,
		ProfessionalID: a.ProfessionalID,
		ServiceID:      a.ServiceID,
		Date:           a.Date,
		Time:           a.Time,
		Status:         string(a.Status),
	}
}

func bookingOutcome(conf Confirmation, err error) string {
	switch {
	case err == nil && conf.Replayed:
		return "replayed"
	case err == nil:
		return "created"
	case errors.Is(err, ErrSlotUnavailable):
		return "conflict"
	case errors.Is(err, ErrPlanLimitReached):
		return "limit"
	case errors.Is(err, availability.ErrInvalidRequest):
		return "invalid"
	case errors.Is(err, availability.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
