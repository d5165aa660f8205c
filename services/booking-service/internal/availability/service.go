// Package availability computes bookable start times for a professional on
// one date and exposes that computation to the HTTP and gRPC layers.
package availability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotbook/libs/clock"
	otelx "github.com/md-rashed-zaman/slotbook/libs/otel"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/occupancy"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/schedule"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotFound       = errors.New("not found")
)

type Request struct {
	BusinessID     string `json:"businessId"`
	ProfessionalID string `json:"professionalId"`
	ServiceID      string `json:"serviceId"`
	Date           string `json:"date"`
}

type Response struct {
	AvailableSlots []string `json:"availableSlots"`
}

// Store is the tenant-scoped read side the computation needs. It is
// implemented by *storage.Repository over the pool or a transaction.
type Store interface {
	Business(ctx context.Context, businessID string) (model.Business, error)
	Service(ctx context.Context, businessID, serviceID string) (model.Service, error)
	AppointmentsOn(ctx context.Context, businessID, professionalID, date string) ([]model.Appointment, error)
	BlocksOn(ctx context.Context, professionalID, date string) ([]model.ProfessionalBlock, error)
	ServiceDurations(ctx context.Context, businessID string, serviceIDs []string) (map[string]int, error)
}

type ScheduleSource interface {
	ProfessionalSchedule(ctx context.Context, businessID, professionalID string) (model.WeeklySchedule, error)
}

type Service struct {
	store     Store
	schedules ScheduleSource
	clock     clock.Clock
	fallback  *time.Location
	logger    *slog.Logger
}

// NewService wires the computation. fallback is the zone used for businesses
// without one; nil means clock.Legacy.
func NewService(store Store, schedules ScheduleSource, clk clock.Clock, fallback *time.Location, logger *slog.Logger) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	if fallback == nil {
		fallback = clock.Legacy
	}
	return &Service{store: store, schedules: schedules, clock: clk, fallback: fallback, logger: logger}
}

func (s *Service) AvailableSlots(ctx context.Context, req Request) (Response, error) {
	return s.Compute(ctx, s.store, req)
}

// Compute runs the computation against store, which lets booking reuse it
// inside its locking transaction.
func (s *Service) Compute(ctx context.Context, store Store, req Request) (Response, error) {
	ctx, span := otelx.Tracer("availability").Start(ctx, "availability.Compute")
	defer span.End()
	span.SetAttributes(
		attribute.String("business.id", req.BusinessID),
		attribute.String("professional.id", req.ProfessionalID),
		attribute.String("date", req.Date),
	)

	resp, err := s.compute(ctx, store, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Response{}, err
	}
	span.SetAttributes(attribute.Int("slots", len(resp.AvailableSlots)))
	return resp, nil
}

func (s *Service) compute(ctx context.Context, store Store, req Request) (Response, error) {
	req = req.normalised()
	day, err := req.validate()
	if err != nil {
		return Response{}, err
	}

	business, err := store.Business(ctx, req.BusinessID)
	if err != nil {
		return Response{}, lookupErr(err)
	}
	svc, err := store.Service(ctx, req.BusinessID, req.ServiceID)
	if err != nil {
		return Response{}, lookupErr(err)
	}
	if !svc.Active {
		return Response{}, fmt.Errorf("%w: service %s is inactive", ErrNotFound, svc.ID)
	}
	loc := clock.Resolve(business.Timezone, s.fallback)
	now := s.clock.Now()
	today := clock.Date(now, loc)
	empty := Response{AvailableSlots: []string{}}
	if req.Date < today {
		return empty, nil
	}

	weekly, err := s.schedules.ProfessionalSchedule(ctx, req.BusinessID, req.ProfessionalID)
	if err != nil {
		return Response{}, lookupErr(err)
	}
	daySchedule := schedule.Resolve(weekly, day)
	if !daySchedule.Active || len(daySchedule.Intervals) == 0 {
		return empty, nil
	}

	appts, err := store.AppointmentsOn(ctx, req.BusinessID, req.ProfessionalID, req.Date)
	if err != nil {
		return Response{}, fmt.Errorf("load appointments: %w", err)
	}
	blocks, err := store.BlocksOn(ctx, req.ProfessionalID, req.Date)
	if err != nil {
		return Response{}, fmt.Errorf("load blocks: %w", err)
	}
	durations, err := store.ServiceDurations(ctx, req.BusinessID, serviceIDs(appts))
	if err != nil {
		return Response{}, fmt.Errorf("load service durations: %w", err)
	}

	busy, err := occupancy.Collect(req.Date, appts, blocks, func(id string) (int, bool) {
		d, ok := durations[id]
		return d, ok
	})
	if err != nil {
		s.logger.Warn("occupancy degraded",
			"err", err,
			"business_id", req.BusinessID,
			"professional_id", req.ProfessionalID,
			"date", req.Date,
		)
	}

	slots := GenerateSlots(daySchedule.Intervals, svc.DurationMinutes, busy, req.Date == today, clock.MinuteOfDay(now, loc))
	return Response{AvailableSlots: slots}, nil
}

// Location returns the zone slot computation uses for the business.
func (s *Service) Location(business model.Business) *time.Location {
	return clock.Resolve(business.Timezone, s.fallback)
}

func (r Request) normalised() Request {
	return Request{
		BusinessID:     strings.TrimSpace(r.BusinessID),
		ProfessionalID: strings.TrimSpace(r.ProfessionalID),
		ServiceID:      strings.TrimSpace(r.ServiceID),
		Date:           strings.TrimSpace(r.Date),
	}
}

func (r Request) validate() (time.Time, error) {
	var missing []string
	if r.BusinessID == "" {
		missing = append(missing, "businessId")
	}
	if r.ProfessionalID == "" {
		missing = append(missing, "professionalId")
	}
	if r.ServiceID == "" {
		missing = append(missing, "serviceId")
	}
	if r.Date == "" {
		missing = append(missing, "date")
	}
	if len(missing) > 0 {
		return time.Time{}, fmt.Errorf("%w: missing %s", ErrInvalidRequest, strings.Join(missing, ", "))
	}
	day, err := clock.ParseDate(r.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidRequest)
	}
	return day, nil
}

func lookupErr(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, err.Error())
	}
	return err
}

func serviceIDs(appts []model.Appointment) []string {
	seen := make(map[string]struct{}, len(appts))
	ids := make([]string, 0, len(appts))
	for _, a := range appts {
		if _, ok := seen[a.ServiceID]; ok || a.ServiceID == "" {
			continue
		}
		seen[a.ServiceID] = struct{}{}
		ids = append(ids, a.ServiceID)
	}
	return ids
}
