package grpcserver

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/slotbook/libs/rpc/availabilityv1"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/metrics"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type SlotComputer interface {
	AvailableSlots(ctx context.Context, req availability.Request) (availability.Response, error)
}

type server struct {
	slots   SlotComputer
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func Register(grpcServer grpc.ServiceRegistrar, slots SlotComputer, m *metrics.Metrics, logger *slog.Logger) {
	availabilityv1.RegisterAvailabilityServer(grpcServer, &server{slots: slots, metrics: m, logger: logger})
}

func (s *server) GetAvailableSlots(ctx context.Context, req availabilityv1.SlotsRequest) (availabilityv1.SlotsResponse, error) {
	start := time.Now()
	resp, err := s.slots.AvailableSlots(ctx, availability.Request{
		BusinessID:     req.BusinessID,
		ProfessionalID: req.ProfessionalID,
		ServiceID:      req.ServiceID,
		Date:           req.Date,
	})
	if err != nil {
		code := codeFor(err)
		s.metrics.ObserveSlots("grpc", outcome(code), time.Since(start), 0)
		if code == codes.Internal {
			s.logger.Error("slot computation failed", "err", err, "business_id", req.BusinessID)
			return availabilityv1.SlotsResponse{}, status.Error(code, "internal error")
		}
		return availabilityv1.SlotsResponse{}, status.Error(code, err.Error())
	}
	s.metrics.ObserveSlots("grpc", "ok", time.Since(start), len(resp.AvailableSlots))
	return availabilityv1.SlotsResponse{AvailableSlots: resp.AvailableSlots}, nil
}

func codeFor(err error) codes.Code {
	switch {
	case errors.Is(err, availability.ErrInvalidRequest):
		return codes.InvalidArgument
	case errors.Is(err, availability.ErrNotFound):
		return codes.NotFound
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	default:
		return codes.Internal
	}
}

func outcome(code codes.Code) string {
	switch code {
	case codes.InvalidArgument:
		return "invalid"
	case codes.NotFound:
		return "not_found"
	default:
		return "error"
	}
}
