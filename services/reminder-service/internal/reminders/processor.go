// Package reminders runs the reminder batch: pick candidate appointments,
// ask the timing policy, claim, send over WhatsApp and record the outcome.
package reminders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/slotbook/libs/clock"
	otelx "github.com/md-rashed-zaman/slotbook/libs/otel"
	"github.com/md-rashed-zaman/slotbook/libs/outbox"
	"github.com/md-rashed-zaman/slotbook/services/reminder-service/internal/metrics"
	"github.com/md-rashed-zaman/slotbook/services/reminder-service/internal/policy"
	"github.com/md-rashed-zaman/slotbook/services/reminder-service/internal/whatsapp"
	"go.opentelemetry.io/otel/attribute"
)

const (
	StatusSent    = "sent"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"

	EventReminderSent   = "reminder.sent.v1"
	EventReminderFailed = "reminder.failed.v1"
)

const (
	reasonClaimed     = "claimed by another run"
	reasonAlreadySent = "already sent by another run"
)

// leaseMargin is how much longer than SendTimeout a claim must live, so it
// also covers rendering and recording the send.
const leaseMargin = 30 * time.Second

// Candidate is an appointment that may need a reminder, joined with what the
// policy and the message need.
type Candidate struct {
	AppointmentID    string
	BusinessID       string
	Date             string
	Time             string
	ClientName       string
	ClientPhone      string
	ServiceName      string
	ProfessionalName string
	BusinessName     string
	Timezone         string
	WhatsAppInstance string
	Config           policy.Config
}

// Store is the persistence the batch needs. Claim and MarkSent are
// conditional writes and report whether they applied.
type Store interface {
	Candidates(ctx context.Context, fromDate, toDate string) ([]Candidate, error)
	Claim(ctx context.Context, appointmentID string, lease time.Duration) (bool, error)
	MarkSent(ctx context.Context, appointmentID string, evt outbox.Event) (bool, error)
	Release(ctx context.Context, appointmentID string, evt outbox.Event) error
}

type Outcome struct {
	AppointmentID string `json:"appointmentId"`
	Status        string `json:"status"`
	Reason        string `json:"reason,omitempty"`
	Error         string `json:"error,omitempty"`
}

type Report struct {
	Success   bool      `json:"success"`
	Processed []Outcome `json:"processed"`
}

type Config struct {
	SendTimeout time.Duration
	ClaimLease  time.Duration
	Fallback    *time.Location
}

type Processor struct {
	store    Store
	sender   whatsapp.Sender
	renderer *whatsapp.Renderer
	clock    clock.Clock
	metrics  *metrics.Metrics
	logger   *slog.Logger
	cfg      Config
}

func NewProcessor(store Store, sender whatsapp.Sender, renderer *whatsapp.Renderer, clk clock.Clock, m *metrics.Metrics, logger *slog.Logger, cfg Config) *Processor {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if cfg.ClaimLease <= 0 {
		cfg.ClaimLease = 5 * time.Minute
	}
	if floor := cfg.SendTimeout + leaseMargin; cfg.ClaimLease < floor {
		if logger != nil {
			logger.Warn("claim lease raised above send timeout", "configured", cfg.ClaimLease, "lease", floor)
		}
		cfg.ClaimLease = floor
	}
	if cfg.Fallback == nil {
		cfg.Fallback = clock.Legacy
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &Processor{store: store, sender: sender, renderer: renderer, clock: clk, metrics: m, logger: logger, cfg: cfg}
}

// Run processes one batch. Per-appointment failures are reported in the
// Report; only a failure to load candidates returns an error.
func (p *Processor) Run(ctx context.Context) (Report, error) {
	ctx, span := otelx.Tracer("reminders").Start(ctx, "reminders.Run")
	defer span.End()
	start := time.Now()

	now := p.clock.Now()
	// Business zones sit within a day of UTC, so one extra day each side
	// covers every local "today" and the previous-day reminders for tomorrow.
	today := now.UTC().Truncate(24 * time.Hour)
	from := today.AddDate(0, 0, -1).Format(clock.DateLayout)
	to := today.AddDate(0, 0, 2).Format(clock.DateLayout)

	candidates, err := p.store.Candidates(ctx, from, to)
	if err != nil {
		span.RecordError(err)
		return Report{}, fmt.Errorf("load reminder candidates: %w", err)
	}

	report := Report{Success: true, Processed: make([]Outcome, 0, len(candidates))}
	for _, c := range candidates {
		if ctx.Err() != nil {
			break
		}
		out := p.processOne(ctx, c, now)
		p.metrics.ObserveOutcome(out.Status, out.Reason)
		report.Processed = append(report.Processed, out)
	}

	span.SetAttributes(attribute.Int("reminders.candidates", len(candidates)))
	p.metrics.ObserveBatch(time.Since(start))
	return report, nil
}

func (p *Processor) processOne(ctx context.Context, c Candidate, now time.Time) (out Outcome) {
	out = Outcome{AppointmentID: c.AppointmentID}
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.Error("reminder processing panic", "appointment_id", c.AppointmentID, "panic", rec)
			out = Outcome{AppointmentID: c.AppointmentID, Status: StatusFailed, Error: fmt.Sprintf("panic: %v", rec)}
		}
	}()

	loc := clock.Resolve(c.Timezone, p.cfg.Fallback)
	decision, err := policy.Decide(c.Date, c.Time, c.Config, now, loc)
	if err != nil {
		p.logger.Warn("reminder skipped on malformed data", "appointment_id", c.AppointmentID, "err", err)
		out.Status, out.Error = StatusFailed, err.Error()
		return out
	}
	if !decision.Send {
		out.Status, out.Reason = StatusSkipped, decision.Reason
		return out
	}

	claimed, err := p.store.Claim(ctx, c.AppointmentID, p.cfg.ClaimLease)
	if err != nil {
		out.Status, out.Error = StatusFailed, fmt.Sprintf("claim: %v", err)
		return out
	}
	if !claimed {
		out.Status, out.Reason = StatusSkipped, reasonClaimed
		return out
	}

	text, err := p.renderer.Render(whatsapp.Message{
		ClientName:       c.ClientName,
		ServiceName:      c.ServiceName,
		ProfessionalName: c.ProfessionalName,
		BusinessName:     c.BusinessName,
		Date:             c.Date,
		Time:             c.Time,
	})
	if err == nil {
		sendCtx, cancel := context.WithTimeout(ctx, p.cfg.SendTimeout)
		err = p.sender.Send(sendCtx, c.WhatsAppInstance, c.ClientPhone, text)
		cancel()
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("send timed out after %s: %w", p.cfg.SendTimeout, err)
		}
		p.logger.Error("reminder send failed", "appointment_id", c.AppointmentID, "business_id", c.BusinessID, "err", err)
		if relErr := p.store.Release(ctx, c.AppointmentID, p.event(EventReminderFailed, c, decision, err)); relErr != nil {
			p.logger.Error("reminder release failed", "appointment_id", c.AppointmentID, "err", relErr)
		}
		out.Status, out.Error = StatusFailed, err.Error()
		return out
	}

	applied, err := p.store.MarkSent(ctx, c.AppointmentID, p.event(EventReminderSent, c, decision, nil))
	switch {
	case err != nil:
		// The claim lease keeps other runs away until it expires.
		p.logger.Error("reminder sent but not recorded", "appointment_id", c.AppointmentID, "err", err)
	case !applied:
		p.logger.Warn("reminder flag already set", "appointment_id", c.AppointmentID)
		out.Status, out.Reason = StatusSkipped, reasonAlreadySent
		return out
	default:
		p.logger.Info("reminder sent", "appointment_id", c.AppointmentID, "business_id", c.BusinessID, "provider", p.sender.ProviderID())
	}
	out.Status = StatusSent
	return out
}

func (p *Processor) event(eventType string, c Candidate, d policy.Decision, sendErr error) outbox.Event {
	payload := map[string]any{
		"appointment_id": c.AppointmentID,
		"business_id":    c.BusinessID,
		"date":           c.Date,
		"time":           c.Time,
		"target_at":      d.Target.UTC().Format(time.RFC3339),
		"provider":       p.sender.ProviderID(),
	}
	if sendErr != nil {
		payload["error"] = sendErr.Error()
	}
	evt, err := outbox.NewEvent("appointment", c.AppointmentID, eventType, payload)
	if err != nil {
		p.logger.Error("build reminder event failed", "err", err)
	}
	return evt
}
