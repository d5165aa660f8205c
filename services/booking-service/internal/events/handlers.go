// Package events applies Kafka events consumed by booking-service.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/slotbook/libs/inbox"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
	"github.com/segmentio/kafka-go"
)

const (
	TopicSubscriptionActivated = "billing.subscription.activated.v1"
	TopicSubscriptionCanceled  = "billing.subscription.canceled.v1"
	TopicProfessionalUpdated   = "business.professional.updated.v1"
)

type ScheduleInvalidator interface {
	Invalidate(ctx context.Context, businessID, professionalID string) error
}

// Entitlements keeps the local subscription limits in sync. A cancellation
// without explicit limits falls back to the free tier.
func Entitlements(repo *storage.Repository, m *metrics.Metrics, logger *slog.Logger) inbox.Handler {
	return func(ctx context.Context, tx pgx.Tx, msg kafka.Message) error {
		var payload struct {
			BusinessID             string `json:"business_id"`
			Tier                   string `json:"tier"`
			MaxMonthlyAppointments int    `json:"max_monthly_appointments"`
		}
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Error("invalid event payload", "err", err, "topic", msg.Topic)
			m.ObserveEvent(msg.Topic, "invalid")
			return nil
		}
		payload.BusinessID = strings.TrimSpace(payload.BusinessID)
		if payload.BusinessID == "" {
			logger.Error("missing business_id", "topic", msg.Topic)
			m.ObserveEvent(msg.Topic, "invalid")
			return nil
		}

		ent := model.Entitlements{
			BusinessID:             payload.BusinessID,
			Tier:                   payload.Tier,
			MaxMonthlyAppointments: payload.MaxMonthlyAppointments,
		}
		if ent.Tier == "" || ent.MaxMonthlyAppointments <= 0 {
			if msg.Topic != TopicSubscriptionCanceled {
				logger.Error("missing entitlement fields", "topic", msg.Topic, "business_id", ent.BusinessID)
				m.ObserveEvent(msg.Topic, "invalid")
				return nil
			}
			ent.Tier = model.FreeTier
			ent.MaxMonthlyAppointments = model.FreeMaxMonthlyAppointments
		}

		if err := repo.WithTx(tx).UpsertEntitlements(ctx, ent); err != nil {
			m.ObserveEvent(msg.Topic, "error")
			return err
		}
		logger.Info("entitlements updated", "business_id", ent.BusinessID, "tier", ent.Tier, "max_monthly_appointments", ent.MaxMonthlyAppointments)
		m.ObserveEvent(msg.Topic, "applied")
		return nil
	}
}

// ScheduleChanged drops the cached weekly schedule of an edited professional.
func ScheduleChanged(cache ScheduleInvalidator, m *metrics.Metrics, logger *slog.Logger) inbox.Handler {
	return func(ctx context.Context, _ pgx.Tx, msg kafka.Message) error {
		var payload struct {
			BusinessID     string `json:"business_id"`
			ProfessionalID string `json:"professional_id"`
		}
		if err := json.Unmarshal(msg.Value, &payload); err != nil || payload.BusinessID == "" || payload.ProfessionalID == "" {
			logger.Error("invalid professional update payload", "err", err, "topic", msg.Topic)
			m.ObserveEvent(msg.Topic, "invalid")
			return nil
		}
		if err := cache.Invalidate(ctx, payload.BusinessID, payload.ProfessionalID); err != nil {
			m.ObserveEvent(msg.Topic, "error")
			return err
		}
		m.ObserveEvent(msg.Topic, "applied")
		return nil
	}
}
