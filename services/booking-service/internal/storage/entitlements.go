package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

func (r *Repository) UpsertEntitlements(ctx context.Context, ent model.Entitlements) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO business_entitlements (business_id, tier, max_monthly_appointments)
		VALUES ($1, $2, $3)
		ON CONFLICT (business_id)
		DO UPDATE SET tier = EXCLUDED.tier,
		              max_monthly_appointments = EXCLUDED.max_monthly_appointments,
		              updated_at = now()
	`, ent.BusinessID, ent.Tier, ent.MaxMonthlyAppointments)
	return err
}

// Entitlements falls back to the free tier when nothing has been received yet.
func (r *Repository) Entitlements(ctx context.Context, businessID string) (model.Entitlements, error) {
	ent := model.Entitlements{BusinessID: businessID}
	err := r.q.QueryRow(ctx, `
		SELECT tier, max_monthly_appointments
		FROM business_entitlements
		WHERE business_id = $1
	`, businessID).Scan(&ent.Tier, &ent.MaxMonthlyAppointments)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Entitlements{
			BusinessID:             businessID,
			Tier:                   model.FreeTier,
			MaxMonthlyAppointments: model.FreeMaxMonthlyAppointments,
		}, nil
	}
	return ent, err
}
