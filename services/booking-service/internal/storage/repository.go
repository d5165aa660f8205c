package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/slotbook/libs/db"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

var ErrNotFound = errors.New("not found")

// Repository runs every query against q, which is the pool or an open transaction.
type Repository struct {
	q db.Querier
}

func New(q db.Querier) *Repository {
	return &Repository{q: q}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx pgx.Tx) *Repository {
	return &Repository{q: tx}
}

func (r *Repository) Business(ctx context.Context, businessID string) (model.Business, error) {
	var b model.Business
	err := r.q.QueryRow(ctx, `
		SELECT id::text, name, COALESCE(timezone, ''), COALESCE(whatsapp_instance, '')
		FROM businesses
		WHERE id = $1
	`, businessID).Scan(&b.ID, &b.Name, &b.Timezone, &b.WhatsAppInstance)
	if err != nil {
		return model.Business{}, notFound(err, "business %s", businessID)
	}
	return b, nil
}

func (r *Repository) Service(ctx context.Context, businessID, serviceID string) (model.Service, error) {
	var s model.Service
	err := r.q.QueryRow(ctx, `
		SELECT id::text, business_id::text, name, duration_minutes, price_cents, active
		FROM services
		WHERE id = $1 AND business_id = $2
	`, serviceID, businessID).Scan(&s.ID, &s.BusinessID, &s.Name, &s.DurationMinutes, &s.PriceCents, &s.Active)
	if err != nil {
		return model.Service{}, notFound(err, "service %s", serviceID)
	}
	return s, nil
}

// ServiceDurations returns duration_minutes keyed by service id. Unknown ids are absent.
func (r *Repository) ServiceDurations(ctx context.Context, businessID string, serviceIDs []string) (map[string]int, error) {
	out := make(map[string]int, len(serviceIDs))
	if len(serviceIDs) == 0 {
		return out, nil
	}
	rows, err := r.q.Query(ctx, `
		SELECT id::text, duration_minutes
		FROM services
		WHERE business_id = $1 AND id::text = ANY($2)
	`, businessID, serviceIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id string
			d  int
		)
		if err := rows.Scan(&id, &d); err != nil {
			return nil, err
		}
		out[id] = d
	}
	return out, rows.Err()
}

// ProfessionalSchedule returns the weekly schedule JSON. A professional
// without a schedule yields an empty schedule, not an error.
func (r *Repository) ProfessionalSchedule(ctx context.Context, businessID, professionalID string) (model.WeeklySchedule, error) {
	var raw []byte
	err := r.q.QueryRow(ctx, `
		SELECT weekly_schedule
		FROM professionals
		WHERE id = $1 AND business_id = $2
	`, professionalID, businessID).Scan(&raw)
	if err != nil {
		return nil, notFound(err, "professional %s", professionalID)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return model.WeeklySchedule{}, nil
	}
	var weekly model.WeeklySchedule
	if err := json.Unmarshal(raw, &weekly); err != nil {
		return nil, fmt.Errorf("decode weekly schedule of professional %s: %w", professionalID, err)
	}
	return weekly, nil
}

func (r *Repository) BlocksOn(ctx context.Context, professionalID, date string) ([]model.ProfessionalBlock, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id::text, professional_id::text, start_date::text, end_date::text, start_time, end_time, COALESCE(reason, '')
		FROM professional_blocks
		WHERE professional_id = $1
		  AND start_date <= $2::date
		  AND end_date >= $2::date
		ORDER BY start_date, id
	`, professionalID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var blocks []model.ProfessionalBlock
	for rows.Next() {
		var b model.ProfessionalBlock
		if err := rows.Scan(&b.ID, &b.ProfessionalID, &b.StartDate, &b.EndDate, &b.StartTime, &b.EndTime, &b.Reason); err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}

// LockProfessionalDay serialises bookings for one professional and date until
// the surrounding transaction ends.
func (r *Repository) LockProfessionalDay(ctx context.Context, professionalID, date string) error {
	_, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, professionalID+"|"+date)
	return err
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
	}
	return err
}
