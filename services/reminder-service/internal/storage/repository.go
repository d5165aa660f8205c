package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/slotbook/libs/db"
	"github.com/md-rashed-zaman/slotbook/libs/outbox"
	"github.com/md-rashed-zaman/slotbook/services/reminder-service/internal/reminders"
)

// Repository implements reminders.Store on postgres. Business reminder
// settings missing from reminder_configs take the policy defaults.
type Repository struct {
	pool   db.TxQuerier
	outbox *outbox.Repository
}

func New(pool db.TxQuerier, outboxRepo *outbox.Repository) *Repository {
	return &Repository{pool: pool, outbox: outboxRepo}
}

func (r *Repository) Candidates(ctx context.Context, fromDate, toDate string) ([]reminders.Candidate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id::text, a.business_id::text, a.date::text, a.time,
		       c.name, c.phone, s.name, p.name, b.name,
		       COALESCE(b.timezone, ''), COALESCE(b.whatsapp_instance, ''),
		       COALESCE(rc.same_day_enabled, true),
		       COALESCE(rc.same_day_hours_before, 2),
		       COALESCE(rc.previous_day_enabled, true),
		       COALESCE(rc.early_threshold_hour, '09:00'),
		       COALESCE(rc.previous_day_time, '19:00')
		FROM appointments a
		JOIN businesses b ON b.id = a.business_id
		JOIN clients c ON c.id = a.client_id
		JOIN services s ON s.id = a.service_id
		JOIN professionals p ON p.id = a.professional_id
		LEFT JOIN reminder_configs rc ON rc.business_id = a.business_id
		WHERE a.status IN ('pending', 'confirmed')
		  AND a.reminder_sent = false
		  AND a.date BETWEEN $1::date AND $2::date
		  AND COALESCE(rc.same_day_enabled, true)
		ORDER BY a.date, a.time, a.id
	`, fromDate, toDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []reminders.Candidate
	for rows.Next() {
		var c reminders.Candidate
		if err := rows.Scan(
			&c.AppointmentID, &c.BusinessID, &c.Date, &c.Time,
			&c.ClientName, &c.ClientPhone, &c.ServiceName, &c.ProfessionalName, &c.BusinessName,
			&c.Timezone, &c.WhatsAppInstance,
			&c.Config.SameDayEnabled, &c.Config.SameDayHoursBefore, &c.Config.PreviousDayEnabled,
			&c.Config.EarlyThreshold, &c.Config.PreviousDayTime,
		); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Claim takes a lease on the appointment. It fails when the reminder was
// sent or another run holds an unexpired lease.
func (r *Repository) Claim(ctx context.Context, appointmentID string, lease time.Duration) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET reminder_claimed_at = now()
		WHERE id = $1
		  AND reminder_sent = false
		  AND status IN ('pending', 'confirmed')
		  AND (reminder_claimed_at IS NULL OR reminder_claimed_at < now() - make_interval(secs => $2))
	`, appointmentID, lease.Seconds())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// MarkSent flips reminder_sent false->true and queues evt in the same
// transaction. It reports false when the flag was already set.
func (r *Repository) MarkSent(ctx context.Context, appointmentID string, evt outbox.Event) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE appointments
		SET reminder_sent = true, reminder_sent_at = now(), reminder_claimed_at = NULL
		WHERE id = $1 AND reminder_sent = false
	`, appointmentID)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	if evt.EventType != "" {
		if err := r.outbox.Insert(ctx, tx, evt); err != nil {
			return false, fmt.Errorf("write outbox event: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Release drops the lease after a failed send so the next run can retry.
func (r *Repository) Release(ctx context.Context, appointmentID string, evt outbox.Event) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		UPDATE appointments
		SET reminder_claimed_at = NULL
		WHERE id = $1 AND reminder_sent = false
	`, appointmentID); err != nil {
		return err
	}
	if evt.EventType != "" {
		if err := r.outbox.Insert(ctx, tx, evt); err != nil {
			return fmt.Errorf("write outbox event: %w", err)
		}
	}
	return tx.Commit(ctx)
}
