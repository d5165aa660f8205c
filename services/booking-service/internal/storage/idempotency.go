package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

type IdempotencyRecord struct {
	BusinessID      string
	IdempotencyKey  string
	AppointmentID   string
	StatusCode      int
	ResponsePayload []byte
}

// Completed reports whether a response was already stored for the key.
func (rec IdempotencyRecord) Completed() bool {
	return rec.StatusCode > 0
}

// LockIdempotencyKey creates the key row if needed and locks it for the
// rest of the transaction.
func (r *Repository) LockIdempotencyKey(ctx context.Context, businessID, key string) (IdempotencyRecord, error) {
	rec, err := r.selectIdempotencyForUpdate(ctx, businessID, key)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return IdempotencyRecord{}, err
	}

	if _, err := r.q.Exec(ctx, `
		INSERT INTO booking_idempotency_keys (business_id, idempotency_key)
		VALUES ($1, $2)
		ON CONFLICT (business_id, idempotency_key) DO NOTHING
	`, businessID, key); err != nil {
		return IdempotencyRecord{}, err
	}
	return r.selectIdempotencyForUpdate(ctx, businessID, key)
}

func (r *Repository) FinalizeIdempotency(ctx context.Context, businessID, key, appointmentID string, statusCode int, response []byte) error {
	_, err := r.q.Exec(ctx, `
		UPDATE booking_idempotency_keys
		SET appointment_id = NULLIF($3, '')::uuid,
		    status_code = $4,
		    response_payload = $5,
		    updated_at = now()
		WHERE business_id = $1 AND idempotency_key = $2
	`, businessID, key, appointmentID, statusCode, response)
	return err
}

func (r *Repository) selectIdempotencyForUpdate(ctx context.Context, businessID, key string) (IdempotencyRecord, error) {
	var (
		rec  IdempotencyRecord
		body string
	)
	err := r.q.QueryRow(ctx, `
		SELECT business_id::text,
		       idempotency_key,
		       COALESCE(appointment_id::text, ''),
		       COALESCE(status_code, 0),
		       COALESCE(response_payload::text, '')
		FROM booking_idempotency_keys
		WHERE business_id = $1 AND idempotency_key = $2
		FOR UPDATE
	`, businessID, key).Scan(&rec.BusinessID, &rec.IdempotencyKey, &rec.AppointmentID, &rec.StatusCode, &body)
	if err != nil {
		return IdempotencyRecord{}, err
	}
	if body != "" {
		rec.ResponsePayload = []byte(body)
	}
	return rec, nil
}
