// Package inbox de-duplicates consumed Kafka events by recording their ids
// in the same transaction as the handler's writes.
package inbox

import (
	"context"

	"github.com/md-rashed-zaman/slotbook/libs/db"
)

type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

// Record reports false when the event was already processed.
func (r *Repository) Record(ctx context.Context, q db.Querier, eventID string, eventType string) (bool, error) {
	_, err := q.Exec(ctx, `
		INSERT INTO inbox_events (event_id, event_type)
		VALUES ($1, $2)
	`, eventID, eventType)
	if err == nil {
		return true, nil
	}
	if db.IsUniqueViolation(err) {
		return false, nil
	}
	return false, err
}
