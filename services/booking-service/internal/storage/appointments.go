package storage

import (
	"context"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

const appointmentColumns = `
	a.id::text, a.business_id::text, a.professional_id::text, a.service_id::text, a.client_id::text,
	c.name, c.phone, a.date::text, a.time, a.status, a.reminder_sent, a.created_at`

func scanAppointment(row interface{ Scan(...any) error }) (model.Appointment, error) {
	var a model.Appointment
	err := row.Scan(&a.ID, &a.BusinessID, &a.ProfessionalID, &a.ServiceID, &a.ClientID,
		&a.ClientName, &a.ClientPhone, &a.Date, &a.Time, &a.Status, &a.ReminderSent, &a.CreatedAt)
	return a, err
}

// AppointmentsOn returns the professional's non-cancelled appointments on date.
func (r *Repository) AppointmentsOn(ctx context.Context, businessID, professionalID, date string) ([]model.Appointment, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		JOIN clients c ON c.id = a.client_id
		WHERE a.business_id = $1
		  AND a.professional_id = $2
		  AND a.date = $3::date
		  AND a.status <> 'cancelled'
		ORDER BY a.time
	`, businessID, professionalID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListByDate returns every appointment of the business on date, cancelled included.
func (r *Repository) ListByDate(ctx context.Context, businessID, date string) ([]model.Appointment, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		JOIN clients c ON c.id = a.client_id
		WHERE a.business_id = $1 AND a.date = $2::date
		ORDER BY a.time, a.created_at
	`, businessID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpsertClient finds or creates the client by phone within the business.
func (r *Repository) UpsertClient(ctx context.Context, businessID, name, phone string) (string, error) {
	var id string
	err := r.q.QueryRow(ctx, `
		INSERT INTO clients (business_id, name, phone)
		VALUES ($1, $2, $3)
		ON CONFLICT (business_id, phone)
		DO UPDATE SET name = EXCLUDED.name, updated_at = now()
		RETURNING id::text
	`, businessID, name, phone).Scan(&id)
	return id, err
}

func (r *Repository) CreateAppointment(ctx context.Context, a *model.Appointment) error {
	return r.q.QueryRow(ctx, `
		INSERT INTO appointments (business_id, professional_id, service_id, client_id, date, time, status)
		VALUES ($1, $2, $3, $4, $5::date, $6, $7)
		RETURNING id::text, created_at
	`, a.BusinessID, a.ProfessionalID, a.ServiceID, a.ClientID, a.Date, a.Time, a.Status).Scan(&a.ID, &a.CreatedAt)
}

func (r *Repository) AppointmentForUpdate(ctx context.Context, businessID, appointmentID string) (model.Appointment, error) {
	a, err := scanAppointment(r.q.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		JOIN clients c ON c.id = a.client_id
		WHERE a.id = $1 AND a.business_id = $2
		FOR UPDATE OF a
	`, appointmentID, businessID))
	if err != nil {
		return model.Appointment{}, notFound(err, "appointment %s", appointmentID)
	}
	return a, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, businessID, appointmentID string, status model.Status) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE appointments
		SET status = $3, updated_at = now()
		WHERE id = $1 AND business_id = $2
	`, appointmentID, businessID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFound(ErrNotFound, "appointment %s", appointmentID)
	}
	return nil
}

// CountInMonth counts non-cancelled appointments dated in [monthStart, nextMonth).
func (r *Repository) CountInMonth(ctx context.Context, businessID, monthStart, nextMonth string) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM appointments
		WHERE business_id = $1
		  AND status <> 'cancelled'
		  AND date >= $2::date
		  AND date < $3::date
	`, businessID, monthStart, nextMonth).Scan(&n)
	return n, err
}
