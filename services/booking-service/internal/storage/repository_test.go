package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func strPtr(s string) *string { return &s }

func TestProfessionalScheduleDecodesJSON(t *testing.T) {
	mock := newMock(t)
	raw := []byte(`[{"day":"Monday","active":true,"intervals":[{"start":"09:00","end":"12:00"}]}]`)
	mock.ExpectQuery("FROM professionals").
		WithArgs("pro-1", "biz-1").
		WillReturnRows(pgxmock.NewRows([]string{"weekly_schedule"}).AddRow(raw))

	weekly, err := New(mock).ProfessionalSchedule(context.Background(), "biz-1", "pro-1")
	require.NoError(t, err)
	require.Len(t, weekly, 1)
	assert.Equal(t, "Monday", weekly[0].Day)
	assert.Equal(t, []model.TimeInterval{{Start: "09:00", End: "12:00"}}, weekly[0].Intervals)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProfessionalScheduleNullIsEmpty(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery("FROM professionals").
		WithArgs("pro-1", "biz-1").
		WillReturnRows(pgxmock.NewRows([]string{"weekly_schedule"}).AddRow([]byte(nil)))

	weekly, err := New(mock).ProfessionalSchedule(context.Background(), "biz-1", "pro-1")
	require.NoError(t, err)
	assert.Empty(t, weekly)
}

func TestProfessionalScheduleNotFound(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery("FROM professionals").
		WithArgs("pro-x", "biz-1").
		WillReturnError(pgx.ErrNoRows)

	_, err := New(mock).ProfessionalSchedule(context.Background(), "biz-1", "pro-x")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestServiceDurations(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery("FROM services").
		WithArgs("biz-1", []string{"cut", "color"}).
		WillReturnRows(pgxmock.NewRows([]string{"id", "duration_minutes"}).
			AddRow("cut", 30).
			AddRow("color", 90))

	got, err := New(mock).ServiceDurations(context.Background(), "biz-1", []string{"cut", "color"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"cut": 30, "color": 90}, got)

	empty, err := New(mock).ServiceDurations(context.Background(), "biz-1", nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBlocksOn(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery("FROM professional_blocks").
		WithArgs("pro-1", "2024-06-03").
		WillReturnRows(pgxmock.NewRows([]string{"id", "professional_id", "start_date", "end_date", "start_time", "end_time", "reason"}).
			AddRow("b1", "pro-1", "2024-06-01", "2024-06-05", (*string)(nil), (*string)(nil), "vacation").
			AddRow("b2", "pro-1", "2024-06-03", "2024-06-03", strPtr("15:00"), strPtr("16:00"), ""))

	blocks, err := New(mock).BlocksOn(context.Background(), "pro-1", "2024-06-03")
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Nil(t, blocks[0].StartTime)
	require.NotNil(t, blocks[1].StartTime)
	assert.Equal(t, "15:00", *blocks[1].StartTime)
}

func TestAppointmentsOn(t *testing.T) {
	mock := newMock(t)
	created := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM appointments a").
		WithArgs("biz-1", "pro-1", "2024-06-03").
		WillReturnRows(pgxmock.NewRows([]string{"id", "business_id", "professional_id", "service_id", "client_id", "name", "phone", "date", "time", "status", "reminder_sent", "created_at"}).
			AddRow("a1", "biz-1", "pro-1", "cut", "c1", "Ana", "5511999990000", "2024-06-03", "10:00", model.StatusConfirmed, false, created))

	appts, err := New(mock).AppointmentsOn(context.Background(), "biz-1", "pro-1", "2024-06-03")
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, "10:00", appts[0].Time)
	assert.Equal(t, model.StatusConfirmed, appts[0].Status)
}

func TestUpdateStatusNotFound(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec("UPDATE appointments").
		WithArgs("a1", "biz-1", model.StatusConfirmed).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := New(mock).UpdateStatus(context.Background(), "biz-1", "a1", model.StatusConfirmed)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEntitlementsDefaultToFreeTier(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery("FROM business_entitlements").
		WithArgs("biz-1").
		WillReturnError(pgx.ErrNoRows)

	ent, err := New(mock).Entitlements(context.Background(), "biz-1")
	require.NoError(t, err)
	assert.Equal(t, model.FreeTier, ent.Tier)
	assert.Equal(t, model.FreeMaxMonthlyAppointments, ent.MaxMonthlyAppointments)
}

func TestLockIdempotencyKeyCreatesRow(t *testing.T) {
	mock := newMock(t)
	cols := []string{"business_id", "idempotency_key", "appointment_id", "status_code", "response_payload"}
	mock.ExpectQuery("FROM booking_idempotency_keys").
		WithArgs("biz-1", "key-1").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec("INSERT INTO booking_idempotency_keys").
		WithArgs("biz-1", "key-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("FROM booking_idempotency_keys").
		WithArgs("biz-1", "key-1").
		WillReturnRows(pgxmock.NewRows(cols).AddRow("biz-1", "key-1", "", 0, ""))

	rec, err := New(mock).LockIdempotencyKey(context.Background(), "biz-1", "key-1")
	require.NoError(t, err)
	assert.False(t, rec.Completed())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLockProfessionalDay(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec("pg_advisory_xact_lock").
		WithArgs("pro-1|2024-06-03").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))

	require.NoError(t, New(mock).LockProfessionalDay(context.Background(), "pro-1", "2024-06-03"))
	require.NoError(t, mock.ExpectationsWereMet())
}
