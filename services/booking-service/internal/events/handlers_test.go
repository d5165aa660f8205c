package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestEntitlementsUpsertsLimits(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO business_entitlements").
		WithArgs("biz-1", "pro", 2000).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	h := Entitlements(storage.New(mock), nil, discard)
	err = h(context.Background(), tx, kafka.Message{
		Topic: TopicSubscriptionActivated,
		Value: []byte(`{"business_id":"biz-1","tier":"pro","max_monthly_appointments":2000}`),
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEntitlementsCancellationFallsBackToFree(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO business_entitlements").
		WithArgs("biz-1", "free", 200).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	h := Entitlements(storage.New(mock), nil, discard)
	require.NoError(t, h(context.Background(), tx, kafka.Message{
		Topic: TopicSubscriptionCanceled,
		Value: []byte(`{"business_id":"biz-1"}`),
	}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEntitlementsSkipsMalformedPayload(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	h := Entitlements(storage.New(mock), nil, discard)
	assert.NoError(t, h(context.Background(), nil, kafka.Message{Topic: TopicSubscriptionActivated, Value: []byte(`not json`)}))
	assert.NoError(t, h(context.Background(), nil, kafka.Message{Topic: TopicSubscriptionActivated, Value: []byte(`{"business_id":"biz-1"}`)}))
	require.NoError(t, mock.ExpectationsWereMet())
}

type invalidator struct {
	calls [][2]string
	err   error
}

func (i *invalidator) Invalidate(_ context.Context, businessID, professionalID string) error {
	i.calls = append(i.calls, [2]string{businessID, professionalID})
	return i.err
}

func TestScheduleChangedInvalidatesCache(t *testing.T) {
	inv := &invalidator{}
	h := ScheduleChanged(inv, nil, discard)

	require.NoError(t, h(context.Background(), nil, kafka.Message{
		Topic: TopicProfessionalUpdated,
		Value: []byte(`{"business_id":"biz-1","professional_id":"pro-1"}`),
	}))
	assert.Equal(t, [][2]string{{"biz-1", "pro-1"}}, inv.calls)

	require.NoError(t, h(context.Background(), nil, kafka.Message{Topic: TopicProfessionalUpdated, Value: []byte(`{}`)}))
	assert.Len(t, inv.calls, 1)

	inv.err = errors.New("redis down")
	assert.Error(t, h(context.Background(), nil, kafka.Message{
		Topic: TopicProfessionalUpdated,
		Value: []byte(`{"business_id":"biz-1","professional_id":"pro-1"}`),
	}))
}
