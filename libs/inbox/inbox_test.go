package inbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func message() kafka.Message {
	return kafka.Message{
		Topic: "billing.subscription.activated.v1",
		Key:   []byte("biz-1"),
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte("evt-1")},
			{Key: "event_type", Value: []byte("billing.subscription.activated.v1")},
		},
	}
}

func TestProcessCommitsHandlerAndInboxTogether(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO inbox_events").
		WithArgs("evt-1", "billing.subscription.activated.v1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE something").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	c := NewConsumer(nil, mock, NewRepository(), discard, func(ctx context.Context, tx pgx.Tx, _ kafka.Message) error {
		_, err := tx.Exec(ctx, "UPDATE something")
		return err
	})
	require.NoError(t, c.Process(context.Background(), message()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessSkipsDuplicates(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO inbox_events").
		WithArgs("evt-1", "billing.subscription.activated.v1").
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	called := false
	c := NewConsumer(nil, mock, NewRepository(), discard, func(context.Context, pgx.Tx, kafka.Message) error {
		called = true
		return nil
	})
	require.NoError(t, c.Process(context.Background(), message()))
	assert.False(t, called)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessHandlerErrorRollsBack(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO inbox_events").
		WithArgs("evt-1", "billing.subscription.activated.v1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectRollback()

	c := NewConsumer(nil, mock, NewRepository(), discard, func(context.Context, pgx.Tx, kafka.Message) error {
		return errors.New("boom")
	})
	assert.EqualError(t, c.Process(context.Background(), message()), "boom")
	require.NoError(t, mock.ExpectationsWereMet())
}
