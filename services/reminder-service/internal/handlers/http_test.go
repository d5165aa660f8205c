package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/md-rashed-zaman/slotbook/services/reminder-service/internal/reminders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type stubRunner struct {
	report reminders.Report
	err    error
	calls  int
}

func (s *stubRunner) RunOnce(context.Context, string) (reminders.Report, error) {
	s.calls++
	return s.report, s.err
}

func router(t *testing.T, runner BatchRunner, token string) http.Handler {
	t.Helper()
	hash := ""
	if token != "" {
		b, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.MinCost)
		require.NoError(t, err)
		hash = string(b)
	}
	r := chi.NewRouter()
	New(runner, hash, slog.New(slog.NewTextHandler(io.Discard, nil))).Routes(r)
	return r
}

func post(h http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reminders/run", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRunReturnsReport(t *testing.T) {
	runner := &stubRunner{report: reminders.Report{Success: true, Processed: []reminders.Outcome{
		{AppointmentID: "a1", Status: reminders.StatusSent},
		{AppointmentID: "a2", Status: reminders.StatusSkipped, Reason: "target send time not reached"},
		{AppointmentID: "a3", Status: reminders.StatusFailed, Error: "evolution api returned 500: "},
	}}}
	rec := post(router(t, runner, "s3cret"), "s3cret")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"processed":[
		{"appointmentId":"a1","status":"sent"},
		{"appointmentId":"a2","status":"skipped","reason":"target send time not reached"},
		{"appointmentId":"a3","status":"failed","error":"evolution api returned 500: "}
	]}`, rec.Body.String())
}

func TestRunRejectsBadToken(t *testing.T) {
	runner := &stubRunner{}
	h := router(t, runner, "s3cret")

	assert.Equal(t, http.StatusUnauthorized, post(h, "").Code)
	assert.Equal(t, http.StatusUnauthorized, post(h, "guess").Code)
	assert.Zero(t, runner.calls)
}

func TestRunDisabledWithoutHash(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, post(router(t, &stubRunner{}, ""), "anything").Code)
}

func TestRunErrors(t *testing.T) {
	assert.Equal(t, http.StatusConflict, post(router(t, &stubRunner{err: reminders.ErrBatchRunning}, "t"), "t").Code)
	assert.Equal(t, http.StatusInternalServerError, post(router(t, &stubRunner{err: errors.New("db down")}, "t"), "t").Code)
}
