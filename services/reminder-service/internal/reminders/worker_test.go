package reminders

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gateSender struct {
	entered chan struct{}
	release chan struct{}
}

func (s *gateSender) Send(context.Context, string, string, string) error {
	close(s.entered)
	<-s.release
	return nil
}

func (s *gateSender) ProviderID() string { return "gate" }

func TestRunOnceRejectsOverlap(t *testing.T) {
	store := newMemStore(func() time.Time { return noon }, candidate("due", "2024-06-03", "14:00"))
	sender := &gateSender{entered: make(chan struct{}), release: make(chan struct{})}
	w := NewWorker(newProcessor(t, store, sender, noon, Config{}), nil, discard, time.Hour)

	done := make(chan Report)
	go func() {
		r, _ := w.RunOnce(context.Background(), "worker")
		done <- r
	}()
	<-sender.entered

	_, err := w.RunOnce(context.Background(), "manual")
	assert.ErrorIs(t, err, ErrBatchRunning)
	close(sender.release)

	r := <-done
	require.Len(t, r.Processed, 1)
	assert.Equal(t, StatusSent, r.Processed[0].Status)
}

func TestWorkerStopsOnCancel(t *testing.T) {
	store := newMemStore(func() time.Time { return noon })
	w := NewWorker(newProcessor(t, store, &countingSender{}, noon, Config{}), nil, discard, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(stopped)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
