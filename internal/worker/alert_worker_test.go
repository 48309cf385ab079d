package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMailer struct {
	failures int // fail this many deliveries before succeeding
	calls    int
	sent     []string // subjects
}

func (m *fakeMailer) SendAlert(_ []string, subject, _ string) error {
	m.calls++
	if m.calls <= m.failures {
		return errors.New("smtp: connection refused")
	}
	m.sent = append(m.sent, subject)
	return nil
}

type deadLetterRecorder struct {
	entries []string
	count   int
}

func (d *deadLetterRecorder) fn() DeadLetter {
	return func(_ context.Context, _, _ string, _ json.RawMessage, reason string, _ int) {
		d.count++
		d.entries = append(d.entries, reason)
	}
}

func newTestWorker(mailer AlertMailer, dl DeadLetter) *AlertWorker {
	w := NewAlertWorker(mailer, dl)
	w.sleep = func(context.Context, time.Duration) {} // no waiting in tests
	return w
}

func alertPayload(t *testing.T, a Alert) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(a)
	require.NoError(t, err)
	return raw
}

func TestBackoffDoublesFromTwoSeconds(t *testing.T) {
	assert.Equal(t, 2*time.Second, Backoff(1))
	assert.Equal(t, 4*time.Second, Backoff(2))
	assert.Equal(t, 8*time.Second, Backoff(3))
}

func TestProcessDeliversFirstAttempt(t *testing.T) {
	mailer := &fakeMailer{}
	dl := &deadLetterRecorder{}
	w := newTestWorker(mailer, dl.fn())

	w.Process(context.Background(), QueueAlertsHigh, alertPayload(t, Alert{
		Type: AlertOutOfStock, Priority: 1,
		Recipients: []string{"ops@example.com"},
		Subject:    "3 item(s) out of stock",
	}))

	assert.Equal(t, 1, mailer.calls)
	assert.Equal(t, 0, dl.count)
}

func TestProcessRetriesThenSucceeds(t *testing.T) {
	mailer := &fakeMailer{failures: 2}
	dl := &deadLetterRecorder{}
	w := newTestWorker(mailer, dl.fn())

	w.Process(context.Background(), QueueAlertsHigh, alertPayload(t, Alert{
		Type: AlertFailure, Priority: 2,
		Recipients: []string{"ops@example.com"},
		Subject:    "sync failed",
	}))

	assert.Equal(t, 3, mailer.calls)
	assert.Equal(t, 0, dl.count)
	assert.Len(t, mailer.sent, 1)
}

func TestProcessDeadLettersAfterMaxAttempts(t *testing.T) {
	mailer := &fakeMailer{failures: 100}
	dl := &deadLetterRecorder{}
	w := newTestWorker(mailer, dl.fn())

	w.Process(context.Background(), QueueAlertsHigh, alertPayload(t, Alert{
		Type: AlertFailure, Priority: 2,
		Recipients: []string{"ops@example.com"},
		Subject:    "sync failed",
	}))

	assert.Equal(t, maxAttempts, mailer.calls)
	require.Equal(t, 1, dl.count)
	assert.Contains(t, dl.entries[0], "max attempts")
}

func TestProcessSkipsAlertsWithoutRecipients(t *testing.T) {
	mailer := &fakeMailer{}
	dl := &deadLetterRecorder{}
	w := newTestWorker(mailer, dl.fn())

	w.Process(context.Background(), QueueAlertsLow, alertPayload(t, Alert{
		Type: AlertSuccess, Priority: 8, Subject: "sync recovered",
	}))

	assert.Equal(t, 0, mailer.calls)
	assert.Equal(t, 0, dl.count)
}

func TestQueueForPriorityBands(t *testing.T) {
	assert.Equal(t, QueueAlertsHigh, queueForPriority(1))
	assert.Equal(t, QueueAlertsHigh, queueForPriority(3))
	assert.Equal(t, QueueAlertsNormal, queueForPriority(4))
	assert.Equal(t, QueueAlertsNormal, queueForPriority(6))
	assert.Equal(t, QueueAlertsLow, queueForPriority(7))
	assert.Equal(t, QueueAlertsLow, queueForPriority(8))
}
