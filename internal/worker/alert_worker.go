package worker

// alert_worker.go
// Delivers operational alerts (sync failure, stuck run, out-of-stock,
// reorder-needed) by email. Delivery is attempted up to maxAttempts times
// with exponential backoff; exhausted jobs go to the DLQ.

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	maxAttempts = 3
	backoffBase = 2 * time.Second
)

// AlertMailer is the delivery channel for alerts.
type AlertMailer interface {
	SendAlert(to []string, subject, body string) error
}

// DeadLetter receives jobs that exhausted their retries.
type DeadLetter func(ctx context.Context, queue, jobType string, payload json.RawMessage, reason string, attempts int)

// AlertWorker processes alert jobs from the priority queues.
type AlertWorker struct {
	mailer     AlertMailer
	deadLetter DeadLetter
	sleep      func(ctx context.Context, d time.Duration) // test seam
}

func NewAlertWorker(mailer AlertMailer, deadLetter DeadLetter) *AlertWorker {
	return &AlertWorker{mailer: mailer, deadLetter: deadLetter, sleep: sleepCtx}
}

// Process attempts delivery with bounded retries, then dead-letters.
func (w *AlertWorker) Process(ctx context.Context, queue string, raw json.RawMessage) {
	var a Alert
	if err := json.Unmarshal(raw, &a); err != nil {
		log.Error().Err(err).Msg("alert_worker: invalid payload")
		return
	}
	if len(a.Recipients) == 0 {
		log.Warn().Str("type", a.Type).Msg("alert_worker: no recipients — skipping")
		return
	}

	body := formatAlertBody(a)
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = w.mailer.SendAlert(a.Recipients, a.Subject, body)
		if lastErr == nil {
			log.Info().Str("type", a.Type).Int("priority", a.Priority).
				Int("attempt", attempt).Msg("alert_worker: alert delivered")
			return
		}
		if attempt < maxAttempts {
			delay := Backoff(attempt)
			log.Warn().Err(lastErr).Str("type", a.Type).
				Int("attempt", attempt).Dur("retry_in", delay).
				Msg("alert_worker: delivery failed, retrying")
			w.sleep(ctx, delay)
			if ctx.Err() != nil {
				return
			}
		}
	}

	log.Error().Err(lastErr).Str("type", a.Type).
		Msg("alert_worker: max attempts exceeded, dead-lettering")
	w.deadLetter(ctx, queue, "alert", raw,
		fmt.Sprintf("max attempts (%d) exceeded: %v", maxAttempts, lastErr), maxAttempts)
}

// Backoff returns the delay before retrying after the given attempt:
// 2s after the first failure, 4s after the second, doubling onward.
func Backoff(attempt int) time.Duration {
	return backoffBase << (attempt - 1)
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func formatAlertBody(a Alert) string {
	body := fmt.Sprintf("Alert: %s (priority %d)\n", a.Type, a.Priority)
	for k, v := range a.Payload {
		body += fmt.Sprintf("%s: %v\n", k, v)
	}
	return body
}
