package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Alert queues, banded by priority. BRPOP checks keys in order, so draining
// high before normal before low gives priority ordering for free.
const (
	QueueAlertsHigh   = "alerts:high"   // priority 1-3 (out-of-stock, failure, stuck)
	QueueAlertsNormal = "alerts:normal" // priority 4-6 (reorder-needed, warning)
	QueueAlertsLow    = "alerts:low"    // priority 7-8 (recovered success)
)

// Alert types accepted by the dispatcher.
const (
	AlertFailure       = "failure"
	AlertStuck         = "stuck"
	AlertOutOfStock    = "out-of-stock"
	AlertReorderNeeded = "reorder-needed"
	AlertWarning       = "warning"
	AlertSuccess       = "success"
)

// Alert is a structured operational alert request. Priority 1 is highest.
type Alert struct {
	Type       string                 `json:"type"`
	Priority   int                    `json:"priority"`
	Recipients []string               `json:"recipients"`
	Subject    string                 `json:"subject"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
}

// Job is the generic envelope for all queued tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Dispatcher enqueues alert jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueAlert pushes an alert to the queue matching its priority band.
// Callers never block on delivery; the worker pool owns retries.
func (d *Dispatcher) EnqueueAlert(ctx context.Context, a Alert) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	job := Job{Type: "alert", Payload: data}
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queueForPriority(a.Priority), encoded).Err()
}

func queueForPriority(p int) string {
	switch {
	case p <= 3:
		return QueueAlertsHigh
	case p <= 6:
		return QueueAlertsNormal
	default:
		return QueueAlertsLow
	}
}

// Handlers routes dequeued jobs to their processors.
type Handlers struct {
	Alert *AlertWorker
}

// StartWorkerPool launches numWorkers goroutines consuming the alert queues.
// Each goroutine blocks on BRPOP — zero CPU when idle.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, handlers *Handlers, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, handlers, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func runWorker(ctx context.Context, rdb *redis.Client, handlers *Handlers, id int) {
	queues := []string{QueueAlertsHigh, QueueAlertsNormal, QueueAlertsLow}
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop — waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if err != nil {
				continue // timeout or context cancelled
			}
			if len(result) < 2 {
				continue
			}
			processJob(ctx, handlers, result[0], result[1])
		}
	}
}

func processJob(ctx context.Context, handlers *Handlers, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		return
	}
	switch job.Type {
	case "alert":
		handlers.Alert.Process(ctx, queue, job.Payload)
	default:
		log.Warn().Str("type", job.Type).Str("queue", queue).Msg("unknown job type")
	}
}
