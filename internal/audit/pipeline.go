// Package audit moves ledger audit events onto the background queue so
// emission stays fire-and-forget for the posting engine, and persists them on
// the worker side.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/atlas-erp/atlas-erp/internal/jobs"
	"github.com/atlas-erp/atlas-erp/internal/shared"
)

// TaskRecord is the asynq task type carrying one audit event.
const TaskRecord = "audit:record"

// QueueName is the queue audit events are enqueued on.
const QueueName = "audit"

// NewRecordTask wraps an audit log into an asynq task.
func NewRecordTask(log shared.AuditLog) (*asynq.Task, error) {
	data, err := json.Marshal(log)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRecord, data), nil
}

// Enqueuer implements the engine's audit port by pushing events onto the
// queue. Enqueue failures are returned so the caller can log them; they never
// block a posting.
type Enqueuer struct {
	client *asynq.Client
}

// NewEnqueuer constructs the queue-backed audit port.
func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

// Record enqueues the event for asynchronous persistence.
func (e *Enqueuer) Record(ctx context.Context, log shared.AuditLog) error {
	if e == nil || e.client == nil {
		return errors.New("audit: enqueuer not configured")
	}
	task, err := NewRecordTask(log)
	if err != nil {
		return err
	}
	_, err = e.client.EnqueueContext(ctx, task, asynq.Queue(QueueName), asynq.MaxRetry(5))
	return err
}

// Handler persists queued audit events on the worker side.
type Handler struct {
	logger  *slog.Logger
	store   *shared.AuditLogger
	metrics *jobmetrics.Metrics
}

// NewHandler constructs the worker-side handler.
func NewHandler(logger *slog.Logger, store *shared.AuditLogger, metrics *jobmetrics.Metrics) *Handler {
	return &Handler{logger: logger, store: store, metrics: metrics}
}

// Handle processes one TaskRecord task. Malformed payloads are dropped rather
// than retried.
func (h *Handler) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := h.metrics.Track("audit_record")
	var log shared.AuditLog
	if err := json.Unmarshal(t.Payload(), &log); err != nil {
		if h.logger != nil {
			h.logger.Error("audit payload unmarshal", slog.Any("error", err))
		}
		_ = tracker.End(err)
		return asynq.SkipRetry
	}
	if err := h.store.Record(ctx, log); err != nil {
		if h.logger != nil {
			h.logger.Error("audit record", slog.String("action", log.Action), slog.Any("error", err))
		}
		return tracker.End(err)
	}
	return tracker.End(nil)
}
