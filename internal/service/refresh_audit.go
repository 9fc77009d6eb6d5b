package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/enrollment-dashboard-api/internal/models"
	"github.com/noah-isme/enrollment-dashboard-api/pkg/jobs"
)

// RefreshAudit moves audit writes off the refresh path. Record only enqueues;
// a worker retries failed inserts against the underlying recorder.
type RefreshAudit struct {
	store RefreshRecorder
	queue *jobs.Queue[*models.RefreshEvent]
}

// NewRefreshAudit wraps store with a single-worker retrying queue.
func NewRefreshAudit(store RefreshRecorder, cfg jobs.QueueConfig) *RefreshAudit {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 64
	}
	a := &RefreshAudit{store: store}
	a.queue = jobs.NewQueue[*models.RefreshEvent]("refresh-audit", a.write, cfg)
	return a
}

// Start launches the audit worker.
func (a *RefreshAudit) Start(ctx context.Context) {
	a.queue.Start(ctx)
}

// Stop flushes queued events and stops the worker.
func (a *RefreshAudit) Stop() {
	a.queue.Stop()
}

// Record queues event for insertion.
func (a *RefreshAudit) Record(_ context.Context, event *models.RefreshEvent) error {
	if event == nil {
		return fmt.Errorf("nil refresh event")
	}
	return a.queue.Enqueue(jobs.Job[*models.RefreshEvent]{ID: event.ID, Payload: event})
}

func (a *RefreshAudit) write(ctx context.Context, job jobs.Job[*models.RefreshEvent]) error {
	writeCtx, cancel := context.WithTimeout(ctx, auditWriteTimeout)
	defer cancel()
	return a.store.Record(writeCtx, job.Payload)
}
