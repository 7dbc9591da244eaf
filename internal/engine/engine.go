// Package engine keeps a client-side task board in sync with the remote
// task service.
//
// An Engine owns three parts. The Cache holds the last-known-good task
// list. The Pipeline fetches from the gateway on every refresh signal and
// derives a View (status partitions plus stats) from each cache state.
// The Orchestrator turns user intents (create, change status, update,
// delete) into gateway calls, applies confirmed results to the cache and
// then triggers a refresh.
//
// The server is authoritative. The cache only changes on a confirmed
// response, and every mutation is followed by a full re-fetch. When
// requests overlap, the last request issued wins: a fetch result is
// applied only if nothing newer has landed since it was sent.
package engine

import (
	"context"
	"log/slog"

	"taskboard/internal/service"
	"taskboard/internal/session"
)

// Option configures an Engine.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	bufferSize int
}

// WithLogger sets the logger shared by all engine parts.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithBufferSize sets the per-subscriber buffer for views and events.
func WithBufferSize(n int) Option {
	return func(o *options) { o.bufferSize = n }
}

// Engine is the sync engine for one session.
type Engine struct {
	cache    *Cache
	pipeline *Pipeline
	orch     *Orchestrator
	views    *Publisher[View]
	events   *Publisher[Event]
	logger   *slog.Logger
}

// New wires an Engine over gw for the user in sess.
func New(gw service.Gateway, sess session.Context, opts ...Option) *Engine {
	o := options{bufferSize: DefaultBufferSize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	e := &Engine{
		views:  NewPublisher[View](o.bufferSize),
		events: NewPublisher[Event](o.bufferSize),
		logger: o.logger,
	}
	// The cache hook needs the pipeline, which needs the cache.
	e.cache = NewCache(func(s Snapshot) { e.pipeline.OnCacheChange(s) }, o.logger)
	e.pipeline = NewPipeline(gw, sess, e.cache, e.views, o.logger)
	e.orch = NewOrchestrator(gw, sess, e.cache, e.pipeline, e.events, o.logger)
	return e
}

// Start fires the initial refresh.
func (e *Engine) Start(ctx context.Context) (View, error) {
	e.logger.Debug("engine start")
	return e.pipeline.Refresh(ctx)
}

// Refresh re-fetches the board.
func (e *Engine) Refresh(ctx context.Context) (View, error) {
	return e.pipeline.Refresh(ctx)
}

// View returns the latest View.
func (e *Engine) View() View {
	return e.pipeline.Current()
}

// Tasks returns a copy of the cached task list.
func (e *Engine) Tasks() []service.Task {
	return e.cache.Current()
}

// Subscribe streams future Views.
func (e *Engine) Subscribe() (<-chan View, func()) {
	return e.views.Subscribe()
}

// Events streams mutation completion events.
func (e *Engine) Events() (<-chan Event, func()) {
	return e.events.Subscribe()
}

// Create submits a new task. See Orchestrator.Create.
func (e *Engine) Create(ctx context.Context, d *Draft) error {
	return e.orch.Create(ctx, d)
}

// ChangeStatus moves a task. See Orchestrator.ChangeStatus.
func (e *Engine) ChangeStatus(ctx context.Context, id, status string) error {
	return e.orch.ChangeStatus(ctx, id, status)
}

// Update edits a task. See Orchestrator.Update.
func (e *Engine) Update(ctx context.Context, target *service.Task, d Draft) error {
	return e.orch.Update(ctx, target, d)
}

// Delete removes a task. See Orchestrator.Delete.
func (e *Engine) Delete(ctx context.Context, target *service.Task) error {
	return e.orch.Delete(ctx, target)
}

// LastError returns the error slot.
func (e *Engine) LastError() string {
	return e.pipeline.LastError()
}

// ClearError empties the error slot.
func (e *Engine) ClearError() {
	e.pipeline.ClearError()
}

// Close ends all subscriptions.
func (e *Engine) Close() {
	e.views.Close()
	e.events.Close()
}
