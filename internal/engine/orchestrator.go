package engine

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"

	"taskboard/internal/service"
	"taskboard/internal/session"
)

// Draft holds user-entered task fields.
type Draft struct {
	Title       string
	Description string
}

// Validate checks the draft's field constraints.
func (d Draft) Validate() error {
	if err := service.ValidateTitle(d.Title); err != nil {
		return err
	}
	return service.ValidateDescription(d.Description)
}

// EventKind identifies an Event.
type EventKind int

const (
	// StatusChanged follows a confirmed status change.
	StatusChanged EventKind = iota + 1
	// UpdateClosed follows a confirmed update; the edit surface may close.
	UpdateClosed
	// DeleteClosed follows a delete attempt that ends the confirmation
	// surface. Task is nil when no task was selected.
	DeleteClosed
)

func (k EventKind) String() string {
	switch k {
	case StatusChanged:
		return "status-changed"
	case UpdateClosed:
		return "update-closed"
	case DeleteClosed:
		return "delete-closed"
	}
	return "unknown"
}

// Event is a completion notice from a mutation.
type Event struct {
	Kind   EventKind
	TaskID string
	Status service.Status
	Task   *service.Task
}

// Orchestrator runs user intents against the gateway and keeps the cache
// and pipeline in step with confirmed results.
type Orchestrator struct {
	gw       service.Gateway
	sess     session.Context
	cache    *Cache
	pipeline *Pipeline
	events   *Publisher[Event]
	logger   *slog.Logger

	creating atomic.Bool
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(gw service.Gateway, sess session.Context, cache *Cache, pipeline *Pipeline, events *Publisher[Event], logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		gw:       gw,
		sess:     sess,
		cache:    cache,
		pipeline: pipeline,
		events:   events,
		logger:   logger,
	}
}

// Create submits d as a new todo task for the current user.
// While one create is in flight, further submits return ErrBusy without
// contacting the gateway. On success d is reset and the board refreshed.
func (o *Orchestrator) Create(ctx context.Context, d *Draft) error {
	if d == nil {
		return &service.ValidationError{Field: "title", Reason: "required"}
	}
	if err := d.Validate(); err != nil {
		return err
	}
	email := o.sess.CurrentEmail()
	if email == "" {
		o.pipeline.SetError(MsgNotLoggedIn)
		return service.ErrUnauthenticated
	}
	if !o.creating.CompareAndSwap(false, true) {
		o.logger.Debug("create dropped while another is in flight")
		return service.ErrBusy
	}

	resp, err := o.gw.CreateTask(ctx, service.NewCreateRequest(d.Title, d.Description, email))
	o.creating.Store(false)
	if err != nil {
		o.logger.Error("create task failed", "error", err)
		o.pipeline.SetError(transportMessage(err, MsgCreateFailed))
		return err
	}
	if !resp.Success {
		aerr := service.Fail("create task", resp.Message, MsgCreateFailed)
		o.logger.Warn("create task rejected", "message", aerr.Message)
		o.pipeline.SetError(aerr.Message)
		return aerr
	}

	o.logger.Info("task created", "id", resp.Data.ID)
	*d = Draft{}
	o.refresh(ctx)
	return nil
}

// ChangeStatus moves the task with id to status. An unparseable status is
// rejected before any gateway call. Failures are logged and returned but
// leave the error slot alone.
func (o *Orchestrator) ChangeStatus(ctx context.Context, id, status string) error {
	st, err := service.ParseStatus(status)
	if err != nil {
		o.logger.Warn("change status: rejected", "id", id, "error", err)
		return err
	}
	if id == "" {
		o.logger.Error("change status: no task selected")
		return service.ErrInvalidTarget
	}

	resp, err := service.SetStatus(ctx, o.gw, id, st)
	if err != nil {
		o.logger.Error("change status failed", "id", id, "status", st, "error", err)
		return err
	}
	if !resp.Success {
		aerr := service.Fail("change status", resp.Message, "Could not change the task status.")
		o.logger.Warn("change status rejected", "id", id, "message", aerr.Message)
		return aerr
	}

	confirmed := resp.Data.Status
	if !confirmed.Valid() {
		o.logger.Warn("change status: server returned no status", "id", id)
		confirmed = st
	}
	o.cache.Patch(id, func(t service.Task) service.Task {
		t.Status = confirmed
		return t
	})
	o.events.Publish(Event{Kind: StatusChanged, TaskID: id, Status: confirmed})
	o.refresh(ctx)
	return nil
}

// Update sends target with d's title and description merged in. On success
// the cached entry becomes the server's copy.
func (o *Orchestrator) Update(ctx context.Context, target *service.Task, d Draft) error {
	if target == nil {
		o.logger.Error("update: no task selected")
		return service.ErrInvalidTarget
	}
	if err := d.Validate(); err != nil {
		return err
	}

	merged := *target
	merged.Title = strings.TrimSpace(d.Title)
	merged.Description = d.Description

	resp, err := o.gw.UpdateTask(ctx, merged)
	if err != nil {
		o.logger.Error("update task failed", "id", target.ID, "error", err)
		o.pipeline.SetError(transportMessage(err, MsgUpdateFailed))
		return err
	}
	if !resp.Success {
		aerr := service.Fail("update task", resp.Message, MsgUpdateFailed)
		o.logger.Warn("update task rejected", "id", target.ID, "message", aerr.Message)
		o.pipeline.SetError(aerr.Message)
		return aerr
	}

	stored := resp.Data
	if stored.ID == target.ID {
		o.cache.Patch(target.ID, func(service.Task) service.Task { return stored })
	} else {
		o.logger.Warn("update: server copy has a different id", "id", target.ID, "got", stored.ID)
	}
	o.events.Publish(Event{Kind: UpdateClosed, TaskID: target.ID, Task: &stored})
	o.refresh(ctx)
	return nil
}

// Delete removes target. A nil target still closes the confirmation
// surface with a DeleteClosed event carrying no task.
func (o *Orchestrator) Delete(ctx context.Context, target *service.Task) error {
	if target == nil {
		o.logger.Error("delete: no task selected")
		o.events.Publish(Event{Kind: DeleteClosed})
		return service.ErrInvalidTarget
	}

	resp, err := o.gw.DeleteTask(ctx, target.ID)
	if err != nil {
		o.logger.Error("delete task failed", "id", target.ID, "error", err)
		return err
	}
	if !resp.Success {
		aerr := service.Fail("delete task", resp.Message, "Could not delete the task.")
		o.logger.Warn("delete task rejected", "id", target.ID, "message", aerr.Message)
		return aerr
	}

	o.cache.Remove(target.ID)
	deleted := *target
	o.events.Publish(Event{Kind: DeleteClosed, TaskID: deleted.ID, Task: &deleted})
	o.refresh(ctx)
	return nil
}

// refresh re-fetches after a confirmed mutation. Fetch failures land in
// the error slot, so they are not returned.
func (o *Orchestrator) refresh(ctx context.Context) {
	if _, err := o.pipeline.Refresh(ctx); err != nil {
		o.logger.Debug("refresh after mutation failed", "error", err)
	}
}
