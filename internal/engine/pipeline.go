package engine

import (
	"context"
	"log/slog"
	"sync"

	"taskboard/internal/service"
	"taskboard/internal/session"
)

// Messages placed in the error slot.
const (
	MsgNotLoggedIn    = "You must be logged in to see your tasks."
	MsgLoadFailed     = "Could not load tasks."
	MsgUnreachable    = "Could not reach the task service."
	MsgCreateFailed   = "Could not create the task."
	MsgUpdateFailed   = "Could not update the task."
	MsgSessionExpired = "Your session has expired. Please log in again."
)

// Pipeline turns refresh signals and cache changes into Views.
type Pipeline struct {
	gw     service.Gateway
	sess   session.Context
	cache  *Cache
	views  *Publisher[View]
	logger *slog.Logger

	// mu may be held while taking the cache lock, never the reverse.
	mu      sync.Mutex
	current View
	version uint64 // cache version behind current
	seq     uint64
	errMsg  string
}

// NewPipeline creates a pipeline over cache. The caller wires the cache's
// change hook to OnCacheChange.
func NewPipeline(gw service.Gateway, sess session.Context, cache *Cache, views *Publisher[View], logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		gw:      gw,
		sess:    sess,
		cache:   cache,
		views:   views,
		logger:  logger,
		current: Derive(nil),
	}
}

// Refresh fetches the user's tasks and publishes the resulting View.
//
// A blank session email yields an empty view and ErrUnauthenticated
// without contacting the gateway. A failed fetch yields an empty view
// with the failure in the error slot and leaves the cache as it was.
// A fetch overtaken by a newer request is dropped and the current view
// returned.
func (p *Pipeline) Refresh(ctx context.Context) (View, error) {
	email := p.sess.CurrentEmail()
	if email == "" {
		p.logger.Debug("refresh without session")
		return p.fail(MsgNotLoggedIn), service.ErrUnauthenticated
	}

	ticket := p.cache.Begin()
	resp, err := p.gw.ListTasks(ctx, email)
	if err != nil {
		v, ok := p.failIf(ticket, transportMessage(err, MsgUnreachable))
		if !ok {
			p.logger.Debug("stale fetch error discarded", "ticket", ticket, "error", err)
			return v, nil
		}
		p.logger.Error("fetch tasks failed", "error", err)
		return v, err
	}
	if !resp.Success {
		aerr := service.Fail("list tasks", resp.Message, MsgLoadFailed)
		v, ok := p.failIf(ticket, aerr.Message)
		if !ok {
			p.logger.Debug("stale fetch rejection discarded", "ticket", ticket, "message", aerr.Message)
			return v, nil
		}
		p.logger.Warn("fetch tasks rejected", "message", aerr.Message)
		return v, aerr
	}

	owned := make([]service.Task, 0, len(resp.Data))
	for _, t := range resp.Data {
		if t.UserEmail != "" && t.UserEmail != email {
			p.logger.Warn("dropping task owned by another user", "id", t.ID)
			continue
		}
		owned = append(owned, t)
	}

	p.cache.ReplaceIf(ticket, owned)
	return p.Current(), nil
}

// OnCacheChange publishes a View for s unless a newer one is already out.
func (p *Pipeline) OnCacheChange(s Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s.Version <= p.version {
		return
	}
	p.version = s.Version
	p.publishLocked(s.Tasks)
}

// Current returns the latest View.
func (p *Pipeline) Current() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// LastError returns the error slot.
func (p *Pipeline) LastError() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.errMsg
}

// SetError overwrites the error slot and republishes the current tasks.
func (p *Pipeline) SetError(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errMsg = msg
	p.publishLocked(p.current.Tasks)
}

// ClearError empties the error slot.
func (p *Pipeline) ClearError() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.errMsg == "" {
		return
	}
	p.errMsg = ""
	p.publishLocked(p.current.Tasks)
}

// fail publishes an empty view carrying msg.
func (p *Pipeline) fail(msg string) View {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errMsg = msg
	p.publishLocked(nil)
	return p.current
}

// failIf is fail for the fetch holding ticket. It publishes nothing and
// reports false once a newer request has landed. The check runs under the
// pipeline lock, so a newer view published through OnCacheChange is never
// overwritten by this error view.
func (p *Pipeline) failIf(ticket uint64, msg string) (View, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cache.Stale(ticket) {
		return p.current, false
	}
	p.errMsg = msg
	p.publishLocked(nil)
	return p.current, true
}

func (p *Pipeline) publishLocked(tasks []service.Task) {
	p.seq++
	v := Derive(tasks)
	v.Seq = p.seq
	v.Err = p.errMsg
	p.current = v
	p.views.Publish(v)
}

// transportMessage picks the user-facing text for a failed call.
func transportMessage(err error, fallback string) string {
	if service.KindOf(err) == service.KindUnauthenticated {
		return MsgSessionExpired
	}
	return fallback
}
