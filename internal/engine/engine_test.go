package engine_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/engine"
	"taskboard/internal/service"
	"taskboard/internal/session"
	"taskboard/internal/testutil"
)

const owner = "a@x.com"

var sess = session.Session{Email: owner, UserToken: "tok"}

// hookedGateway lets a test intercept individual gateway calls.
type hookedGateway struct {
	*testutil.FakeGateway
	list   func(ctx context.Context, email string) (service.Envelope[[]service.Task], error)
	create func(ctx context.Context, req service.CreateRequest) (service.Envelope[service.Task], error)
}

func (g *hookedGateway) ListTasks(ctx context.Context, email string) (service.Envelope[[]service.Task], error) {
	if g.list != nil {
		return g.list(ctx, email)
	}
	return g.FakeGateway.ListTasks(ctx, email)
}

func (g *hookedGateway) CreateTask(ctx context.Context, req service.CreateRequest) (service.Envelope[service.Task], error) {
	if g.create != nil {
		return g.create(ctx, req)
	}
	return g.FakeGateway.CreateTask(ctx, req)
}

func drain[T any](ch <-chan T) []T {
	var out []T
	for {
		select {
		case v, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, v)
		default:
			return out
		}
	}
}

func seeded() *testutil.FakeGateway {
	fake := testutil.NewFakeGateway()
	fake.AddTask(owner, "1", "Write report", service.StatusTodo)
	fake.AddTask(owner, "2", "Review PR", service.StatusInProgress)
	fake.AddTask(owner, "3", "Ship release", service.StatusDone)
	return fake
}

func started(t *testing.T, gw service.Gateway, opts ...engine.Option) *engine.Engine {
	t.Helper()
	e := engine.New(gw, sess, opts...)
	t.Cleanup(e.Close)
	_, err := e.Start(context.Background())
	require.NoError(t, err)
	return e
}

func TestEngine_StartDerivesPartitionsAndStats(t *testing.T) {
	e := started(t, seeded())

	v := e.View()
	assert.Equal(t, engine.Stats{Total: 3, Todo: 1, InProgress: 1, Done: 1, CompletionRate: 33}, v.Stats)
	require.Len(t, v.Todo, 1)
	assert.Equal(t, "Write report", v.Todo[0].Title)
	require.Len(t, v.InProgress, 1)
	assert.Equal(t, "Review PR", v.InProgress[0].Title)
	require.Len(t, v.Done, 1)
	assert.Equal(t, "Ship release", v.Done[0].Title)
	assert.Empty(t, v.Err)
}

func TestEngine_EmptyBoard(t *testing.T) {
	e := started(t, testutil.NewFakeGateway())

	v := e.View()
	assert.Equal(t, engine.Stats{}, v.Stats)
	assert.Empty(t, v.Tasks)
}

func TestEngine_AllDone(t *testing.T) {
	fake := testutil.NewFakeGateway()
	fake.AddTask(owner, "1", "A task", service.StatusDone)
	fake.AddTask(owner, "2", "B task", service.StatusDone)

	e := started(t, fake)

	assert.Equal(t, 100, e.View().Stats.CompletionRate)
}

func TestEngine_RefreshIsIdempotent(t *testing.T) {
	fake := seeded()
	e := started(t, fake)
	first := e.View()

	second, err := e.Refresh(context.Background())
	require.NoError(t, err)
	third, err := e.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.Tasks, second.Tasks)
	assert.Equal(t, second.Tasks, third.Tasks)
	assert.Equal(t, first.Stats, third.Stats)
	assert.Greater(t, third.Seq, first.Seq)
	assert.Equal(t, 3, fake.CallCount(testutil.OpList))
}

func TestEngine_BlankEmail(t *testing.T) {
	fake := seeded()
	e := engine.New(fake, session.Session{Email: "  "})
	defer e.Close()

	v, err := e.Start(context.Background())

	assert.ErrorIs(t, err, service.ErrUnauthenticated)
	assert.Empty(t, v.Tasks)
	assert.Equal(t, engine.MsgNotLoggedIn, v.Err)
	assert.Equal(t, 0, fake.TotalCalls())

	err = e.Create(context.Background(), &engine.Draft{Title: "Write report"})
	assert.ErrorIs(t, err, service.ErrUnauthenticated)
	assert.Equal(t, 0, fake.TotalCalls())
}

func TestEngine_FailedFetchKeepsCache(t *testing.T) {
	fake := seeded()
	e := started(t, fake)

	fake.Errs[testutil.OpList] = errors.New("connection refused")
	v, err := e.Refresh(context.Background())

	require.Error(t, err)
	assert.Empty(t, v.Tasks)
	assert.Equal(t, engine.MsgUnreachable, v.Err)
	assert.Equal(t, engine.MsgUnreachable, e.LastError())
	assert.Len(t, e.Tasks(), 3, "cache must survive a failed fetch")

	delete(fake.Errs, testutil.OpList)
	v, err = e.Refresh(context.Background())
	require.NoError(t, err)
	assert.Len(t, v.Tasks, 3)
	assert.Equal(t, engine.MsgUnreachable, v.Err, "slot persists until cleared")

	e.ClearError()
	assert.Empty(t, e.LastError())
	assert.Empty(t, e.View().Err)
}

func TestEngine_RejectedFetch(t *testing.T) {
	fake := seeded()
	fake.Rejects[testutil.OpList] = "Database unavailable"
	e := engine.New(fake, sess)
	defer e.Close()

	v, err := e.Start(context.Background())

	var aerr *service.AppError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "Database unavailable", v.Err)
	assert.Empty(t, v.Tasks)
}

func TestEngine_DropsTasksOfOtherUsers(t *testing.T) {
	fake := seeded()
	gw := &hookedGateway{FakeGateway: fake}
	gw.list = func(ctx context.Context, email string) (service.Envelope[[]service.Task], error) {
		resp, err := fake.ListTasks(ctx, email)
		resp.Data = append(resp.Data, service.Task{ID: "x", Title: "Foreign", Status: service.StatusTodo, UserEmail: "b@x.com"})
		return resp, err
	}

	e := started(t, gw)

	assert.Len(t, e.View().Tasks, 3)
}

func TestEngine_CreateAddsTodo(t *testing.T) {
	fake := seeded()
	e := started(t, fake)
	before := e.View().Stats

	draft := &engine.Draft{Title: "  Plan sprint ", Description: "next week"}
	require.NoError(t, e.Create(context.Background(), draft))

	assert.Equal(t, engine.Draft{}, *draft, "draft resets after success")
	v := e.View()
	assert.Equal(t, before.Total+1, v.Stats.Total)
	assert.Equal(t, before.Todo+1, v.Stats.Todo)
	assert.Equal(t, "Plan sprint", v.Todo[len(v.Todo)-1].Title)
	assert.Equal(t, 25, v.Stats.CompletionRate)

	// No duplication after further refreshes.
	_, err := e.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before.Total+1, e.View().Stats.Total)
}

func TestEngine_CreateValidation(t *testing.T) {
	fake := seeded()
	e := started(t, fake)
	calls := fake.TotalCalls()

	err := e.Create(context.Background(), &engine.Draft{Title: "ab"})

	var verr *service.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "title", verr.Field)
	assert.Equal(t, calls, fake.TotalCalls())
}

func TestEngine_CreateRejected(t *testing.T) {
	fake := seeded()
	e := started(t, fake)

	fake.Rejects[testutil.OpCreate] = "Title already used"
	draft := &engine.Draft{Title: "Write report"}
	err := e.Create(context.Background(), draft)

	var aerr *service.AppError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "Title already used", e.LastError())
	assert.Equal(t, "Write report", draft.Title, "draft kept on failure")

	fake.Rejects[testutil.OpCreate] = ""
	_ = e.Create(context.Background(), draft)
	assert.Equal(t, engine.MsgCreateFailed, e.LastError())
}

func TestEngine_CreateTransportErrorClearsBusy(t *testing.T) {
	fake := seeded()
	e := started(t, fake)

	fake.Errs[testutil.OpCreate] = errors.New("connection refused")
	err := e.Create(context.Background(), &engine.Draft{Title: "Plan sprint"})
	require.Error(t, err)
	assert.Equal(t, engine.MsgCreateFailed, e.LastError())

	delete(fake.Errs, testutil.OpCreate)
	require.NoError(t, e.Create(context.Background(), &engine.Draft{Title: "Plan sprint"}))
	assert.Equal(t, 4, e.View().Stats.Total)
}

func TestEngine_CreateWhileBusyIsDropped(t *testing.T) {
	fake := seeded()
	entered := make(chan struct{})
	release := make(chan struct{})
	gw := &hookedGateway{FakeGateway: fake}
	gw.create = func(ctx context.Context, req service.CreateRequest) (service.Envelope[service.Task], error) {
		close(entered)
		<-release
		return fake.CreateTask(ctx, req)
	}
	e := started(t, gw)

	errc := make(chan error, 1)
	go func() { errc <- e.Create(context.Background(), &engine.Draft{Title: "First task"}) }()
	<-entered

	err := e.Create(context.Background(), &engine.Draft{Title: "Second task"})
	assert.ErrorIs(t, err, service.ErrBusy)

	close(release)
	require.NoError(t, <-errc)
	assert.Equal(t, 1, fake.CallCount(testutil.OpCreate))
	assert.Equal(t, 4, e.View().Stats.Total)
}

func TestEngine_ChangeStatus(t *testing.T) {
	fake := seeded()
	e := started(t, fake)
	events, cancel := e.Events()
	defer cancel()

	require.NoError(t, e.ChangeStatus(context.Background(), "1", "done"))

	got := drain(events)
	require.Len(t, got, 1)
	assert.Equal(t, engine.StatusChanged, got[0].Kind)
	assert.Equal(t, "1", got[0].TaskID)
	assert.Equal(t, service.StatusDone, got[0].Status)
	assert.Equal(t, engine.Stats{Total: 3, InProgress: 1, Done: 2, CompletionRate: 67}, e.View().Stats)
}

func TestEngine_ChangeStatusUsesServerStatus(t *testing.T) {
	fake := seeded()
	fake.Rewrite = func(op string, t service.Task) service.Task {
		if op == testutil.OpStatus {
			t.Status = service.StatusInProgress
		}
		return t
	}
	e := started(t, fake)
	events, cancel := e.Events()
	defer cancel()

	require.NoError(t, e.ChangeStatus(context.Background(), "1", "done"))

	got := drain(events)
	require.Len(t, got, 1)
	assert.Equal(t, service.StatusInProgress, got[0].Status)
	assert.Len(t, e.View().InProgress, 2)
}

func TestEngine_ChangeStatusPatchesCacheWithoutRefresh(t *testing.T) {
	fake := seeded()
	e := started(t, fake)
	fake.Rewrite = func(op string, t service.Task) service.Task {
		t.Status = service.StatusInProgress
		t.Title = "Renamed by server"
		return t
	}
	fake.Errs[testutil.OpList] = errors.New("connection refused")

	require.NoError(t, e.ChangeStatus(context.Background(), "1", "done"))

	tasks := e.Tasks()
	require.Len(t, tasks, 3)
	assert.Equal(t, service.StatusInProgress, tasks[0].Status)
	assert.Equal(t, "Write report", tasks[0].Title, "only the status is taken from the response")
	assert.Equal(t, engine.MsgUnreachable, e.LastError())
}

func TestEngine_ChangeStatusFallsBackToRequestedStatus(t *testing.T) {
	fake := seeded()
	e := started(t, fake)
	fake.Rewrite = func(op string, t service.Task) service.Task {
		t.Status = ""
		return t
	}
	fake.Errs[testutil.OpList] = errors.New("connection refused")
	events, cancel := e.Events()
	defer cancel()

	require.NoError(t, e.ChangeStatus(context.Background(), "1", "done"))

	assert.Equal(t, service.StatusDone, e.Tasks()[0].Status)
	got := drain(events)
	require.Len(t, got, 1)
	assert.Equal(t, service.StatusDone, got[0].Status)
}

func TestEngine_ChangeStatusInvalid(t *testing.T) {
	fake := seeded()
	e := started(t, fake)
	events, cancel := e.Events()
	defer cancel()
	calls := fake.TotalCalls()

	for _, status := range []string{"", "archived", "DONE!"} {
		err := e.ChangeStatus(context.Background(), "1", status)
		assert.ErrorIs(t, err, service.ErrInvalidStatus, "status %q", status)
	}

	assert.Equal(t, calls, fake.TotalCalls())
	assert.Empty(t, drain(events))
}

func TestEngine_ChangeStatusFailure(t *testing.T) {
	fake := seeded()
	e := started(t, fake)
	events, cancel := e.Events()
	defer cancel()

	fake.Errs[testutil.OpStatus] = errors.New("connection refused")
	err := e.ChangeStatus(context.Background(), "1", "in-progress")

	require.Error(t, err)
	assert.Empty(t, e.LastError())
	assert.Empty(t, drain(events))
	assert.Equal(t, service.StatusTodo, e.Tasks()[0].Status)

	delete(fake.Errs, testutil.OpStatus)
	err = e.ChangeStatus(context.Background(), "missing", "done")
	var aerr *service.AppError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "Task not found", aerr.Message)
}

func TestEngine_UpdateUsesServerCopy(t *testing.T) {
	fake := seeded()
	fake.Rewrite = func(op string, t service.Task) service.Task {
		if op == testutil.OpUpdate {
			t.UpdatedAt = "2026-01-02T03:04:05Z"
		}
		return t
	}
	e := started(t, fake)
	events, cancel := e.Events()
	defer cancel()

	target := e.View().Todo[0]
	require.NoError(t, e.Update(context.Background(), &target,
		engine.Draft{Title: "Write annual report", Description: "for the board"}))

	server, ok := fake.Task("1")
	require.True(t, ok)
	assert.Equal(t, server, e.Tasks()[0])
	assert.Equal(t, "2026-01-02T03:04:05Z", e.Tasks()[0].UpdatedAt)

	got := drain(events)
	require.Len(t, got, 1)
	assert.Equal(t, engine.UpdateClosed, got[0].Kind)
	require.NotNil(t, got[0].Task)
	assert.Equal(t, server, *got[0].Task)
	assert.Equal(t, "Write report", target.Title, "caller's task is not modified")
}

func TestEngine_UpdateStoresServerCopyWithoutRefresh(t *testing.T) {
	fake := seeded()
	e := started(t, fake)
	returned := service.Task{ID: "1", Title: "X", Description: "Y"}
	fake.Rewrite = func(op string, t service.Task) service.Task {
		return returned
	}
	fake.Errs[testutil.OpList] = errors.New("connection refused")

	target := e.View().Todo[0]
	require.NoError(t, e.Update(context.Background(), &target,
		engine.Draft{Title: "Write annual report", Description: "for the board"}))

	tasks := e.Tasks()
	require.Len(t, tasks, 3)
	assert.Equal(t, returned, tasks[0])
	assert.Equal(t, "Review PR", tasks[1].Title)
	assert.Equal(t, engine.MsgUnreachable, e.LastError())
}

func TestEngine_UpdateFailure(t *testing.T) {
	fake := seeded()
	e := started(t, fake)
	events, cancel := e.Events()
	defer cancel()

	fake.Rejects[testutil.OpUpdate] = "Title already used"
	target := e.View().Todo[0]
	err := e.Update(context.Background(), &target, engine.Draft{Title: "Review PR"})

	require.Error(t, err)
	assert.Equal(t, "Title already used", e.LastError())
	assert.Empty(t, drain(events))
	assert.Equal(t, "Write report", e.Tasks()[0].Title)
}

func TestEngine_UpdateNilTarget(t *testing.T) {
	fake := seeded()
	e := started(t, fake)
	calls := fake.TotalCalls()

	err := e.Update(context.Background(), nil, engine.Draft{Title: "Anything"})

	assert.ErrorIs(t, err, service.ErrInvalidTarget)
	assert.Equal(t, calls, fake.TotalCalls())
}

func TestEngine_Delete(t *testing.T) {
	fake := seeded()
	e := started(t, fake)
	events, cancel := e.Events()
	defer cancel()

	target := e.View().Done[0]
	require.NoError(t, e.Delete(context.Background(), &target))

	assert.Equal(t, 2, e.View().Stats.Total)
	assert.Equal(t, 0, e.View().Stats.CompletionRate)
	got := drain(events)
	require.Len(t, got, 1)
	assert.Equal(t, engine.DeleteClosed, got[0].Kind)
	require.NotNil(t, got[0].Task)
	assert.Equal(t, "3", got[0].Task.ID)
}

func TestEngine_DeleteNilTarget(t *testing.T) {
	fake := seeded()
	e := started(t, fake)
	events, cancel := e.Events()
	defer cancel()
	calls := fake.TotalCalls()

	err := e.Delete(context.Background(), nil)

	assert.ErrorIs(t, err, service.ErrInvalidTarget)
	assert.Equal(t, calls, fake.TotalCalls())
	got := drain(events)
	require.Len(t, got, 1)
	assert.Equal(t, engine.DeleteClosed, got[0].Kind)
	assert.Nil(t, got[0].Task)
}

func TestEngine_DeleteFailure(t *testing.T) {
	fake := seeded()
	e := started(t, fake)
	events, cancel := e.Events()
	defer cancel()

	fake.Errs[testutil.OpDelete] = errors.New("connection refused")
	target := e.View().Todo[0]
	err := e.Delete(context.Background(), &target)

	require.Error(t, err)
	assert.Len(t, e.Tasks(), 3)
	assert.Empty(t, drain(events))
}

func TestEngine_StaleFetchIsDiscarded(t *testing.T) {
	fake := seeded()
	var calls atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})
	gw := &hookedGateway{FakeGateway: fake}
	gw.list = func(ctx context.Context, email string) (service.Envelope[[]service.Task], error) {
		resp, err := fake.ListTasks(ctx, email)
		if calls.Add(1) == 1 {
			close(entered)
			<-release
		}
		return resp, err
	}
	e := engine.New(gw, sess)
	defer e.Close()
	ctx := context.Background()

	firstc := make(chan engine.View, 1)
	go func() {
		v, _ := e.Refresh(ctx)
		firstc <- v
	}()
	<-entered

	_, err := fake.MarkDone(ctx, "1")
	require.NoError(t, err)
	v, err := e.Refresh(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, v.Stats.Done)

	close(release)
	<-firstc

	assert.Equal(t, 2, e.View().Stats.Done)
	assert.Equal(t, service.StatusDone, e.Tasks()[0].Status)
}

func TestEngine_ViewsAreConsistent(t *testing.T) {
	fake := seeded()
	e := engine.New(fake, sess, engine.WithBufferSize(64))
	defer e.Close()
	views, cancel := e.Subscribe()
	defer cancel()
	ctx := context.Background()

	_, err := e.Start(ctx)
	require.NoError(t, err)
	require.NoError(t, e.Create(ctx, &engine.Draft{Title: "Plan sprint"}))
	require.NoError(t, e.ChangeStatus(ctx, "2", "done"))
	target := e.View().Todo[0]
	require.NoError(t, e.Delete(ctx, &target))

	got := drain(views)
	require.NotEmpty(t, got)
	var last uint64
	for _, v := range got {
		assert.Greater(t, v.Seq, last)
		last = v.Seq
		assert.Equal(t, len(v.Tasks), v.Stats.Total)
		assert.Equal(t, len(v.Todo), v.Stats.Todo)
		assert.Equal(t, len(v.InProgress), v.Stats.InProgress)
		assert.Equal(t, len(v.Done), v.Stats.Done)
		assert.Equal(t, v.Stats.Total, v.Stats.Todo+v.Stats.InProgress+v.Stats.Done)
		assert.Equal(t, engine.CompletionRate(v.Stats.Done, v.Stats.Total), v.Stats.CompletionRate)
	}
	assert.Equal(t, e.View(), got[len(got)-1])
}
