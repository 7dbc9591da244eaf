package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/service"
)

func task(id, title string, status service.Status) service.Task {
	return service.Task{ID: id, Title: title, Status: status, UserEmail: "a@x.com"}
}

type recorder struct {
	snaps []Snapshot
}

func (r *recorder) hook(s Snapshot) { r.snaps = append(r.snaps, s) }

func TestCache_ReplaceNotifiesOnce(t *testing.T) {
	rec := &recorder{}
	c := NewCache(rec.hook, nil)

	c.Replace([]service.Task{task("1", "A", service.StatusTodo)})

	require.Len(t, rec.snaps, 1)
	assert.Equal(t, uint64(1), rec.snaps[0].Version)
	assert.Len(t, c.Current(), 1)
}

func TestCache_CurrentIsACopy(t *testing.T) {
	c := NewCache(nil, nil)
	c.Replace([]service.Task{task("1", "A", service.StatusTodo)})

	got := c.Current()
	got[0].Title = "mutated"

	assert.Equal(t, "A", c.Current()[0].Title)
}

func TestCache_PatchIsCopyOnWrite(t *testing.T) {
	rec := &recorder{}
	c := NewCache(rec.hook, nil)
	c.Replace([]service.Task{task("1", "A", service.StatusTodo), task("2", "B", service.StatusTodo)})
	before := c.Snapshot()

	ok := c.Patch("2", func(t service.Task) service.Task {
		t.Status = service.StatusDone
		return t
	})

	require.True(t, ok)
	assert.Equal(t, service.StatusTodo, before.Tasks[1].Status, "earlier snapshot must not change")
	assert.Equal(t, service.StatusDone, c.Current()[1].Status)
	assert.Len(t, rec.snaps, 2)
}

func TestCache_PatchUnknownIsNoop(t *testing.T) {
	rec := &recorder{}
	c := NewCache(rec.hook, nil)
	c.Replace([]service.Task{task("1", "A", service.StatusTodo)})

	ok := c.Patch("missing", func(t service.Task) service.Task {
		t.Title = "nope"
		return t
	})

	assert.False(t, ok)
	assert.Len(t, rec.snaps, 1)
	assert.Equal(t, "A", c.Current()[0].Title)
}

func TestCache_Remove(t *testing.T) {
	c := NewCache(nil, nil)
	c.Replace([]service.Task{task("1", "A", service.StatusTodo), task("2", "B", service.StatusDone)})
	before := c.Snapshot()

	assert.True(t, c.Remove("1"))
	assert.False(t, c.Remove("1"))

	got := c.Current()
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)
	assert.Len(t, before.Tasks, 2)
	assert.Equal(t, "1", before.Tasks[0].ID)
}

func TestCache_ReplaceIfDropsOlderTicket(t *testing.T) {
	c := NewCache(nil, nil)

	older := c.Begin()
	newer := c.Begin()

	require.True(t, c.ReplaceIf(newer, []service.Task{task("1", "new", service.StatusTodo)}))
	assert.False(t, c.ReplaceIf(older, []service.Task{task("1", "old", service.StatusTodo)}))
	assert.True(t, c.Stale(older))

	assert.Equal(t, "new", c.Current()[0].Title)
}

func TestCache_MutationSupersedesInFlightFetch(t *testing.T) {
	c := NewCache(nil, nil)
	c.Replace([]service.Task{task("1", "A", service.StatusTodo)})

	inFlight := c.Begin()
	c.Patch("1", func(t service.Task) service.Task {
		t.Status = service.StatusDone
		return t
	})

	assert.False(t, c.ReplaceIf(inFlight, []service.Task{task("1", "A", service.StatusTodo)}))
	assert.Equal(t, service.StatusDone, c.Current()[0].Status)

	next := c.Begin()
	assert.True(t, c.ReplaceIf(next, []service.Task{task("1", "A", service.StatusInProgress)}))
}
