package engine

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"taskboard/internal/service"
)

func TestDerive(t *testing.T) {
	tasks := []service.Task{
		task("1", "A", service.StatusTodo),
		task("2", "B", service.StatusInProgress),
		task("3", "C", service.StatusDone),
	}

	v := Derive(tasks)

	want := Stats{Total: 3, Todo: 1, InProgress: 1, Done: 1, CompletionRate: 33}
	assert.Empty(t, cmp.Diff(want, v.Stats), "stats (-want +got)")
	assert.Empty(t, cmp.Diff(tasks[:1], v.Todo), "todo (-want +got)")
	assert.Empty(t, cmp.Diff(tasks[1:2], v.Partition(service.StatusInProgress)), "in progress (-want +got)")
	assert.Empty(t, cmp.Diff(tasks[2:], v.Done), "done (-want +got)")
}

func TestDerive_Empty(t *testing.T) {
	v := Derive(nil)

	assert.Empty(t, cmp.Diff(Stats{}, v.Stats))
	for _, part := range [][]service.Task{v.Tasks, v.Todo, v.InProgress, v.Done} {
		assert.NotNil(t, part)
		assert.Empty(t, part)
	}
}

func TestDerive_UnknownStatusCountsOnlyInTotal(t *testing.T) {
	v := Derive([]service.Task{task("1", "A", "archived"), task("2", "B", service.StatusDone)})

	want := Stats{Total: 2, Done: 1, CompletionRate: 50}
	assert.Empty(t, cmp.Diff(want, v.Stats), "stats (-want +got)")
}

func TestDerive_DoesNotAliasInput(t *testing.T) {
	tasks := []service.Task{task("1", "A", service.StatusTodo)}
	v := Derive(tasks)

	tasks[0].Title = "changed"

	assert.Equal(t, "A", v.Tasks[0].Title)
	assert.Equal(t, "A", v.Todo[0].Title)
}

func TestCompletionRate(t *testing.T) {
	tests := []struct {
		done, total int
		want        int
	}{
		{0, 0, 0},
		{0, 5, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 2, 50},
		{1, 8, 13},
		{3, 3, 100},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CompletionRate(tt.done, tt.total), "CompletionRate(%d, %d)", tt.done, tt.total)
	}
}
