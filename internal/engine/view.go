package engine

import (
	"math"

	"taskboard/internal/service"
)

// Stats summarizes a task list.
type Stats struct {
	Total          int
	Todo           int
	InProgress     int
	Done           int
	CompletionRate int // percent of Total that is done, rounded half up
}

// View is one consistent derivation of the cache: the full list, its
// three status partitions and the stats all come from the same snapshot.
// Views are values; subscribers may keep them.
type View struct {
	Seq        uint64
	Tasks      []service.Task
	Todo       []service.Task
	InProgress []service.Task
	Done       []service.Task
	Stats      Stats
	Err        string // error slot at the time the view was derived
}

// Partition returns the tasks of v with status s.
func (v View) Partition(s service.Status) []service.Task {
	switch s {
	case service.StatusTodo:
		return v.Todo
	case service.StatusInProgress:
		return v.InProgress
	case service.StatusDone:
		return v.Done
	}
	return nil
}

// Derive builds a View from tasks. Tasks with an unknown status count
// toward Total but belong to no partition.
func Derive(tasks []service.Task) View {
	v := View{
		Tasks:      make([]service.Task, 0, len(tasks)),
		Todo:       []service.Task{},
		InProgress: []service.Task{},
		Done:       []service.Task{},
	}
	for _, t := range tasks {
		v.Tasks = append(v.Tasks, t)
		switch t.Status {
		case service.StatusTodo:
			v.Todo = append(v.Todo, t)
		case service.StatusInProgress:
			v.InProgress = append(v.InProgress, t)
		case service.StatusDone:
			v.Done = append(v.Done, t)
		}
	}
	v.Stats = Stats{
		Total:          len(v.Tasks),
		Todo:           len(v.Todo),
		InProgress:     len(v.InProgress),
		Done:           len(v.Done),
		CompletionRate: CompletionRate(len(v.Done), len(v.Tasks)),
	}
	return v
}

// CompletionRate returns done/total as a whole percentage, 0 when total is 0.
func CompletionRate(done, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Floor(float64(done)*100/float64(total) + 0.5))
}
