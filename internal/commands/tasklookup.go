package commands

import (
	"context"
	"fmt"
	"io"

	"taskboard/internal/engine"
	"taskboard/internal/exitcode"
	"taskboard/internal/service"
)

// parseRef parses the reference at the front of args and returns the
// remaining args. On failure it prints the error and returns a non-zero code.
func parseRef(args []string, errOut io.Writer) (TaskRef, []string, int) {
	ref, n, err := ParseTaskRef(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return TaskRef{}, nil, exitcode.UserError
	}
	if ref.TaskNum < 1 {
		fmt.Fprintf(errOut, "error: task number out of range: %s\n", ref)
		return TaskRef{}, nil, exitcode.UserError
	}
	return ref, args[n:], exitcode.Success
}

// lookupTask loads the board and resolves ref against it.
func lookupTask(ctx context.Context, eng *engine.Engine, ref TaskRef, errOut io.Writer) (service.Task, int) {
	view, err := eng.Start(ctx)
	if err != nil {
		return service.Task{}, report(errOut, err)
	}

	task, err := ref.Resolve(view)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return service.Task{}, exitcode.UserError
	}
	return task, exitcode.Success
}
