package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"taskboard/internal/exitcode"
	"taskboard/internal/service"
)

func init() {
	Register(&MoveCmd{})
	Register(NewStatusCmd("start", service.StatusInProgress, "Move a task to in progress"))
	Register(NewStatusCmd("done", service.StatusDone, "Mark a task done"))
	Register(NewStatusCmd("reopen", service.StatusTodo, "Move a task back to todo"))
}

// MoveCmd implements the move command.
type MoveCmd struct{}

func (c *MoveCmd) Name() string      { return "move" }
func (c *MoveCmd) Aliases() []string { return []string{"mv"} }
func (c *MoveCmd) Synopsis() string  { return "Change a task's status" }
func (c *MoveCmd) Usage() string     { return "taskboard move <ref> <todo|in-progress|done>" }
func (c *MoveCmd) NeedsAuth() bool   { return true }

func (c *MoveCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *MoveCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	ref, rest, code := parseRef(args, errOut)
	if code != exitcode.Success {
		return code
	}
	if len(rest) == 0 {
		fmt.Fprintln(errOut, "error: status required")
		return exitcode.UserError
	}
	if len(rest) > 1 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", rest[1])
		return exitcode.UserError
	}
	// Reject a bad status before touching the backend.
	status, err := service.ParseStatus(rest[0])
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	return changeStatus(ctx, env, ref, status, out, errOut)
}

// StatusCmd implements the start, done and reopen shortcuts.
type StatusCmd struct {
	name     string
	status   service.Status
	synopsis string
}

// NewStatusCmd creates a shortcut command moving tasks to status.
func NewStatusCmd(name string, status service.Status, synopsis string) *StatusCmd {
	return &StatusCmd{name: name, status: status, synopsis: synopsis}
}

func (c *StatusCmd) Name() string      { return c.name }
func (c *StatusCmd) Aliases() []string { return nil }
func (c *StatusCmd) Synopsis() string  { return c.synopsis }
func (c *StatusCmd) Usage() string     { return "taskboard " + c.name + " <ref>" }
func (c *StatusCmd) NeedsAuth() bool   { return true }

func (c *StatusCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *StatusCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	ref, rest, code := parseRef(args, errOut)
	if code != exitcode.Success {
		return code
	}
	if len(rest) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", rest[0])
		return exitcode.UserError
	}
	return changeStatus(ctx, env, ref, c.status, out, errOut)
}

func changeStatus(ctx context.Context, env *Env, ref TaskRef, status service.Status, out, errOut io.Writer) int {
	eng := newEngine(env)
	defer eng.Close()

	task, code := lookupTask(ctx, eng, ref, errOut)
	if code != exitcode.Success {
		return code
	}
	if task.Status == status {
		if !env.Config.Quiet {
			fmt.Fprintf(out, "already %s\n", strings.ToLower(status.Label()))
		}
		return exitcode.Success
	}

	if err := eng.ChangeStatus(ctx, task.ID, string(status)); err != nil {
		return report(errOut, err)
	}

	if !env.Config.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
