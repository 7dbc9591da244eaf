package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskboard/internal/engine"
	"taskboard/internal/exitcode"
	"taskboard/internal/output"
)

func init() {
	Register(&EditCmd{})
	Register(&ShowCmd{})
}

// optionalString is a string flag that remembers whether it was given.
type optionalString struct {
	value string
	set   bool
}

func (s *optionalString) String() string { return s.value }

func (s *optionalString) Set(v string) error {
	s.value = v
	s.set = true
	return nil
}

// EditCmd implements the edit command.
type EditCmd struct {
	title       optionalString
	description optionalString
}

// SetTitle sets the new title (for testing).
func (c *EditCmd) SetTitle(title string) { _ = c.title.Set(title) }

// SetDescription sets the new description (for testing).
func (c *EditCmd) SetDescription(desc string) { _ = c.description.Set(desc) }

func (c *EditCmd) Name() string      { return "edit" }
func (c *EditCmd) Aliases() []string { return nil }
func (c *EditCmd) Synopsis() string  { return "Change a task's title or description" }
func (c *EditCmd) Usage() string {
	return "taskboard edit [--title <title>] [--description <text>] <ref>"
}
func (c *EditCmd) NeedsAuth() bool { return true }

func (c *EditCmd) RegisterFlags(fs *flag.FlagSet) {
	c.title, c.description = optionalString{}, optionalString{}
	fs.Var(&c.title, "title", "")
	fs.Var(&c.description, "description", "")
	fs.Var(&c.description, "d", "")
}

func (c *EditCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	ref, rest, code := parseRef(args, errOut)
	if code != exitcode.Success {
		return code
	}
	if len(rest) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", rest[0])
		return exitcode.UserError
	}
	if !c.title.set && !c.description.set {
		fmt.Fprintln(errOut, "error: nothing to change (use --title or --description)")
		return exitcode.UserError
	}

	eng := newEngine(env)
	defer eng.Close()

	task, code := lookupTask(ctx, eng, ref, errOut)
	if code != exitcode.Success {
		return code
	}

	draft := engine.Draft{Title: task.Title, Description: task.Description}
	if c.title.set {
		draft.Title = c.title.value
	}
	if c.description.set {
		draft.Description = c.description.value
	}
	if err := eng.Update(ctx, &task, draft); err != nil {
		return report(errOut, err)
	}

	if !env.Config.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

// ShowCmd implements the show command.
type ShowCmd struct{}

func (c *ShowCmd) Name() string      { return "show" }
func (c *ShowCmd) Aliases() []string { return nil }
func (c *ShowCmd) Synopsis() string  { return "Show a task's details" }
func (c *ShowCmd) Usage() string     { return "taskboard show <ref>" }
func (c *ShowCmd) NeedsAuth() bool   { return true }

func (c *ShowCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ShowCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	ref, rest, code := parseRef(args, errOut)
	if code != exitcode.Success {
		return code
	}
	if len(rest) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", rest[0])
		return exitcode.UserError
	}

	eng := newEngine(env)
	defer eng.Close()

	task, code := lookupTask(ctx, eng, ref, errOut)
	if code != exitcode.Success {
		return code
	}
	output.FormatTaskDetail(out, task)
	return exitcode.Success
}
