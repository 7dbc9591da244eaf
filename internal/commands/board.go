package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskboard/internal/exitcode"
	"taskboard/internal/output"
)

func init() {
	Register(&BoardCmd{})
	Register(&StatsCmd{})
}

// BoardCmd implements the board command.
// Handles both `taskboard` (no args) and `taskboard board`.
type BoardCmd struct{}

func (c *BoardCmd) Name() string      { return "board" }
func (c *BoardCmd) Aliases() []string { return []string{"list", "ls"} }
func (c *BoardCmd) Synopsis() string  { return "Show tasks by status" }
func (c *BoardCmd) Usage() string     { return "taskboard board" }
func (c *BoardCmd) NeedsAuth() bool   { return true }

func (c *BoardCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *BoardCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	eng := newEngine(env)
	defer eng.Close()

	view, err := eng.Start(ctx)
	if err != nil {
		return report(errOut, err)
	}

	if view.Stats.Total == 0 {
		if !env.Config.Quiet {
			fmt.Fprintln(out, "no tasks found")
		}
		return exitcode.Success
	}

	output.FormatBoard(out, view, LetterFor)
	if !env.Config.Quiet {
		output.FormatStats(out, view.Stats)
	}
	return exitcode.Success
}

// StatsCmd implements the stats command.
type StatsCmd struct{}

func (c *StatsCmd) Name() string      { return "stats" }
func (c *StatsCmd) Aliases() []string { return nil }
func (c *StatsCmd) Synopsis() string  { return "Show task counts and completion rate" }
func (c *StatsCmd) Usage() string     { return "taskboard stats" }
func (c *StatsCmd) NeedsAuth() bool   { return true }

func (c *StatsCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *StatsCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	eng := newEngine(env)
	defer eng.Close()

	view, err := eng.Start(ctx)
	if err != nil {
		return report(errOut, err)
	}
	output.FormatStats(out, view.Stats)
	return exitcode.Success
}
