package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"taskboard/internal/exitcode"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "taskboard help" }
func (c *HelpCmd) NeedsAuth() bool   { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)
	fmt.Fprintln(out)
	writeCommands(out, DefaultRegistry)
	return exitcode.Success
}

// writeCommands lists every command in reg with its synopsis and aliases.
func writeCommands(w io.Writer, reg *Registry) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Commands:")
	for _, cmd := range reg.All() {
		line := "  " + cmd.Name() + "\t" + cmd.Synopsis()
		if aliases := cmd.Aliases(); len(aliases) > 0 {
			line += " (aliases: " + strings.Join(aliases, ", ") + ")"
		}
		fmt.Fprintln(tw, line)
	}
	tw.Flush()
}

const helpText = `Usage:
  taskboard                                          Show the board
  taskboard board [common flags]                     Show the board
  taskboard stats [common flags]
  taskboard add [common flags] [--description <text>] <title...>
  taskboard create [common flags] [--description <text>] <title...>
  taskboard show [common flags] <ref>
  taskboard move [common flags] <ref> <todo|in-progress|done>
  taskboard start [common flags] <ref>
  taskboard done [common flags] <ref>
  taskboard reopen [common flags] <ref>
  taskboard edit [common flags] [--title <title>] [--description <text>] <ref>
  taskboard rm [common flags] <ref>
  taskboard login [common flags] [--register] <email>
  taskboard logout [common flags]
  taskboard help
  taskboard version

Task references:
  3        3rd task on the board, counting todo, then in progress, then done
  t2, t 2  2nd todo task
  p1       1st in-progress task
  d4       4th done task

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
