package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"taskboard/internal/exitcode"
	"taskboard/internal/session"
)

func init() {
	Register(&LoginCmd{})
}

// LoginCmd implements the login command.
type LoginCmd struct {
	register bool
}

// SetRegister enables creating a missing user (for testing).
func (c *LoginCmd) SetRegister(register bool) {
	c.register = register
}

func (c *LoginCmd) Name() string      { return "login" }
func (c *LoginCmd) Aliases() []string { return nil }
func (c *LoginCmd) Synopsis() string  { return "Log in with an email address" }
func (c *LoginCmd) Usage() string     { return "taskboard login [--register] <email>" }
func (c *LoginCmd) NeedsAuth() bool   { return false }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.register, "register", false, "")
}

func (c *LoginCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "error: email required")
		return exitcode.UserError
	}
	if len(args) > 1 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[1])
		return exitcode.UserError
	}
	email := strings.TrimSpace(args[0])

	if err := env.Config.EnsureDir(); err != nil {
		fmt.Fprintf(errOut, "error: failed to create config directory: %v\n", err)
		return exitcode.AuthError
	}

	flow := session.NewFlow(env.Backend, env.Store, env.logger())
	res, err := flow.Login(ctx, email)
	if err != nil {
		return report(errOut, err)
	}

	if res.UserMissing {
		if !c.register {
			fmt.Fprintf(errOut, "error: user not found: %s (run: taskboard login --register %s)\n", email, email)
			return exitcode.UserError
		}
		if _, err := flow.CreateMissingUser(ctx, email); err != nil {
			return report(errOut, err)
		}
		res, err = flow.Login(ctx, email)
		if err != nil {
			return report(errOut, err)
		}
		if res.UserMissing {
			fmt.Fprintf(errOut, "error: user not found: %s\n", email)
			return exitcode.BackendError
		}
	}

	if !env.Config.Quiet {
		fmt.Fprintf(out, "logged in as %s\n", res.Session.CurrentEmail())
	}
	return exitcode.Success
}
