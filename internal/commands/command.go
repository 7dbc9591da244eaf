// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"taskboard/internal/config"
	"taskboard/internal/engine"
	"taskboard/internal/exitcode"
	"taskboard/internal/service"
	"taskboard/internal/session"
)

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// NeedsAuth returns true if the command requires a logged-in session.
	// Commands like help, version, login, logout return false.
	NeedsAuth() bool

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int
}

// Env is what a command runs against.
type Env struct {
	// Config is always provided (config dir, paths, API settings).
	Config *config.Config

	// Backend is the remote service. It is nil for commands that never
	// reach it (help, version, logout).
	Backend service.Backend

	// Session is the stored session, Anonymous if none.
	Session session.Session

	// Store persists Session.
	Store *session.Store

	Logger *slog.Logger
}

// logger returns env's logger or the default.
func (env *Env) logger() *slog.Logger {
	if env.Logger == nil {
		return slog.Default()
	}
	return env.Logger
}

// newEngine creates a sync engine for the env's session.
func newEngine(env *Env) *engine.Engine {
	return engine.New(env.Backend, env.Session, engine.WithLogger(env.logger()))
}

// report prints err as an "error:" line and returns its exit code.
func report(errOut io.Writer, err error) int {
	switch service.KindOf(err) {
	case service.KindUnauthenticated:
		if errors.Is(err, service.ErrUnauthenticated) {
			fmt.Fprintln(errOut, "error: not logged in (run: taskboard login <email>)")
		} else {
			fmt.Fprintln(errOut, "error: session expired (run: taskboard login <email>)")
		}
	case service.KindTransport, service.KindUnknown:
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
	default:
		fmt.Fprintf(errOut, "error: %v\n", err)
	}
	return exitcode.For(err)
}
