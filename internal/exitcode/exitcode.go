// Package exitcode defines exit codes for the CLI.
package exitcode

import "taskboard/internal/service"

const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, invalid input, task not found).
	UserError = 1

	// AuthError indicates a missing or expired session.
	AuthError = 2

	// BackendError indicates a backend/API/network error.
	BackendError = 3
)

// For maps err to an exit code.
func For(err error) int {
	if err == nil {
		return Success
	}
	switch service.KindOf(err) {
	case service.KindUnauthenticated:
		return AuthError
	case service.KindValidation, service.KindInvalidTarget, service.KindBusy:
		return UserError
	}
	return BackendError
}
