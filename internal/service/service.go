// Package service defines the backend-agnostic model and interfaces for task operations.
package service

import "context"

// Gateway defines the remote task operations.
// The engine and commands never talk HTTP directly; everything goes
// through this interface.
//
// A non-nil error means the call failed in transport (network, timeout,
// non-2xx status). A nil error with Success=false is a business failure
// reported by the server.
type Gateway interface {
	// CreateTask creates a task and returns it with server-assigned fields.
	CreateTask(ctx context.Context, req CreateRequest) (Envelope[Task], error)

	// ListTasks returns every task owned by email.
	ListTasks(ctx context.Context, email string) (Envelope[[]Task], error)

	// MoveToTodo moves a task back to the todo bucket.
	MoveToTodo(ctx context.Context, taskID string) (Envelope[Task], error)

	// MoveToInProgress moves a task to the in_progress bucket.
	MoveToInProgress(ctx context.Context, taskID string) (Envelope[Task], error)

	// MarkDone moves a task to the done bucket.
	MarkDone(ctx context.Context, taskID string) (Envelope[Task], error)

	// UpdateTask replaces a task by ID and returns the stored copy.
	UpdateTask(ctx context.Context, task Task) (Envelope[Task], error)

	// DeleteTask deletes a task and returns the deleted copy.
	DeleteTask(ctx context.Context, taskID string) (Envelope[Task], error)
}

// Accounts defines the remote user operations.
// These calls are unauthenticated.
type Accounts interface {
	// Login exchanges an email for a session token.
	Login(ctx context.Context, email string) (Envelope[LoginData], error)

	// Register creates a user for email.
	Register(ctx context.Context, email string) (Envelope[User], error)
}

// Backend is everything a remote task service offers.
type Backend interface {
	Gateway
	Accounts
}

// SetStatus dispatches to the Gateway endpoint matching status.
// status must be valid; callers parse it first.
func SetStatus(ctx context.Context, gw Gateway, taskID string, status Status) (Envelope[Task], error) {
	switch status {
	case StatusTodo:
		return gw.MoveToTodo(ctx, taskID)
	case StatusInProgress:
		return gw.MoveToInProgress(ctx, taskID)
	case StatusDone:
		return gw.MarkDone(ctx, taskID)
	}
	return Envelope[Task]{}, ErrInvalidStatus
}
