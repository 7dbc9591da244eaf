// Package service defines the backend-agnostic model and interfaces for task operations.
package service

import (
	"fmt"
	"strings"
)

// Status is a task lifecycle bucket.
type Status string

// Task statuses as the remote service spells them.
const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// Statuses lists every valid status in board order.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusDone}

// ParseStatus converts user or wire input into a Status.
// Accepts "in-progress" as an alias for "in_progress". Empty and unknown
// values are rejected with ErrInvalidStatus.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "todo":
		return StatusTodo, nil
	case "in_progress", "in-progress":
		return StatusInProgress, nil
	case "done":
		return StatusDone, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Valid reports whether s is one of the three known statuses.
func (s Status) Valid() bool {
	return s == StatusTodo || s == StatusInProgress || s == StatusDone
}

// Label returns the human-readable name of the status.
func (s Status) Label() string {
	switch s {
	case StatusTodo:
		return "To do"
	case StatusInProgress:
		return "In progress"
	case StatusDone:
		return "Done"
	}
	return string(s)
}

// Task represents a single task owned by one user.
// ID, UserEmail, CreatedAt and UpdatedAt are assigned by the server and
// are opaque to the client.
type Task struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      Status `json:"status"`
	UserEmail   string `json:"userEmail"`
	CreatedAt   string `json:"createdAt,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

// CreateRequest is the payload for creating a task.
type CreateRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	UserEmail   string `json:"userEmail"`
	Status      Status `json:"status"`
}

// NewCreateRequest builds a CreateRequest with the default todo status.
func NewCreateRequest(title, description, email string) CreateRequest {
	return CreateRequest{
		Title:       strings.TrimSpace(title),
		Description: description,
		UserEmail:   email,
		Status:      StatusTodo,
	}
}

// Envelope is the uniform response shape of every remote call.
// Success=false is a business failure, not a transport error.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

// User is a registered account.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// LoginData is the payload of a successful login.
type LoginData struct {
	User      User   `json:"user"`
	Token     string `json:"token"`
	ExpiresIn string `json:"expiresIn,omitempty"`
}
