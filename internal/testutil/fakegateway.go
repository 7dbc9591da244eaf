// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"taskboard/internal/service"
)

// Operation names used for error injection, rejections and call counts.
const (
	OpCreate   = "create"
	OpList     = "list"
	OpStatus   = "status"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpLogin    = "login"
	OpRegister = "register"
)

// FakeGateway is an in-memory implementation of service.Backend for testing.
type FakeGateway struct {
	mu     sync.RWMutex
	tasks  []service.Task
	users  map[string]service.User
	tokens map[string]string // token -> email
	calls  map[string]int

	// Errs injects a transport-level error per operation.
	Errs map[string]error

	// Rejects makes an operation answer success=false with the given message.
	Rejects map[string]string

	// BeforeList runs before ListTasks reads state. Tests use it to hold a
	// fetch open while other calls complete.
	BeforeList func(email string)

	// Rewrite transforms the stored task after a status change or update,
	// simulating server-side normalization.
	Rewrite func(op string, t service.Task) service.Task
}

// NewFakeGateway creates an empty FakeGateway.
func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		users:   make(map[string]service.User),
		tokens:  make(map[string]string),
		calls:   make(map[string]int),
		Errs:    make(map[string]error),
		Rejects: make(map[string]string),
	}
}

// AddUser registers email directly.
func (f *FakeGateway) AddUser(email string) service.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := service.User{ID: uuid.NewString(), Email: email, CreatedAt: now()}
	f.users[email] = u
	return u
}

// AddTask seeds a task and returns it.
func (f *FakeGateway) AddTask(email, id, title string, status service.Status) service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := service.Task{
		ID:        id,
		Title:     title,
		Status:    status,
		UserEmail: email,
		CreatedAt: now(),
	}
	f.tasks = append(f.tasks, t)
	return t
}

// Task returns the stored task with id.
func (f *FakeGateway) Task(id string) (service.Task, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	i := f.indexOf(id)
	if i < 0 {
		return service.Task{}, false
	}
	return f.tasks[i], true
}

// CallCount returns how many times op was invoked.
func (f *FakeGateway) CallCount(op string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.calls[op]
}

// TotalCalls returns the number of invocations across all operations.
func (f *FakeGateway) TotalCalls() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

// IssueToken creates a valid session token for email without a login call.
func (f *FakeGateway) IssueToken(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	token := "token-" + uuid.NewString()
	f.tokens[token] = email
	return token
}

// TokenEmail returns the email a token was issued for.
func (f *FakeGateway) TokenEmail(token string) (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	email, ok := f.tokens[token]
	return email, ok
}

// CreateTask implements service.Gateway.
func (f *FakeGateway) CreateTask(ctx context.Context, req service.CreateRequest) (service.Envelope[service.Task], error) {
	if msg, done, err := f.begin(OpCreate); done {
		return service.Envelope[service.Task]{Message: msg}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	status := req.Status
	if status == "" {
		status = service.StatusTodo
	}
	t := service.Task{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		Status:      status,
		UserEmail:   req.UserEmail,
		CreatedAt:   now(),
	}
	t.UpdatedAt = t.CreatedAt
	f.tasks = append(f.tasks, t)
	return service.Envelope[service.Task]{Success: true, Data: t}, nil
}

// ListTasks implements service.Gateway.
func (f *FakeGateway) ListTasks(ctx context.Context, email string) (service.Envelope[[]service.Task], error) {
	if f.BeforeList != nil {
		f.BeforeList(email)
	}
	if msg, done, err := f.begin(OpList); done {
		return service.Envelope[[]service.Task]{Message: msg}, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	result := []service.Task{}
	for _, t := range f.tasks {
		if t.UserEmail == email {
			result = append(result, t)
		}
	}
	return service.Envelope[[]service.Task]{Success: true, Data: result}, nil
}

// MoveToTodo implements service.Gateway.
func (f *FakeGateway) MoveToTodo(ctx context.Context, taskID string) (service.Envelope[service.Task], error) {
	return f.setStatus(taskID, service.StatusTodo)
}

// MoveToInProgress implements service.Gateway.
func (f *FakeGateway) MoveToInProgress(ctx context.Context, taskID string) (service.Envelope[service.Task], error) {
	return f.setStatus(taskID, service.StatusInProgress)
}

// MarkDone implements service.Gateway.
func (f *FakeGateway) MarkDone(ctx context.Context, taskID string) (service.Envelope[service.Task], error) {
	return f.setStatus(taskID, service.StatusDone)
}

func (f *FakeGateway) setStatus(taskID string, status service.Status) (service.Envelope[service.Task], error) {
	if msg, done, err := f.begin(OpStatus); done {
		return service.Envelope[service.Task]{Message: msg}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.indexOf(taskID)
	if i < 0 {
		return service.Envelope[service.Task]{Message: "Task not found"}, nil
	}
	t := f.tasks[i]
	t.Status = status
	t.UpdatedAt = now()
	if f.Rewrite != nil {
		t = f.Rewrite(OpStatus, t)
	}
	f.tasks[i] = t
	return service.Envelope[service.Task]{Success: true, Data: t}, nil
}

// UpdateTask implements service.Gateway.
func (f *FakeGateway) UpdateTask(ctx context.Context, task service.Task) (service.Envelope[service.Task], error) {
	if msg, done, err := f.begin(OpUpdate); done {
		return service.Envelope[service.Task]{Message: msg}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.indexOf(task.ID)
	if i < 0 {
		return service.Envelope[service.Task]{Message: "Task not found"}, nil
	}
	t := f.tasks[i]
	t.Title = task.Title
	t.Description = task.Description
	t.UpdatedAt = now()
	if f.Rewrite != nil {
		t = f.Rewrite(OpUpdate, t)
	}
	f.tasks[i] = t
	return service.Envelope[service.Task]{Success: true, Data: t}, nil
}

// DeleteTask implements service.Gateway.
func (f *FakeGateway) DeleteTask(ctx context.Context, taskID string) (service.Envelope[service.Task], error) {
	if msg, done, err := f.begin(OpDelete); done {
		return service.Envelope[service.Task]{Message: msg}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.indexOf(taskID)
	if i < 0 {
		return service.Envelope[service.Task]{Message: "Task not found"}, nil
	}
	t := f.tasks[i]
	f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
	return service.Envelope[service.Task]{Success: true, Data: t}, nil
}

// Login implements service.Accounts. Unknown users get a 404 transport error.
func (f *FakeGateway) Login(ctx context.Context, email string) (service.Envelope[service.LoginData], error) {
	if msg, done, err := f.begin(OpLogin); done {
		return service.Envelope[service.LoginData]{Message: msg}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[email]
	if !ok {
		return service.Envelope[service.LoginData]{}, &service.TransportError{
			Op:         "login",
			StatusCode: http.StatusNotFound,
			Message:    "User not found",
		}
	}
	token := "token-" + uuid.NewString()
	f.tokens[token] = email
	return service.Envelope[service.LoginData]{
		Success: true,
		Data:    service.LoginData{User: u, Token: token, ExpiresIn: "24h"},
	}, nil
}

// Register implements service.Accounts.
func (f *FakeGateway) Register(ctx context.Context, email string) (service.Envelope[service.User], error) {
	if msg, done, err := f.begin(OpRegister); done {
		return service.Envelope[service.User]{Message: msg}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.users[email]; ok {
		return service.Envelope[service.User]{Message: "User already exists"}, nil
	}
	u := service.User{ID: uuid.NewString(), Email: email, CreatedAt: now()}
	f.users[email] = u
	return service.Envelope[service.User]{Success: true, Data: u}, nil
}

// begin counts the call and applies injected errors and rejections.
// done reports that the caller should return immediately.
func (f *FakeGateway) begin(op string) (message string, done bool, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	if err := f.Errs[op]; err != nil {
		return "", true, err
	}
	if msg, ok := f.Rejects[op]; ok {
		return msg, true, nil
	}
	return "", false, nil
}

func (f *FakeGateway) indexOf(id string) int {
	for i, t := range f.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
