// Package restapi implements service.Backend over the task service's JSON REST API.
package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"taskboard/internal/config"
	"taskboard/internal/service"
	"taskboard/internal/session"
)

const (
	tasksPath = "/task"
	loginPath = "/auth/login"
	usersPath = "/user"

	// RequestIDHeader carries a per-request correlation ID.
	RequestIDHeader = "X-Request-ID"
)

// Client implements service.Backend using the REST API.
type Client struct {
	baseURL        string
	timeout        time.Duration
	plain          *http.Client // auth endpoints, no token
	authed         *http.Client // task endpoints, bearer token
	logger         *slog.Logger
	onUnauthorized func()
}

var _ service.Backend = (*Client)(nil)

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	httpClient     *http.Client
	logger         *slog.Logger
	onUnauthorized func()
}

// WithHTTPClient sets the base HTTP client. The bearer-token transport is
// layered on top of it for task endpoints.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = hc }
}

// WithLogger sets the logger for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(o *clientOptions) { o.logger = logger }
}

// WithUnauthorizedHandler sets a hook run when a task endpoint answers 401.
func WithUnauthorizedHandler(fn func()) Option {
	return func(o *clientOptions) { o.onUnauthorized = fn }
}

// New creates a client for cfg.APIURL. Task endpoints carry sess's token.
func New(ctx context.Context, cfg *config.Config, sess session.Context, opts ...Option) *Client {
	o := clientOptions{httpClient: http.DefaultClient}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	authed := o.httpClient
	if token := sess.Token(); token != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
		authed = oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, o.httpClient), src)
	}

	return &Client{
		baseURL:        cfg.APIURL,
		timeout:        cfg.Timeout,
		plain:          o.httpClient,
		authed:         authed,
		logger:         o.logger,
		onUnauthorized: o.onUnauthorized,
	}
}

// CreateTask implements service.Gateway.
func (c *Client) CreateTask(ctx context.Context, req service.CreateRequest) (service.Envelope[service.Task], error) {
	var env service.Envelope[service.Task]
	err := c.do(ctx, "create task", http.MethodPost, tasksPath, nil, req, true, &env)
	return env, err
}

// ListTasks implements service.Gateway.
func (c *Client) ListTasks(ctx context.Context, email string) (service.Envelope[[]service.Task], error) {
	var env service.Envelope[[]service.Task]
	query := url.Values{"userEmail": {email}}
	err := c.do(ctx, "list tasks", http.MethodGet, tasksPath+"/", query, nil, true, &env)
	return env, err
}

// MoveToTodo implements service.Gateway.
func (c *Client) MoveToTodo(ctx context.Context, taskID string) (service.Envelope[service.Task], error) {
	return c.patchStatus(ctx, taskID, "todo")
}

// MoveToInProgress implements service.Gateway.
func (c *Client) MoveToInProgress(ctx context.Context, taskID string) (service.Envelope[service.Task], error) {
	return c.patchStatus(ctx, taskID, "in-progress")
}

// MarkDone implements service.Gateway.
func (c *Client) MarkDone(ctx context.Context, taskID string) (service.Envelope[service.Task], error) {
	return c.patchStatus(ctx, taskID, "done")
}

func (c *Client) patchStatus(ctx context.Context, taskID, segment string) (service.Envelope[service.Task], error) {
	var env service.Envelope[service.Task]
	if taskID == "" {
		return env, service.ErrInvalidTarget
	}
	path := taskPath(taskID) + "/" + segment
	err := c.do(ctx, "move task to "+segment, http.MethodPatch, path, nil, struct{}{}, true, &env)
	return env, err
}

// UpdateTask implements service.Gateway.
func (c *Client) UpdateTask(ctx context.Context, task service.Task) (service.Envelope[service.Task], error) {
	var env service.Envelope[service.Task]
	if task.ID == "" {
		return env, service.ErrInvalidTarget
	}
	err := c.do(ctx, "update task", http.MethodPut, taskPath(task.ID), nil, task, true, &env)
	return env, err
}

// DeleteTask implements service.Gateway.
func (c *Client) DeleteTask(ctx context.Context, taskID string) (service.Envelope[service.Task], error) {
	var env service.Envelope[service.Task]
	if taskID == "" {
		return env, service.ErrInvalidTarget
	}
	err := c.do(ctx, "delete task", http.MethodDelete, taskPath(taskID), nil, nil, true, &env)
	return env, err
}

// Login implements service.Accounts.
func (c *Client) Login(ctx context.Context, email string) (service.Envelope[service.LoginData], error) {
	var env service.Envelope[service.LoginData]
	body := map[string]string{"email": email}
	err := c.do(ctx, "login", http.MethodPost, loginPath, nil, body, false, &env)
	return env, err
}

// Register implements service.Accounts.
func (c *Client) Register(ctx context.Context, email string) (service.Envelope[service.User], error) {
	var env service.Envelope[service.User]
	body := map[string]string{"email": email}
	err := c.do(ctx, "register", http.MethodPost, usersPath, nil, body, false, &env)
	return env, err
}

// do performs one JSON round trip and decodes the envelope into out.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body any, authed bool, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &service.TransportError{Op: op, Err: err}
		}
		reader = bytes.NewReader(data)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return &service.TransportError{Op: op, Err: err}
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)

	hc := c.plain
	if authed {
		hc = c.authed
	}

	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "op", op, "method", method, "path", path,
			"request_id", requestID, "error", err)
		return wrapError(op, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("request", "op", op, "method", method, "path", path,
		"status", resp.StatusCode, "request_id", requestID, "elapsed", time.Since(start))

	if err := googleapi.CheckResponse(resp); err != nil {
		terr := &service.TransportError{Op: op, StatusCode: resp.StatusCode, Err: err}
		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			terr.Message = gjson.Get(gerr.Body, "message").String()
			if terr.Message == "" {
				terr.Message = gerr.Message
			}
		}
		if resp.StatusCode == http.StatusUnauthorized && authed && c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return terr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &service.TransportError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("invalid response: %w", err),
		}
	}
	return nil
}

func taskPath(id string) string {
	return tasksPath + "/" + url.PathEscape(id)
}

// wrapError wraps network failures with user-friendly messages.
func wrapError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &service.TransportError{Op: op, Message: "request timed out", Err: err}
	}
	return &service.TransportError{Op: op, Err: err}
}
