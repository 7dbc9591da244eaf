package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"taskboard/internal/service"
)

// LoginResult is the outcome of a login attempt that reached the server.
// When UserMissing is set the caller may run CreateMissingUser and then
// retry Login.
type LoginResult struct {
	Session     Session
	UserMissing bool
}

// Flow drives login and registration against the accounts endpoints.
type Flow struct {
	accounts service.Accounts
	store    *Store
	logger   *slog.Logger
}

// NewFlow creates a login flow. store may be nil to skip persistence.
func NewFlow(accounts service.Accounts, store *Store, logger *slog.Logger) *Flow {
	if logger == nil {
		logger = slog.Default()
	}
	return &Flow{accounts: accounts, store: store, logger: logger}
}

// Login authenticates email and stores the session on success.
// An unknown user is reported through LoginResult.UserMissing, not as an error.
func (f *Flow) Login(ctx context.Context, email string) (LoginResult, error) {
	email, err := service.NormalizeEmail(email)
	if err != nil {
		return LoginResult{}, err
	}

	resp, err := f.accounts.Login(ctx, email)
	if err != nil {
		var terr *service.TransportError
		if errors.As(err, &terr) && terr.StatusCode == http.StatusNotFound {
			f.logger.Debug("login: user not found", "email", email)
			return LoginResult{UserMissing: true}, nil
		}
		return LoginResult{}, err
	}
	if !resp.Success || resp.Data.Token == "" {
		return LoginResult{}, service.Fail("login", resp.Message, "login failed")
	}

	sess := Session{
		Email:     email,
		UserToken: resp.Data.Token,
		ExpiresIn: resp.Data.ExpiresIn,
	}
	if resp.Data.User.Email != "" {
		sess.Email = resp.Data.User.Email
	}
	if f.store != nil {
		if err := f.store.Save(sess); err != nil {
			return LoginResult{}, err
		}
	}
	f.logger.Debug("login: ok", "email", sess.Email)
	return LoginResult{Session: sess}, nil
}

// CreateMissingUser registers email. It does not log in.
func (f *Flow) CreateMissingUser(ctx context.Context, email string) (service.User, error) {
	email, err := service.NormalizeEmail(email)
	if err != nil {
		return service.User{}, err
	}

	resp, err := f.accounts.Register(ctx, email)
	if err != nil {
		return service.User{}, err
	}
	if !resp.Success {
		return service.User{}, service.Fail("register", resp.Message, "registration failed")
	}
	f.logger.Debug("register: ok", "email", resp.Data.Email)
	return resp.Data, nil
}

// Logout clears the stored session.
func (f *Flow) Logout() error {
	if f.store == nil {
		return nil
	}
	return f.store.Clear()
}
