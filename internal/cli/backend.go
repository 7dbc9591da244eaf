package cli

import (
	"context"

	"taskboard/internal/backend/restapi"
	"taskboard/internal/commands"
	"taskboard/internal/service"
)

// RESTBackend is the production BackendFactory. A 401 from a task
// endpoint removes the stored session.
func RESTBackend(ctx context.Context, env *commands.Env) (service.Backend, error) {
	return restapi.New(ctx, env.Config, env.Session,
		restapi.WithLogger(env.Logger),
		restapi.WithUnauthorizedHandler(func() {
			if err := env.Store.Clear(); err != nil {
				env.Logger.Warn("failed to clear session", "error", err)
			}
		}),
	), nil
}
