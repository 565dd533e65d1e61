package handlers

import (
	"context"
	"net/http"

	"github.com/St1cky1/entraide-service/internal/entity"
	"github.com/St1cky1/entraide-service/internal/infrastructure/auth"
)

// Authenticator проверяет access token
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (entity.Actor, error)
}

type actorKey struct{}

func WithActor(ctx context.Context, actor entity.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFromContext(ctx context.Context) (entity.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(entity.Actor)
	return actor, ok
}

// RequireAuth кладет действующее лицо в контекст запроса
func RequireAuth(authenticator Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.BearerToken(r.Header.Get("Authorization"))
			if token == "" {
				writeError(w, r, entity.ErrUnauthorized)
				return
			}

			actor, err := authenticator.Authenticate(r.Context(), token)
			if err != nil {
				writeError(w, r, entity.ErrUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func mustActor(r *http.Request) entity.Actor {
	actor, _ := ActorFromContext(r.Context())
	return actor
}
