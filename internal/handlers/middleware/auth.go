package middleware

import (
	"net/http"
	"strings"

	"github.com/nkiryanov/pointsbot/internal/auth"
	"github.com/nkiryanov/pointsbot/internal/handlers/actorctx"
	"github.com/nkiryanov/pointsbot/internal/handlers/render"
)

type tokenParser interface {
	Parse(token string) (auth.Actor, error)
}

// AuthMiddleware requires a valid bearer token and puts the actor it
// names into the request context
func AuthMiddleware(parser tokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			actor, err := parser.Parse(token)
			if err != nil {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := actorctx.New(r.Context(), actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminOnly rejects actors without the admin claim. Must run after
// AuthMiddleware.
func AdminOnly() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := actorctx.FromContext(r.Context())
			if !ok || !actor.Admin {
				render.ServiceError(w, "Forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return "", false
	}
	return token, true
}
