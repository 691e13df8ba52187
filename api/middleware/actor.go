package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/serialstock/api/responses"
	pkgauth "github.com/angelmondragon/serialstock/pkg/auth"
	"github.com/angelmondragon/serialstock/pkg/config"
	pkgerrors "github.com/angelmondragon/serialstock/pkg/errors"
	"github.com/angelmondragon/serialstock/pkg/logger"
)

// AnonymousActor is recorded when a request names no actor at all.
const AnonymousActor = "anonymous"

// Actor resolves the caller from an optional bearer token. Requests without a
// token pass through untouched; a token that fails validation is rejected.
// With no secret configured the header is ignored.
func Actor(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	keys, _ := pkgauth.NewKeys(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" || keys == nil {
				next.ServeHTTP(w, r)
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := keys.Verify(token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithActor(r.Context(), claims.Actor())
			if logg != nil {
				ctx = logg.WithActor(ctx, claims.Actor())
				if claims.Role != "" {
					ctx = logg.WithField(ctx, "actor_role", claims.Role)
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ResolveActor picks the token actor, then the body-supplied actor, then
// AnonymousActor.
func ResolveActor(ctx context.Context, fromBody string) string {
	if actor := ActorFromContext(ctx); actor != "" {
		return actor
	}
	if actor := strings.TrimSpace(fromBody); actor != "" {
		return actor
	}
	return AnonymousActor
}
