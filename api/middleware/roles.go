package middleware

import (
	"net/http"

	"github.com/angelmondragon/storyprint-backend/api/responses"
	"github.com/angelmondragon/storyprint-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storyprint-backend/pkg/errors"
	"github.com/angelmondragon/storyprint-backend/pkg/logger"
)

// RequireRole admits only callers holding role. An admin token does not open
// parent routes.
func RequireRole(role enums.ActorRole, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, err := enums.ParseActorRole(RoleFromContext(r.Context()))
			if err != nil || got != role {
				ctx := r.Context()
				if logg != nil {
					ctx = logg.WithFields(ctx, map[string]any{
						"required_role": string(role),
						"actor_role":    RoleFromContext(r.Context()),
						"path":          r.URL.Path,
					})
					logg.Warn(ctx, "role check failed")
				}
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, roleRequiredMessage(role)))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func roleRequiredMessage(role enums.ActorRole) string {
	switch role {
	case enums.ActorRoleAdmin:
		return "admin access required"
	case enums.ActorRoleParent:
		return "parent account required"
	default:
		return string(role) + " role required"
	}
}
