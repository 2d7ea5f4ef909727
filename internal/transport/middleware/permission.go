package middleware

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/client-portal/internal"
	"github.com/frahmantamala/client-portal/internal/session"
	"github.com/frahmantamala/client-portal/internal/transport"
)

// RequirePermissions lets the request through when the session holds any of
// the given permissions. API routes answer 403; view routes use the
// navigation gate instead.
func RequirePermissions(logger *slog.Logger, permissions ...string) func(http.Handler) http.Handler {
	base := transport.NewBaseHandler(logger)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, ok := session.FromContext(r.Context())
			if !ok {
				base.WriteAppError(w, internal.ErrInvalidToken)
				return
			}

			for _, p := range permissions {
				if s.HasPermission(p) {
					next.ServeHTTP(w, r)
					return
				}
			}

			base.Logger.WarnContext(r.Context(), "access denied: user lacks required permissions",
				"user_id", s.UserID,
				"required_permissions", permissions,
				"user_permissions", s.Permissions)
			base.WriteAppError(w, internal.ErrPermissionDenied)
		})
	}
}

// RequirePHIAccess rejects sessions below the full PHI tier.
func RequirePHIAccess(logger *slog.Logger) func(http.Handler) http.Handler {
	base := transport.NewBaseHandler(logger)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, _ := session.FromContext(r.Context())
			if !s.CanAccessPHI() {
				userID := ""
				if s != nil {
					userID = s.UserID
				}
				base.Logger.WarnContext(r.Context(), "access denied: PHI access required", "user_id", userID)
				base.WriteAppError(w, internal.ErrPHIAccessDenied)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
