package navigation

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/frahmantamala/client-portal/internal/session"
)

type View string

const (
	ViewDashboard    View = "dashboard"
	ViewProjects     View = "projects"
	ViewMessages     View = "messages"
	ViewDocuments    View = "documents"
	ViewSettings     View = "settings"
	ViewUnauthorized View = "unauthorized"
)

// UnauthorizedPath is where denied requests are redirected. It is never gated.
const UnauthorizedPath = "/api/v1/views/unauthorized"

// Link is one sidebar entry.
type Link struct {
	View       View   `json:"view"`
	Label      string `json:"label"`
	Path       string `json:"path"`
	Permission string `json:"-"`
}

var links = []Link{
	{View: ViewDashboard, Label: "Dashboard", Path: "/api/v1/dashboard", Permission: session.PermViewDashboard},
	{View: ViewProjects, Label: "Projects", Path: "/api/v1/projects", Permission: session.PermViewProjects},
	{View: ViewMessages, Label: "Messages", Path: "/api/v1/messages", Permission: session.PermViewMessages},
	{View: ViewDocuments, Label: "Documents", Path: "/api/v1/documents", Permission: session.PermViewDocuments},
	{View: ViewSettings, Label: "Settings", Path: "/api/v1/settings", Permission: session.PermViewSettings},
}

// RequiredPermission returns the token bound to a view, or "" when the view is ungated.
func RequiredPermission(v View) string {
	for _, l := range links {
		if l.View == v {
			return l.Permission
		}
	}
	return ""
}

// Resolve decides which view is rendered. It has no state of its own.
func Resolve(requested View, required string, perms []string) View {
	if required == "" || requested == ViewUnauthorized {
		return requested
	}
	if slices.Contains(perms, required) {
		return requested
	}
	return ViewUnauthorized
}

// Links lists the entries visible to s, in sidebar order.
func Links(s *session.Session) []Link {
	visible := make([]Link, 0, len(links))
	for _, l := range links {
		if s.HasPermission(l.Permission) {
			visible = append(visible, l)
		}
	}
	return visible
}

type Gate struct {
	logger *slog.Logger
}

func NewGate(logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{logger: logger}
}

// Middleware guards a view. Denial is a redirect, not an error body.
func (g *Gate) Middleware(v View) func(http.Handler) http.Handler {
	required := RequiredPermission(v)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var perms []string
			userID := ""
			if s, ok := session.FromContext(r.Context()); ok {
				perms = s.Permissions
				userID = s.UserID
			}

			if Resolve(v, required, perms) == ViewUnauthorized {
				g.logger.WarnContext(r.Context(), "access denied: view requires permission",
					"user_id", userID,
					"view", string(v),
					"required_permission", required)
				http.Redirect(w, r, UnauthorizedPath, http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
