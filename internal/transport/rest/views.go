package rest

import (
	"net/http"

	"github.com/frahmantamala/client-portal/internal"
	"github.com/frahmantamala/client-portal/internal/navigation"
	"github.com/frahmantamala/client-portal/internal/session"
	"github.com/frahmantamala/client-portal/internal/transport"
)

type UnauthorizedView struct {
	View    navigation.View `json:"view"`
	Message string          `json:"message"`
	Home    string          `json:"home"`
}

type UploadLimits struct {
	MaxFileSize  int64 `json:"max_file_size"`
	MaxTotalSize int64 `json:"max_total_size"`
}

type SettingsView struct {
	View                  navigation.View     `json:"view"`
	PHIAccess             session.AccessLevel `json:"phi_access"`
	CanAccessPHI          bool                `json:"can_access_phi"`
	AuditRetentionDays    int                 `json:"audit_retention_days"`
	AccessTokenTTLSeconds int64               `json:"access_token_ttl_seconds"`
	Uploads               UploadLimits        `json:"uploads"`
}

type ViewHandler struct {
	*transport.BaseHandler
	cfg *internal.Config
}

func NewViewHandler(base *transport.BaseHandler, cfg *internal.Config) *ViewHandler {
	return &ViewHandler{BaseHandler: base, cfg: cfg}
}

// Unauthorized is the terminal view every gate redirects to.
func (h *ViewHandler) Unauthorized(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, UnauthorizedView{
		View:    navigation.ViewUnauthorized,
		Message: "You do not have permission to access this page.",
		Home:    "/api/v1/dashboard",
	})
}

func (h *ViewHandler) Settings(w http.ResponseWriter, r *http.Request) {
	s := session.MustFromContext(r.Context())
	h.WriteJSON(w, http.StatusOK, SettingsView{
		View:                  navigation.ViewSettings,
		PHIAccess:             s.PHIAccess,
		CanAccessPHI:          s.CanAccessPHI(),
		AuditRetentionDays:    int(h.cfg.Audit.Retention.Hours() / 24),
		AccessTokenTTLSeconds: int64(h.cfg.Security.AccessTokenDuration.Seconds()),
		Uploads: UploadLimits{
			MaxFileSize:  h.cfg.Upload.MaxFileSize,
			MaxTotalSize: h.cfg.Upload.MaxTotalSize,
		},
	})
}
