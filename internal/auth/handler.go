package auth

import (
	"errors"
	"net/http"

	"github.com/frahmantamala/client-portal/internal/session"
	"github.com/frahmantamala/client-portal/internal/transport"
	"github.com/frahmantamala/client-portal/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Service  ServiceAPI
	Sessions SessionLoader
}

func NewHandler(baseHandler *transport.BaseHandler, svc ServiceAPI, sessions SessionLoader) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     svc,
		Sessions:    sessions,
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	tokens, err := h.Service.Authenticate(dto)
	if err != nil {
		h.Logger.Warn("authentication failed", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, tokens)
}

func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var dto RefreshTokenDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	if appErr := dto.Validate(); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	tokens, err := h.Service.RefreshTokens(dto.RefreshToken)
	if err != nil {
		h.Logger.Warn("token refresh failed", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, tokens)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := h.ExtractTokenFromHeader(r)
	if token == "" {
		h.WriteAppError(w, ErrInvalidToken)
		return
	}

	if err := h.Service.Revoke(token); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AuthMiddleware turns a bearer token into a session on the request context.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			h.Logger.Warn("auth middleware: missing authorization token", "path", r.URL.Path)
			h.WriteAppError(w, ErrInvalidToken)
			return
		}

		claims, err := h.Service.ValidateAccessToken(token)
		if err != nil {
			h.Logger.Warn("auth middleware: token validation failed", "error", err)
			h.HandleServiceError(w, err)
			return
		}

		s, err := h.Sessions.SessionFor(r.Context(), claims.UserID)
		if err != nil {
			h.Logger.Warn("auth middleware: failed to load session", "user_id", claims.UserID, "error", err)
			if errors.Is(err, ErrUserInactive) {
				h.WriteAppError(w, ErrUserInactive)
				return
			}
			h.WriteAppError(w, ErrInvalidToken)
			return
		}

		ctx := session.WithSession(r.Context(), s)
		ctx = logger.With(ctx, "user_id", s.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
