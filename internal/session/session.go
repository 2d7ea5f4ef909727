package session

import (
	"context"
	"slices"
	"sync/atomic"
)

// Permission tokens. Membership is the only check; there is no hierarchy.
const (
	PermViewDashboard = "view_dashboard"
	PermViewProjects  = "view_projects"
	PermEditProjects  = "edit_projects"
	PermViewMessages  = "view_messages"
	PermViewDocuments = "view_documents"
	PermViewSettings  = "view_settings"
	PermManageUsers   = "manage_users"
	PermAccessPHI     = "access_phi"
)

// AllPermissions is the ordered set of tokens the portal knows about.
var AllPermissions = []string{
	PermViewDashboard,
	PermViewProjects,
	PermEditProjects,
	PermViewMessages,
	PermViewDocuments,
	PermViewSettings,
	PermManageUsers,
	PermAccessPHI,
}

type AccessLevel string

const (
	AccessFull    AccessLevel = "full_phi_access"
	AccessLimited AccessLevel = "limited_phi_access"
	AccessNone    AccessLevel = "no_phi_access"
)

func (a AccessLevel) Valid() bool {
	switch a {
	case AccessFull, AccessLimited, AccessNone:
		return true
	}
	return false
}

// PHIView is how protected fields are rendered for a session.
type PHIView int

const (
	PHIHidden PHIView = iota
	PHIMasked
	PHIClear
)

func (v PHIView) String() string {
	switch v {
	case PHIClear:
		return "clear"
	case PHIMasked:
		return "masked"
	default:
		return "hidden"
	}
}

// Session is the immutable identity attached to a request or CLI run.
type Session struct {
	UserID      string
	Name        string
	Email       string
	Role        string
	Permissions []string
	PHIAccess   AccessLevel
}

// New copies permissions so later changes to the caller's slice do not leak in.
func New(userID, name, email, role string, permissions []string, access AccessLevel) *Session {
	if !access.Valid() {
		access = AccessNone
	}
	return &Session{
		UserID:      userID,
		Name:        name,
		Email:       email,
		Role:        role,
		Permissions: slices.Clone(permissions),
		PHIAccess:   access,
	}
}

// Default is the built-in administrator used when no login has happened.
func Default() *Session {
	return New("1", "Admin User", "admin@portal.local", "admin", AllPermissions, AccessFull)
}

func (s *Session) HasPermission(token string) bool {
	if s == nil {
		return false
	}
	return slices.Contains(s.Permissions, token)
}

// CanAccessPHI is the coarse gate: only the full tier passes.
func (s *Session) CanAccessPHI() bool {
	return s != nil && s.PHIAccess == AccessFull
}

// PHIView maps the access tier to a rendering mode. Limited sessions see
// digests of protected fields, never their values.
func (s *Session) PHIView() PHIView {
	if s == nil {
		return PHIHidden
	}
	switch s.PHIAccess {
	case AccessFull:
		return PHIClear
	case AccessLimited:
		return PHIMasked
	default:
		return PHIHidden
	}
}

type ctxKey string

const sessionKey ctxKey = "session"

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

func FromContext(ctx context.Context) (*Session, bool) {
	if ctx == nil {
		return nil, false
	}
	s, ok := ctx.Value(sessionKey).(*Session)
	return s, ok && s != nil
}

// MustFromContext panics when the context carries no session. Handlers behind
// the auth middleware rely on one always being present.
func MustFromContext(ctx context.Context) *Session {
	s, ok := FromContext(ctx)
	if !ok {
		panic("session: no session in context")
	}
	return s
}

// Holder owns the current session for a process. Replacement swaps the whole
// value; sessions are never edited in place.
type Holder struct {
	current atomic.Pointer[Session]
}

func NewHolder(initial *Session) *Holder {
	if initial == nil {
		initial = Default()
	}
	h := &Holder{}
	h.current.Store(initial)
	return h
}

func (h *Holder) Current() *Session {
	return h.current.Load()
}

// Replace installs next and returns the previous session. A nil next falls
// back to the default administrator so Current never returns nil.
func (h *Holder) Replace(next *Session) *Session {
	if next == nil {
		next = Default()
	}
	return h.current.Swap(next)
}
