package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// Headers set by the upstream auth gateway after it has verified the shopper.
const (
	HeaderUserID    = "X-User-Id"
	HeaderUserEmail = "X-User-Email"
	HeaderUserName  = "X-User-Name"
	HeaderUserPhone = "X-User-Phone"
	HeaderUserRole  = "X-User-Role"

	RoleAdmin = "admin"
)

type Identity struct {
	ID    string
	Email string
	Name  string
	Phone string
	Role  string
}

func (i Identity) IsAdmin() bool {
	return strings.EqualFold(i.Role, RoleAdmin)
}

// Identify reads the trusted identity headers into the request context.
// Anonymous requests pass through untouched.
func Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if uid == "" {
			next.ServeHTTP(w, r)
			return
		}
		id := Identity{
			ID:    uid,
			Email: strings.TrimSpace(r.Header.Get(HeaderUserEmail)),
			Name:  strings.TrimSpace(r.Header.Get(HeaderUserName)),
			Phone: strings.TrimSpace(r.Header.Get(HeaderUserPhone)),
			Role:  strings.TrimSpace(r.Header.Get(HeaderUserRole)),
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// RequireIdentity rejects anonymous requests with 401.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetIdentity(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "sign in required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects non-staff requests with 403.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := GetIdentity(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "sign in required")
			return
		}
		if !id.IsAdmin() {
			writeError(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func GetIdentity(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxIdentity).(Identity)
	return id, ok
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxIdentity, id)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
