package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	HeaderSessionID   = "X-Session-Id"
	SessionCookieName = "sid"
	sessionCookieAge  = 30 * 24 * time.Hour
)

type ctxKey string

const (
	ctxSessionID ctxKey = "session_id"
	ctxIdentity  ctxKey = "identity"
)

// Session resolves the shopper session from the X-Session-Id header or the
// sid cookie, minting a new id (and cookie) when neither is present.
func Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := strings.TrimSpace(r.Header.Get(HeaderSessionID))
		if sid == "" {
			if c, err := r.Cookie(SessionCookieName); err == nil {
				sid = strings.TrimSpace(c.Value)
			}
		}
		if sid == "" {
			sid = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookieName,
				Value:    sid,
				Path:     "/",
				MaxAge:   int(sessionCookieAge.Seconds()),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		w.Header().Set(HeaderSessionID, sid)

		ctx := context.WithValue(r.Context(), ctxSessionID, sid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetSessionID(ctx context.Context) string {
	if v := ctx.Value(ctxSessionID); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithSessionID is used by tests and internal callers that bypass the middleware.
func WithSessionID(ctx context.Context, sid string) context.Context {
	return context.WithValue(ctx, ctxSessionID, sid)
}
