package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gitjobs/gitjobs/internal/model"
	"github.com/gitjobs/gitjobs/internal/session"
)

// SessionCookie is the name of the session cookie.
const SessionCookie = session.CookieName

const sessionKey contextKey = "session"

// Session loads the session identified by the request's cookie, if any, and
// attaches it to the request context. Requests without a valid session pass
// through with no session attached.
func Session(store *session.Store) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookie)
			if err == nil && cookie.Value != "" {
				rec, err := store.Load(r.Context(), cookie.Value)
				switch {
				case err != nil:
					slog.Error("error loading session", "error", err,
						"request_id", GetRequestID(r.Context()))
				case rec != nil:
					r = r.WithContext(context.WithValue(r.Context(), sessionKey, rec))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SessionFromContext returns the session attached to the request, or nil.
func SessionFromContext(ctx context.Context) *model.SessionRecord {
	if rec, ok := ctx.Value(sessionKey).(*model.SessionRecord); ok {
		return rec
	}
	return nil
}
