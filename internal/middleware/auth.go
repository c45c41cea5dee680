package middleware

import (
	"context"
	"net/http"

	"medtrack/internal/auth"
	"medtrack/internal/model"
	"medtrack/internal/session"
)

type ctxKey string

const IdentityKey ctxKey = "identity"

func WithIdentity(ctx context.Context, id auth.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, id)
}

func IdentityFrom(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(IdentityKey).(auth.Identity)
	return id, ok
}

// RequireAuth sends anonymous callers to /login and puts the identity of
// everyone else into the request context.
func RequireAuth(sm *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := sm.Identity(r)
			if !ok {
				if _, err := r.Cookie(session.CookieName); err == nil {
					sm.Clear(w)
				}
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireRole must run after RequireAuth.
func RequireRole(sm *session.Manager, role model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFrom(r.Context())
			if !ok {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			if id.Role != role {
				sm.SetFlash(w, session.Flash{Level: session.LevelDanger, Message: "Unauthorized."})
				http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AnonOnly keeps signed-in callers away from login and registration.
func AnonOnly(sm *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := sm.Identity(r); ok {
				http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
