package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/lungscan/apiserver/internal/services"
	"github.com/lungscan/apiserver/internal/store"
)

// identityState classifies what a request's Authorization header
// resolved to on routes where authentication is optional.
type identityState int

const (
	// identityAnonymous means no bearer token was presented.
	identityAnonymous identityState = iota
	// identityAuthenticated means a valid token resolved to a user.
	identityAuthenticated
	// identityInvalid means a token was presented but failed
	// verification. Policy treats it the same as anonymous, but the
	// distinction is kept explicit rather than swallowed.
	identityInvalid
)

type identity struct {
	state  identityState
	userID int64
}

func identityFromContext(ctx context.Context) identity {
	if id, ok := ctx.Value(contextIdentityKey).(identity); ok {
		return id
	}
	return identity{state: identityAnonymous}
}

// RequireAuth enforces JWT authentication and injects the subject into
// context. Rejections are 401.
func RequireAuth(jwtSecret string) func(http.Handler) http.Handler {
	secret := []byte(jwtSecret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			subject, err := parseTokenSubject(tokenString, secret)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			ctx := context.WithValue(r.Context(), contextSubjectKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth resolves the Authorization header into a three-state
// identity without ever rejecting the request.
func OptionalAuth(jwtSecret string) func(http.Handler) http.Handler {
	secret := []byte(jwtSecret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			resolved := identity{state: identityAnonymous}

			if tokenString, err := bearerToken(r); err == nil {
				subject, err := parseTokenSubject(tokenString, secret)
				if err != nil {
					resolved = identity{state: identityInvalid}
				} else {
					ctx := context.WithValue(r.Context(), contextSubjectKey, subject)
					if userID, err := userIDFromContext(ctx); err == nil {
						resolved = identity{state: identityAuthenticated, userID: userID}
					} else {
						resolved = identity{state: identityInvalid}
					}
				}
			}

			ctx := context.WithValue(r.Context(), contextIdentityKey, resolved)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireDoctor loads the authenticated user and rejects with 403
// unless they hold the doctor role. Must run after RequireAuth. The
// loaded user is attached to the context for the handler.
func RequireDoctor(userService *services.UserService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := userIDFromContext(r.Context())
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			user, err := userService.GetByID(r.Context(), int(userID))
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					writeError(w, http.StatusUnauthorized, "Authentication required")
					return
				}
				writeError(w, http.StatusInternalServerError, "Failed to load user")
				return
			}

			if !user.IsDoctor() {
				writeError(w, http.StatusForbidden, "Access denied: Doctors only")
				return
			}

			ctx := context.WithValue(r.Context(), contextUserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
