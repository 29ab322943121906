package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"notehub/internal/auth"
	"notehub/internal/logger"
	"notehub/internal/models"
	"notehub/internal/storage"
	"notehub/internal/utils"
)

type ctxKey string

const userKey ctxKey = "user"

// UserResolver is the slice of the store the gate needs.
type UserResolver interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// Authenticator resolves a bearer token to a user on every request. There is
// no cache: a deleted user is locked out as soon as their row is gone.
type Authenticator struct {
	tokens *auth.TokenService
	store  UserResolver
	log    *slog.Logger
}

func NewAuthenticator(tokens *auth.TokenService, store UserResolver, log *slog.Logger) *Authenticator {
	return &Authenticator{tokens: tokens, store: store, log: log}
}

func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			unauthorized(w)
			return
		}

		token := strings.TrimSpace(parts[1])
		if token == "" {
			unauthorized(w)
			return
		}

		username, err := a.tokens.Verify(token)
		if err != nil {
			unauthorized(w)
			return
		}

		user, err := a.store.GetUserByUsername(r.Context(), username)
		if errors.Is(err, storage.ErrUserNotFound) {
			unauthorized(w)
			return
		}
		if err != nil {
			a.log.Error("resolve token subject", logger.Err(err))
			utils.JSONError(w, http.StatusInternalServerError, "internal error")
			return
		}

		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole gates a route group to users whose role exactly matches.
// It must run inside Authenticate.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFrom(r.Context())
			if !ok {
				unauthorized(w)
				return
			}
			if user.Role != role {
				utils.JSONError(w, http.StatusForbidden, "not enough privileges")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserFrom returns the identity resolved by Authenticate.
func UserFrom(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userKey).(*models.User)
	return u, ok
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	utils.JSONError(w, http.StatusUnauthorized, "could not validate credentials")
}
