package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/cloo-solutions/mentor/internal/api"
	"github.com/cloo-solutions/mentor/internal/domain"
)

type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) error
}

// StaticTokenValidator accepts a single shared token.
type StaticTokenValidator struct {
	token string
}

func NewStaticTokenValidator(token string) *StaticTokenValidator {
	return &StaticTokenValidator{token: token}
}

func (v *StaticTokenValidator) ValidateToken(ctx context.Context, token string) error {
	if v.token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(v.token)) != 1 {
		return domain.ErrInvalidToken
	}
	return nil
}

// BearerAuth rejects requests without a valid "Authorization: Bearer" token.
func BearerAuth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.Error(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				api.Error(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			if err := validator.ValidateToken(r.Context(), token); err != nil {
				api.Error(w, http.StatusUnauthorized, "invalid api token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
