package middleware

import (
	"crypto/subtle"
	"fmt"
	"net/http"

	"ambu-dispatch/internal/fleet-service/adapters/driver/myhttp/handle"

	"golang.org/x/crypto/bcrypt"
)

// AuthMiddleware guards the fleet surface with basic auth against a single
// operator account. The password is stored as a bcrypt hash.
type AuthMiddleware struct {
	adminUser    string
	passwordHash string
}

func NewAuthMiddleware(adminUser, passwordHash string) *AuthMiddleware {
	return &AuthMiddleware{
		adminUser:    adminUser,
		passwordHash: passwordHash,
	}
}

func (am *AuthMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, password, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="fleet"`)
			handle.JsonError(w, http.StatusUnauthorized, fmt.Errorf("credentials required"))
			return
		}

		if subtle.ConstantTimeCompare([]byte(user), []byte(am.adminUser)) != 1 {
			handle.JsonError(w, http.StatusUnauthorized, fmt.Errorf("invalid credentials"))
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(am.passwordHash), []byte(password)); err != nil {
			handle.JsonError(w, http.StatusUnauthorized, fmt.Errorf("invalid credentials"))
			return
		}

		next.ServeHTTP(w, r)
	})
}
