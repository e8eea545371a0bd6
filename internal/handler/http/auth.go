package http

import (
	"crypto/subtle"
	"net/http"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// BasicAuth guards next with HTTP basic auth against a bcrypt password hash.
// With no credentials configured every request is refused.
func BasicAuth(realm, username, passwordHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if username == "" || passwordHash == "" {
				log.Warn().Str("path", r.URL.Path).Msg("handler: admin credentials are not configured")
				respondWithError(w, http.StatusServiceUnavailable, "Admin access is not configured")
				return
			}

			user, pass, ok := r.BasicAuth()
			if !ok || subtle.ConstantTimeCompare([]byte(user), []byte(username)) != 1 ||
				bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(pass)) != nil {
				if ok {
					log.Warn().Str("user", user).Str("remote_addr", r.RemoteAddr).Msg("handler: admin login failed")
				}
				w.Header().Set("WWW-Authenticate", `Basic realm="`+realm+`", charset="UTF-8"`)
				respondWithError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
