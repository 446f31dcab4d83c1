package middleware

import (
	"crypto/subtle"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	authFailureLimit  = 10
	authFailureWindow = time.Minute
)

// BasicAuth requires HTTP basic credentials matching username and the bcrypt
// passwordHash. Clients that fail too often, keyed by clientIP, are answered
// with 429 until the window passes. A nil clientIP keys on RemoteIP. An empty
// username disables the check.
func BasicAuth(username, passwordHash string, limiter *RateLimiter, clientIP func(*http.Request) string) func(http.Handler) http.Handler {
	if clientIP == nil {
		clientIP = RemoteIP
	}
	return func(next http.Handler) http.Handler {
		if username == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := "auth:" + clientIP(r)
			if limiter != nil && limiter.Exceeded(ip, authFailureLimit) {
				http.Error(w, "Too many requests", http.StatusTooManyRequests)
				return
			}

			user, pass, ok := r.BasicAuth()
			if !ok || !checkCredentials(username, passwordHash, user, pass) {
				if limiter != nil {
					limiter.Allow(ip, authFailureLimit, authFailureWindow)
				}
				w.Header().Set("WWW-Authenticate", `Basic realm="campuscal", charset="UTF-8"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func checkCredentials(wantUser, hash, user, pass string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(wantUser)) == 1
	passOK := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pass)) == nil
	return userOK && passOK
}

// HashPassword returns the bcrypt hash stored in the config file.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
