package middleware

import (
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/2beens/blogstore/internal/auth"
	"github.com/2beens/blogstore/pkg"
)

// LogRequest must run after the auth middleware to see the caller.
func LogRequest() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _ := pkg.ClientIP(r)
			log.WithFields(log.Fields{
				"ip":     ip,
				"method": r.Method,
				"path":   r.URL.Path,
				"ua":     r.Header.Get("User-Agent"),
				"caller": auth.CallerFromContext(r.Context()),
			}).Trace(" ====> request")
			next.ServeHTTP(w, r)
		})
	}
}
