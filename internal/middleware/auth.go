package middleware

import (
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"

	"github.com/2beens/blogstore/internal/auth"
	"github.com/2beens/blogstore/internal/telemetry/tracing"
)

type AuthMiddlewareHandler struct {
	loginChecker         auth.Checker
	allowedPaths         map[string]bool
	allowedPathsSuffixes map[string][]string // method -> path suffixes
}

func NewAuthMiddlewareHandler(loginChecker auth.Checker) *AuthMiddlewareHandler {
	return &AuthMiddlewareHandler{
		loginChecker: loginChecker,
		allowedPaths: map[string]bool{
			// login-logout:
			"/a/login":  true,
			"/a/logout": true,
		},
		allowedPathsSuffixes: map[string][]string{
			// anyone can comment, anonymous included
			http.MethodPost: {"/comments"},
		},
	}
}

// loginRequired tells if a request can only be served to a logged in caller.
// All reads are public.
func (h *AuthMiddlewareHandler) loginRequired(r *http.Request) bool {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return false
	}
	if h.allowedPaths[r.URL.Path] {
		return false
	}
	for _, suffix := range h.allowedPathsSuffixes[r.Method] {
		if strings.HasSuffix(r.URL.Path, suffix) {
			return false
		}
	}
	return true
}

// AuthCheck resolves the session token (if any) into the caller identity,
// stored in the request context, and rejects protected requests without a live session.
func (h *AuthMiddlewareHandler) AuthCheck() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracing.GlobalTracer.Start(r.Context(), "middleware.auth")
			defer span.End()

			if r.Method == http.MethodOptions {
				w.Header().Add("Allow", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				w.WriteHeader(http.StatusOK)
				span.SetStatus(codes.Ok, "options-ok")
				return
			}

			loginRequired := h.loginRequired(r)
			authToken := r.Header.Get(auth.TokenHeader)
			if authToken == "" {
				if loginRequired {
					log.Tracef("[missing token] [auth middleware] unauthorized => %s", r.URL.Path)
					http.Error(w, "no can do", http.StatusUnauthorized)
					span.SetStatus(codes.Error, "missing-auth-token")
					return
				}
				span.SetStatus(codes.Ok, "anonymous")
				next.ServeHTTP(w, r.WithContext(auth.WithCaller(ctx, auth.AnonymousCaller)))
				return
			}

			username, isLogged, err := h.loginChecker.IsLogged(ctx, authToken)
			if err != nil {
				log.Errorf("[failed login check] => %s: %s", r.URL.Path, err)
				span.RecordError(err)
			}
			if err != nil || !isLogged {
				if loginRequired {
					log.Tracef("[invalid token] [auth middleware] unauthorized => %s", r.URL.Path)
					http.Error(w, "no can do", http.StatusUnauthorized)
					span.SetStatus(codes.Error, "not-logged")
					return
				}
				username = auth.AnonymousCaller
			}

			span.SetStatus(codes.Ok, "ok")
			next.ServeHTTP(w, r.WithContext(auth.WithCaller(ctx, username)))
		})
	}
}
