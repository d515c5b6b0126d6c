package clientip

import (
	"log/slog"
	"net/http"
)

// Middleware stores the peer IP in the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), FromRequest(r))))
	})
}

// LoopbackOnly rejects requests that do not come from a loopback address
// with 403 Forbidden. A nil logger means slog.Default.
func LoopbackOnly(log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := FromContext(r.Context())
			if ip == "" {
				ip = FromRequest(r)
			}
			if !IsLoopback(ip) {
				log.WarnContext(r.Context(), "rejected non-local client",
					slog.String("client_ip", ip),
					slog.String("path", r.URL.Path),
				)
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
