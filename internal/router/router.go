package router

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/readtalk/log/internal/issuer"
	"github.com/readtalk/log/internal/profile"
	"github.com/readtalk/log/pkg/utilities"
)

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// LoggingMiddleware returns a middleware that logs requests at debug level,
// tagging each with a request id.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			dur := time.Since(start)
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debugw("http request",
				"request_id", utilities.NewRequestID(),
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(dur.Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// SecurityHeadersMiddleware returns a middleware that sets common HTTP
// security headers. The CSP must allow the issuer's and completion form's
// plain HTML to submit to self.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer")
			if w.Header().Get("Content-Security-Policy") == "" {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; object-src 'none'; base-uri 'self';")
			}
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RegisterRoutes mounts HTTP handlers using the standard library's ServeMux.
// Anything not listed here falls through to the mux's 404.
func RegisterRoutes(logger *zap.SugaredLogger, ph *profile.Handler, ih *issuer.Handler) http.Handler {
	mux := http.NewServeMux()

	// entry point: hand the user off to the issuer's authorize endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		params := url.Values{
			"client_id":     {"readtalk-chat"},
			"redirect_uri":  {"/callback"},
			"response_type": {"code"},
		}
		http.Redirect(w, r, "/authorize?"+params.Encode(), http.StatusFound)
	})

	// demo completion endpoint: echo whatever query parameters arrived
	mux.HandleFunc("GET /callback", func(w http.ResponseWriter, r *http.Request) {
		out := map[string]string{}
		for k, vs := range r.URL.Query() {
			if len(vs) > 0 {
				out[k] = vs[0]
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	})

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// profile-completion handshake
	mux.HandleFunc("GET /complete-profile", ph.ShowForm)
	mux.HandleFunc("POST /complete-profile", ph.Submit)

	// issuer-owned paths
	mux.HandleFunc("GET /authorize", ih.Authorize)
	mux.HandleFunc("POST /password/login", ih.Login)
	mux.HandleFunc("POST /password/register", ih.Register)
	mux.HandleFunc("POST /password/verify", ih.Verify)

	return LoggingMiddleware(logger)(SecurityHeadersMiddleware()(mux))
}
