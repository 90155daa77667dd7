package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/micro-nova/taskd/internal/config"
)

// Authenticator wraps handlers that require credentials.
type Authenticator interface {
	Middleware(next http.Handler) http.Handler
}

// Options configures the cross-cutting middleware of the router.
type Options struct {
	CORS      config.CORSConfig
	RateLimit config.RateLimitConfig
}

// NewRouter creates and returns the main HTTP router. authn may be nil, in
// which case no authentication is enforced.
func NewRouter(ctrl Controller, authn Authenticator, bus EventBus, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware(opts.CORS))
	r.Use(middleware.CleanPath)
	if opts.RateLimit.RPS > 0 {
		r.Use(NewRateLimiter(opts.RateLimit.RPS, opts.RateLimit.Burst).Middleware)
	}

	h := &Handlers{ctrl: ctrl, events: bus}

	r.Route("/api", func(r chi.Router) {
		if authn != nil {
			r.Use(authn.Middleware)
		}

		r.Get("/tasks", h.getTasks)
		r.Post("/tasks", h.createTask)
		r.Delete("/tasks", h.clearTasks)
		r.Post("/tasks/reload", h.reloadTasks)
		r.Get("/tasks/{id}", h.getTask)
		r.Delete("/tasks/{id}", h.deleteTask)

		r.Get("/statuses", h.getStatuses)
		r.Post("/statuses", h.createStatus)
		r.Get("/statuses/{id}", h.getStatus)
		r.Put("/statuses/{id}", h.updateStatus)
		r.Delete("/statuses/{id}", h.deleteStatus)

		r.Get("/info", h.getInfo)
		r.Get("/subscribe", h.sseEvents)
	})

	return r
}

// corsMiddleware adds CORS headers and answers preflight requests.
func corsMiddleware(cfg config.CORSConfig) func(http.Handler) http.Handler {
	allowAll := false
	origins := make(map[string]bool, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			allowAll = true
		}
		origins[o] = true
	}
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	maxAge := strconv.Itoa(cfg.MaxAge)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (allowAll || origins[origin]) {
				h := w.Header()
				if allowAll && !cfg.AllowCredentials {
					h.Set("Access-Control-Allow-Origin", "*")
				} else {
					// Credentials cannot be combined with a wildcard origin.
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
				if cfg.AllowCredentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
				if r.Method == http.MethodOptions {
					h.Set("Access-Control-Allow-Methods", methods)
					h.Set("Access-Control-Allow-Headers", headers)
					h.Set("Access-Control-Max-Age", maxAge)
				}
			}
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
