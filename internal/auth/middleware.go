package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/micro-nova/taskd/internal/models"
)

const (
	// HeaderAPIKey carries the API key on requests.
	HeaderAPIKey     = "X-API-Key"
	apiKeyQueryParam = "api-key"
)

// Middleware enforces API-key authentication. In open mode all requests pass
// through. Otherwise the X-API-Key header or the api-key query parameter
// must carry a known key; anything else gets a 401 JSON error.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.IsOpenMode() {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get(HeaderAPIKey)
		if key == "" {
			// EventSource cannot set headers.
			key = r.URL.Query().Get(apiKeyQueryParam)
		}
		if name, ok := s.VerifyKey(key); ok {
			slog.Debug("auth: accepted key", "name", name, "path", r.URL.Path)
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("WWW-Authenticate", `APIKey header="`+HeaderAPIKey+`"`)
		w.WriteHeader(http.StatusUnauthorized)
		if err := json.NewEncoder(w).Encode(models.ErrUnauthorized); err != nil {
			slog.Error("auth: failed to write response", "err", err)
		}
	})
}
