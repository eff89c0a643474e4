package auth

import (
	"net/http"

	"github.com/rs/zerolog"
)

// HeaderAPIKey is the request header carrying the plaintext API key.
const HeaderAPIKey = "X-API-Key"

// Config holds API key authentication settings.
type Config struct {
	// Enabled turns the middleware on. With it off, requests pass
	// through unchecked (development default).
	Enabled bool `mapstructure:"enabled"`
	// KeyHashes are bcrypt hashes of accepted API keys.
	KeyHashes []string `mapstructure:"key_hashes"`
}

// Middleware returns an HTTP middleware that rejects requests without a
// valid API key. The key is matched against each configured hash; any
// match admits the request.
func Middleware(cfg Config, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get(HeaderAPIKey)
			if key == "" {
				log.Warn().
					Str("path", r.URL.Path).
					Str("remote", r.RemoteAddr).
					Msg("request without api key")
				unauthorized(w)
				return
			}

			for _, hash := range cfg.KeyHashes {
				if VerifyKey(hash, key) == nil {
					next.ServeHTTP(w, r)
					return
				}
			}

			log.Warn().
				Str("path", r.URL.Path).
				Str("remote", r.RemoteAddr).
				Msg("request with unrecognized api key")
			unauthorized(w)
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"invalid or missing api key"}`))
}
