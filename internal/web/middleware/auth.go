package middleware

import (
	"crypto/subtle"
	"net/http"
)

// APIKeyHeader carries the client key
const APIKeyHeader = "X-API-Key"

// Authentication rejects requests whose X-API-Key does not equal apiKey.
// An empty apiKey lets every request through.
func Authentication(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			given := r.Header.Get(APIKeyHeader)
			if given == "" {
				given = r.URL.Query().Get("api_key")
			}
			if subtle.ConstantTimeCompare([]byte(given), []byte(apiKey)) != 1 {
				writeError(w, http.StatusUnauthorized, "invalid or missing API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
