package chi

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// publicPaths bypass authentication so probes and scrapers need no key.
var publicPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// BearerAuthMiddleware returns a middleware that validates Bearer tokens.
// If apiKeys holds no non-empty key, authentication is disabled.
func BearerAuthMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	keys := make([][]byte, 0, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			keys = append(keys, []byte(k))
		}
	}

	return func(next http.Handler) http.Handler {
		if len(keys) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := publicPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, ErrorCodeUnauthorized, "missing or malformed bearer token")
				return
			}
			if !knownKey(keys, token) {
				writeError(w, http.StatusUnauthorized, ErrorCodeUnauthorized, "invalid api key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) ([]byte, bool) {
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, prefix) || len(auth) == len(prefix) {
		return nil, false
	}
	return []byte(auth[len(prefix):]), true
}

func knownKey(keys [][]byte, token []byte) bool {
	found := 0
	for _, k := range keys {
		found |= subtle.ConstantTimeCompare(k, token)
	}
	return found == 1
}
