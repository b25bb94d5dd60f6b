package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/toolrelay/toolrelay/internal/models"
)

var publicPaths = map[string]bool{
	"/health":           true,
	"/health/providers": true,
}

type apiKeyCtxKey struct{}

// APIKey returns the key that authenticated the request, or "".
func APIKey(ctx context.Context) string {
	k, _ := ctx.Value(apiKeyCtxKey{}).(string)
	return k
}

// Auth rejects requests without one of apiKeys. The key is read from
// headerName, then a bearer Authorization header, then the api_key cookie.
// Public paths pass through either way but still record a valid key.
func Auth(apiKeys []string, headerName string) func(http.Handler) http.Handler {
	keySet := make(map[string]bool, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			keySet[k] = true
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] {
				if key := requestKey(r, headerName); keySet[key] {
					r = r.WithContext(context.WithValue(r.Context(), apiKeyCtxKey{}, key))
				}
				next.ServeHTTP(w, r)
				return
			}

			key := requestKey(r, headerName)
			if key == "" {
				models.WriteError(w, http.StatusUnauthorized, "API key required")
				return
			}
			if !keySet[key] {
				models.WriteError(w, http.StatusForbidden, "invalid API key")
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), apiKeyCtxKey{}, key)))
		})
	}
}

func requestKey(r *http.Request, headerName string) string {
	if key := r.Header.Get(headerName); key != "" {
		return key
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	if c, err := r.Cookie("api_key"); err == nil {
		return c.Value
	}
	return ""
}
