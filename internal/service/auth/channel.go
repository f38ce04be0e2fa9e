package auth

import (
	"net/http"
	"strings"
)

// Source extracts raw token from one request channel, empty string if absent
type Source func(r *http.Request) string

// Resolve returns the first non-empty token among sources
// Every channel is resolved here, so cookie and header tokens go through the same validation
func Resolve(r *http.Request, sources ...Source) (string, bool) {
	for _, source := range sources {
		if token := source(r); token != "" {
			return token, true
		}
	}
	return "", false
}

func CookieSource(name string) Source {
	return func(r *http.Request) string {
		cookie, err := r.Cookie(name)
		if err != nil {
			return ""
		}
		return cookie.Value
	}
}

// BearerSource reads 'Authorization: Bearer <token>', scheme is case insensitive
func BearerSource() Source {
	return func(r *http.Request) string {
		scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return ""
		}
		return strings.TrimSpace(token)
	}
}

// ValueSource is for tokens that were already read from somewhere else, request body for example
func ValueSource(value string) Source {
	return func(*http.Request) string {
		return value
	}
}
