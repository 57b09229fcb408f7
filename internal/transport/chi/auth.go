package chi

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/statutefinder/internal/logger"
)

// exemptPaths bypass authentication so probes and scrapers need no key.
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// keySet holds digests of the accepted API keys.
type keySet [][sha256.Size]byte

func newKeySet(keys []string) keySet {
	var ks keySet
	for _, k := range keys {
		if k != "" {
			ks = append(ks, sha256.Sum256([]byte(k)))
		}
	}
	return ks
}

// match compares in constant time and returns a short key id for logs.
func (ks keySet) match(token string) (string, bool) {
	sum := sha256.Sum256([]byte(token))
	found := 0
	for i := range ks {
		found |= subtle.ConstantTimeCompare(sum[:], ks[i][:])
	}
	if found == 0 {
		return "", false
	}
	return hex.EncodeToString(sum[:4]), true
}

// bearerToken extracts the credentials of a Bearer authorization header.
// The scheme name is case-insensitive.
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// BearerAuthMiddleware validates Bearer tokens. No configured keys disables auth.
func BearerAuthMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	keys := newKeySet(apiKeys)

	return func(next http.Handler) http.Handler {
		if len(keys) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			if header == "" {
				unauthorized(w, "missing authorization header")
				return
			}
			token, ok := bearerToken(header)
			if !ok {
				unauthorized(w, "authorization header must use Bearer scheme")
				return
			}
			id, ok := keys.match(token)
			if !ok {
				logger.FromContext(r.Context()).Info("api key rejected", zap.String("path", r.URL.Path))
				unauthorized(w, "invalid api key")
				return
			}

			if info := requestInfoFrom(r.Context()); info != nil {
				info.apiKeyID = id
			}
			next.ServeHTTP(w, r.WithContext(logger.With(r.Context(), zap.String("api_key_id", id))))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="statutefinder"`)
	writeError(w, http.StatusUnauthorized, codeUnauthorized, msg)
}
