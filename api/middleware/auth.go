package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/sitemapper/models"
)

// KeyIDContextKey is the gin context key holding the authenticated key's ID.
// The ID is a short digest of the key, safe to log and to rate-limit on.
const KeyIDContextKey = "key_id"

// KeyID returns the identifier recorded for an API key.
func KeyID(key string) string {
	sum := sha256.Sum256([]byte(key))
	return "key_" + hex.EncodeToString(sum[:6])
}

type apiKey struct {
	digest [sha256.Size]byte
	id     string
}

// Auth returns API-key authentication middleware. A key is read from
// X-API-Key or, failing that, Authorization: Bearer <key>.
//
// With no non-empty keys configured the middleware lets everything through.
func Auth(apiKeys []string) gin.HandlerFunc {
	var keys []apiKey
	seen := make(map[string]bool, len(apiKeys))
	for _, k := range apiKeys {
		k = strings.TrimSpace(k)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, apiKey{digest: sha256.Sum256([]byte(k)), id: KeyID(k)})
	}
	if len(keys) == 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		presented, ok := requestKey(c.Request)
		if !ok {
			abort(c, http.StatusUnauthorized, models.ErrCodeUnauthorized,
				"missing API key: provide X-API-Key header or Authorization: Bearer <key>")
			return
		}

		id, ok := match(keys, presented)
		if !ok {
			slog.Warn("rejected API key", "client_ip", c.ClientIP(), "path", c.FullPath())
			abort(c, http.StatusUnauthorized, models.ErrCodeUnauthorized, "invalid API key")
			return
		}

		c.Set(KeyIDContextKey, id)
		c.Next()
	}
}

// match compares digests in constant time and checks every key, so timing
// does not reveal which configured key came closest.
func match(keys []apiKey, presented string) (string, bool) {
	digest := sha256.Sum256([]byte(presented))
	found := ""
	for _, k := range keys {
		if subtle.ConstantTimeCompare(digest[:], k.digest[:]) == 1 {
			found = k.id
		}
	}
	return found, found != ""
}

func requestKey(r *http.Request) (string, bool) {
	if key := strings.TrimSpace(r.Header.Get("X-API-Key")); key != "" {
		return key, true
	}
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if ok && strings.EqualFold(scheme, "Bearer") {
		if token = strings.TrimSpace(token); token != "" {
			return token, true
		}
	}
	return "", false
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, models.ErrorResponse{
		Success: false,
		Error:   message,
		Code:    code,
	})
}
