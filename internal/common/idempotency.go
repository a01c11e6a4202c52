package common

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Idem is an Idempotency-Key middleware backed by Redis. The first request
// carrying a given key claims it with SETNX; replays within the TTL get 409.
type Idem struct {
	R   *redis.Client
	TTL time.Duration
}

// Middleware enforces idempotency on write endpoints. Requests without the
// header pass through untouched.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Idempotency-Key")
		if header == "" || i.R == nil {
			next.ServeHTTP(w, r)
			return
		}

		key := idemRedisKey(header)
		claimed, err := i.R.SetNX(r.Context(), key, "locked", i.TTL).Result()
		if err != nil {
			JSONError(w, http.StatusInternalServerError, "INTERNAL", "idempotency store error", map[string]any{"error": err.Error()})
			return
		}
		if !claimed {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			_, _ = io.WriteString(w, `{"error":{"code":"IDEMPOTENT_REPLAY","message":"duplicate request"}}`)
			return
		}
		defer func() {
			// keep the key expiring even if the handler panics
			_ = i.R.Expire(context.Background(), key, i.TTL).Err()
		}()
		next.ServeHTTP(w, r)
	})
}

// idemRedisKey hashes the client key so arbitrary header content never lands
// in Redis verbatim.
func idemRedisKey(header string) string {
	sum := sha256.Sum256([]byte(header))
	return "idem:" + hex.EncodeToString(sum[:])
}
