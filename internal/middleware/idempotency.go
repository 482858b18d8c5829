package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	idempotencyHeader = "Idempotency-Key"
	replayedHeader    = "Idempotent-Replayed"

	// pendingMarker holds a key while its first request is running.
	pendingMarker = "pending"
	pendingTTL    = 30 * time.Second
)

// IdempotencyStore is the part of the Redis client the middleware uses.
type IdempotencyStore interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

var _ IdempotencyStore = (*redis.Client)(nil)

// storedResponse is the replayable part of a finished response.
type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// captureWriter copies the response body while it is written.
type captureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// IdempotencyMiddleware makes a mutating request carrying an Idempotency-Key
// run at most once per caller and route. The first request claims the key;
// a retry replays its stored response, and a duplicate that arrives while
// the first is still running gets 409. Conflicts and server errors release
// the key so the client can retry. It must run after AuthRequired.
func IdempotencyMiddleware(client IdempotencyStore, ttl time.Duration, logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(idempotencyHeader)
		if key == "" || !isMutating(c.Request.Method) {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		redisKey := idempotencyKey(c, key)
		log := logger.WithFields(logrus.Fields{
			"request_id":      c.GetString("request_id"),
			"idempotency_key": key,
		})

		claimed, err := client.SetNX(ctx, redisKey, pendingMarker, pendingTTL).Result()
		if err != nil {
			// Redis is down; serve the request without protection.
			log.WithError(err).Warn("idempotency claim failed")
			c.Next()
			return
		}
		if !claimed {
			replay(c, client, redisKey, log)
			return
		}

		w := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		// The outcome is stored even if the client went away.
		storeCtx := context.WithoutCancel(ctx)

		status := w.Status()
		if status == http.StatusConflict || status >= http.StatusInternalServerError {
			if err := client.Del(storeCtx, redisKey).Err(); err != nil {
				log.WithError(err).Warn("failed to release idempotency key")
			}
			return
		}

		data, err := json.Marshal(storedResponse{
			Status:      status,
			ContentType: w.Header().Get("Content-Type"),
			Body:        w.body.Bytes(),
		})
		if err == nil {
			err = client.Set(storeCtx, redisKey, data, ttl).Err()
		}
		if err != nil {
			log.WithError(err).Warn("failed to store idempotent response")
		}
	}
}

// replay answers a request whose key is already claimed.
func replay(c *gin.Context, client IdempotencyStore, redisKey string, log logrus.FieldLogger) {
	raw, err := client.Get(c.Request.Context(), redisKey).Bytes()
	if errors.Is(err, redis.Nil) || (err == nil && string(raw) == pendingMarker) {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "a request with this idempotency key is in progress"})
		return
	}
	if err != nil {
		log.WithError(err).Warn("idempotency lookup failed")
		c.Next()
		return
	}

	var stored storedResponse
	if err := json.Unmarshal(raw, &stored); err != nil {
		log.WithError(err).Warn("discarding unreadable idempotent response")
		c.Next()
		return
	}

	c.Header(replayedHeader, "true")
	c.Data(stored.Status, stored.ContentType, stored.Body)
	c.Abort()
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// idempotencyKey scopes key to the caller and the request path.
func idempotencyKey(c *gin.Context, key string) string {
	caller := "anonymous"
	if p, ok := PrincipalFrom(c); ok {
		caller = p.ID
	}
	return "idempotency:" + caller + ":" + c.Request.Method + ":" + c.Request.URL.Path + ":" + key
}
