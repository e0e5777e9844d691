package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"sync"
	"time"

	"meal-engine/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultDedupWindow = time.Second
	// 超過此數量時順便清理過期指紋
	dedupSweepThreshold = 1024
)

type dedupCache struct {
	mu       sync.Mutex
	window   time.Duration
	requests map[string]time.Time
}

// seen 記錄指紋；window 內重複出現時返回 true
func (d *dedupCache) seen(fingerprint string, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if last, ok := d.requests[fingerprint]; ok && now.Sub(last) <= d.window {
		return true
	}
	if len(d.requests) >= dedupSweepThreshold {
		for k, t := range d.requests {
			if now.Sub(t) > d.window {
				delete(d.requests, k)
			}
		}
	}
	d.requests[fingerprint] = now
	return false
}

// forget 移除 at 時記錄的指紋；之後已被重新記錄者保留
func (d *dedupCache) forget(fingerprint string, at time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if last, ok := d.requests[fingerprint]; ok && last.Equal(at) {
		delete(d.requests, fingerprint)
	}
}

// Deduplication 擋下 window 內相同路徑、相同內容的重複 POST。
// 用戶端自帶的 X-Request-ID 也納入指紋；處理失敗（4xx/5xx）的請求不計入，可立即重試。
func Deduplication(window time.Duration) gin.HandlerFunc {
	if window <= 0 {
		window = defaultDedupWindow
	}
	cache := &dedupCache{window: window, requests: make(map[string]time.Time)}

	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		fingerprint := c.ClientIP() + ":" + c.Request.URL.Path
		if id := c.GetHeader("X-Request-ID"); id != "" {
			fingerprint += ":" + id
		}
		if c.Request.Body != nil {
			body, err := io.ReadAll(c.Request.Body)
			if err != nil {
				common.LogWarn("Failed to read request body", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, common.ErrorResponse{
					Code:    "REQUEST_TOO_LARGE",
					Message: "request body could not be read",
				})
				return
			}
			hash := sha256.Sum256(body)
			fingerprint += ":" + hex.EncodeToString(hash[:])
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}

		now := time.Now()
		if cache.seen(fingerprint, now) {
			c.AbortWithStatusJSON(common.ErrTooManyRequests.Status, common.ErrorResponse{
				Code:    common.ErrTooManyRequests.Code,
				Message: "duplicate request",
			})
			return
		}

		c.Next()

		if c.Writer.Status() >= http.StatusBadRequest {
			cache.forget(fingerprint, now)
		}
	}
}
