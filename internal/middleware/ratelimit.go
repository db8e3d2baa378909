package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"

	rediskey "course_commerce/pkg/redis"
)

// luaRateLimit implements an atomic sliding-window counter.
// KEYS[1]=window key, ARGV: now, window start, window seconds, member,
// limit. Returns the count inside the window, or -1 when over limit.
const luaRateLimit = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local windowStart = tonumber(ARGV[2])
local windowSec = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '0', windowStart)

local count = redis.call('ZCARD', key)

if count < tonumber(ARGV[5]) then
  redis.call('ZADD', key, now, member)
  redis.call('EXPIRE', key, windowSec)
  return count + 1
else
  return -1
end
`

// PurchaseRateLimit limits purchase creation per LMS user id (taken
// from the request body), falling back to the client IP when the body
// does not parse. Redis outages fail open.
func PurchaseRateLimit(rdb *rd.Client, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		lmsUserID, err := extractLMSUserID(c)
		if err != nil || lmsUserID == 0 {
			lmsUserID = 0
		}

		var key string
		if lmsUserID > 0 {
			key = rediskey.PurchaseRateKey(lmsUserID)
		} else {
			key = rediskey.PurchaseRateIPKey(c.ClientIP())
		}

		now := time.Now().Unix()
		windowSec := int64(window.Seconds())
		windowStart := now - windowSec
		member := fmt.Sprintf("%d-%d", now, time.Now().UnixNano())

		res, err := rdb.Eval(c.Request.Context(), luaRateLimit, []string{key},
			now, windowStart, windowSec, member, limit).Int()
		if err != nil {
			c.Next()
			return
		}

		if res < 0 {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code": 429,
				"msg":  "too many purchase requests, slow down",
			})
			return
		}
		c.Next()
	}
}

// extractLMSUserID reads lms_user_id from the body without consuming
// it, so the handler can still bind the request.
func extractLMSUserID(c *gin.Context) (int64, error) {
	bodyBytes, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return 0, err
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

	var req struct {
		LMSUserID int64 `json:"lms_user_id"`
	}
	if err := json.Unmarshal(bodyBytes, &req); err != nil {
		return 0, err
	}
	return req.LMSUserID, nil
}
