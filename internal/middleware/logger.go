package middleware

import (
	"fmt"
	"log"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestLogger emits one key=value line per request and recovers from
// handler panics.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		defer func() {
			if recovered := recover(); recovered != nil {
				log.Printf(
					"level=error msg=panic method=%s path=%s client_ip=%s err=%q stack=%s",
					c.Request.Method, c.Request.URL.Path, c.ClientIP(),
					fmt.Sprintf("%v", recovered), debug.Stack(),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"error":   gin.H{"code": "INTERNAL", "message": "internal error"},
				})
				return
			}

			log.Printf(
				"level=info msg=request method=%s path=%s status=%d user_id=%d latency=%s",
				c.Request.Method, c.Request.URL.Path, c.Writer.Status(),
				c.GetInt64("user_id"), time.Since(start),
			)
		}()

		c.Next()
	}
}
