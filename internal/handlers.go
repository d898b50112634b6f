package internal

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ------------------- Admin: logs -------------------

func AdminLogs(st Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := st.ListLogs(c.Request.Context(), 200)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// ------------------- Health -------------------

func Health(st Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := st.Ping(ctx); err != nil {
			reqLog(c).WithError(err).Warn("health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
