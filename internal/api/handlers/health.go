package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/pongarena/backend/internal/game"
)

// HealthCheck reports service liveness plus backing-store reachability.
func HealthCheck(db *sqlx.DB, rdb *redis.Client, registry *game.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		status := http.StatusOK
		dbStatus := "up"
		redisStatus := "up"

		if err := db.PingContext(ctx); err != nil {
			dbStatus = "down"
			status = http.StatusServiceUnavailable
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			redisStatus = "down"
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"status":     "ok",
			"time":       time.Now().UTC(),
			"database":   dbStatus,
			"redis":      redisStatus,
			"live_rooms": registry.Count(),
		})
	}
}
