package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"secknow-backend/internal/shared/server/respond"
)

// Pinger reports database reachability. *sql.DB implements it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// ConsumerCounter reports how many live suggestion consumers exist. *suggestions.Hub implements it.
type ConsumerCounter interface {
	Len() int
}

const healthPingTimeout = 2 * time.Second

// healthHandler reports liveness plus storage mode. A nil db means in-memory repositories.
func healthHandler(db Pinger, hub ConsumerCounter) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		body := gin.H{"ok": true, "storage": "memory"}

		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body["ok"] = false
				body["storage"] = "postgres_unreachable"
			} else {
				body["storage"] = "postgres"
			}
		}
		if hub != nil {
			body["suggestionConsumers"] = hub.Len()
		}
		respond.JSON(c, status, body)
	}
}
