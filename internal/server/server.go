package server

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	"courier-engine/internal/domain/aggregation"
	"courier-engine/internal/repository"
)

// New builds the admin surface: health probes, prometheus metrics and the
// ingestion hook. Management CRUD lives in other services.
func New(environment string, db *sql.DB, rdb *goredis.Client, store repository.AggregationRepository) *gin.Engine {
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/readyz", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unavailable"})
			return
		}
		if err := rdb.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "redis unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/internal/aggregation", ingestHandler(store))

	return r
}

type ingestRequest struct {
	OrgID        string          `json:"org_id" binding:"required"`
	Bundle       string          `json:"bundle" binding:"required"`
	Applications []string        `json:"applications" binding:"required,min=1"`
	Payload      json.RawMessage `json:"payload" binding:"required"`
}

// ingestHandler queues one event for every eligible application. The fan-out
// is atomic: either all applications get their pending row or none do.
func ingestHandler(store repository.AggregationRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ingestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		payloads := make([]*aggregation.PendingPayload, 0, len(req.Applications))
		for _, app := range req.Applications {
			payloads = append(payloads, &aggregation.PendingPayload{
				Key: aggregation.Key{
					OrgID:       req.OrgID,
					Bundle:      req.Bundle,
					Application: app,
				},
				Payload: req.Payload,
			})
		}

		if err := store.InsertBatch(c.Request.Context(), payloads); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to queue event"})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"queued": len(payloads)})
	}
}
