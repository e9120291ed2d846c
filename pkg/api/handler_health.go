package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/metaforge/metaforge/pkg/version"
)

const healthCheckTimeout = 5 * time.Second

// healthHandler handles GET /healthz. The store is healthy if the process
// is up; the LLM backend reports name and reachability.
func (s *Server) healthHandler(c *gin.Context) {
	resp := gin.H{"status": "ok", "version": version.Full()}
	if s.backend != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()
		resp["backend"] = gin.H{
			"name":      s.backend.Name(),
			"reachable": s.backend.HealthCheck(ctx),
		}
	}
	c.JSON(http.StatusOK, resp)
}
