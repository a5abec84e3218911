package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health godoc
// @Summary      Health check
// @Description  Returns the service status and the circuit breaker state per request key
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /health [get]
func (h *Handler) Health(c *gin.Context) {
	body := gin.H{"status": "healthy"}
	if h.opts.Breakers != nil {
		states := h.opts.Breakers.BreakerStates()
		body["breakers"] = states
		for _, s := range states {
			if s == "open" {
				body["status"] = "degraded"
				break
			}
		}
	}
	c.JSON(http.StatusOK, body)
}
