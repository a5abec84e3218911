package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// GetSentiment godoc
// @Summary      Cached headline sentiment
// @Description  Returns the last scored headline batch without fetching
// @Tags         sentiment
// @Produce      json
// @Success      200  {object}  domain.SentimentResult
// @Router       /api/sentiment [get]
func (h *Handler) GetSentiment(c *gin.Context) {
	c.JSON(http.StatusOK, h.sentiment.Latest())
}

// RefreshSentiment godoc
// @Summary      Refresh headline sentiment
// @Description  Fetches and scores a new headline batch. Failures return the cached result at reduced confidence.
// @Tags         sentiment
// @Produce      json
// @Param        X-API-Key  header  string  false  "API key when configured"
// @Success      200  {object}  domain.SentimentResult
// @Failure      401  {object}  map[string]string
// @Router       /api/sentiment/refresh [post]
func (h *Handler) RefreshSentiment(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.refresh-sentiment")
	defer span.End()

	c.JSON(http.StatusOK, h.sentiment.Refresh(ctx))
}

// GetSentimentHistory godoc
// @Summary      Sentiment history
// @Description  Returns archived sentiment snapshots, oldest first
// @Tags         sentiment
// @Produce      json
// @Param        limit  query  int  false  "Number of snapshots (default 50, max 500)"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/sentiment/history [get]
func (h *Handler) GetSentimentHistory(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-sentiment-history")
	defer span.End()

	limit := 50
	if l := c.Query("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	snapshots, err := h.opts.SentimentHistory.RecentSnapshots(ctx, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"snapshots": snapshots})
}
