package handler

import (
	"net/http"
	"strconv"

	"gold-pulse/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultHistoryLimit = 200
	maxHistoryLimit     = 2000
)

// GetTimeframes godoc
// @Summary      List chart timeframes
// @Description  Returns the supported timeframes with their interval, lookback and projection length
// @Tags         chart
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/timeframes [get]
func (h *Handler) GetTimeframes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"timeframes": domain.Timeframes,
		"default":    h.defaultTF.Key,
	})
}

// GetChart godoc
// @Summary      Run a refresh cycle
// @Description  Fetches the series for a timeframe and returns it with the projection, quick stats and sentiment
// @Tags         chart
// @Produce      json
// @Param        timeframe  query  string  false  "Timeframe (1D, 1W, 1M, 3M)"
// @Success      200  {object}  service.RefreshResult
// @Failure      400  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]interface{}
// @Failure      504  {object}  map[string]interface{}
// @Router       /api/chart [get]
func (h *Handler) GetChart(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-chart")
	defer span.End()

	tf, ok := h.timeframeParam(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("timeframe", string(tf.Key)))

	res, err := h.charts.Refresh(ctx, tf)
	if err != nil {
		span.RecordError(err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetQuickStats godoc
// @Summary      Quick stats
// @Description  Returns current price, 24h change and weekly range over the trailing week
// @Tags         chart
// @Produce      json
// @Success      200  {object}  domain.QuickStats
// @Failure      503  {object}  map[string]interface{}
// @Router       /api/quick-stats [get]
func (h *Handler) GetQuickStats(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-quick-stats")
	defer span.End()

	stats, err := h.charts.QuickStats(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	if stats == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no data available", "retryable": true})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetHistory godoc
// @Summary      Archived series
// @Description  Returns archived points for a timeframe, oldest first
// @Tags         chart
// @Produce      json
// @Param        timeframe  query  string  false  "Timeframe (1D, 1W, 1M, 3M)"
// @Param        limit      query  int     false  "Number of points (default 200, max 2000)"
// @Success      200  {object}  domain.TimeSeries
// @Failure      400  {object}  map[string]interface{}
// @Router       /api/history [get]
func (h *Handler) GetHistory(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-history")
	defer span.End()

	tf, ok := h.timeframeParam(c)
	if !ok {
		return
	}
	limit := defaultHistoryLimit
	if l := c.Query("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= maxHistoryLimit {
			limit = n
		}
	}

	series, err := h.opts.SeriesHistory.RecentSeries(ctx, domain.Gold.Symbol, tf, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, series)
}
