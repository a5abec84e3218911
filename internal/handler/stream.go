package handler

import (
	"context"
	"encoding/json"
	"time"

	"gold-pulse/internal/domain"
	"gold-pulse/internal/job"
	"gold-pulse/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 512
	sendBuffer     = 8
)

type streamRequest struct {
	Timeframe string `json:"timeframe"`
}

type streamMessage struct {
	Type      string                 `json:"type"`
	Timeframe domain.TimeframeKey    `json:"timeframe,omitempty"`
	Data      *service.RefreshResult `json:"data,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Retryable bool                   `json:"retryable,omitempty"`
}

type chartSession struct {
	conn   *websocket.Conn
	send   chan streamMessage
	done   chan struct{}
	exited chan struct{}
}

// ChartStream godoc
// @Summary      Live chart stream
// @Description  Upgrades to a websocket that pushes a refresh cycle result every interval. Send {"timeframe":"1W"} to switch timeframe.
// @Tags         chart
// @Param        timeframe  query  string  false  "Initial timeframe (1D, 1W, 1M, 3M)"
// @Router       /ws/chart [get]
func (h *Handler) ChartStream(c *gin.Context) {
	tf, ok := h.timeframeParam(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	s := &chartSession{
		conn:   conn,
		send:   make(chan streamMessage, sendBuffer),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}

	chart := job.NewChart(h.charts, tf, h.opts.ChartInterval)
	chart.OnResult(func(res *service.RefreshResult, err error) {
		if err != nil {
			_, retryable := errorStatus(err)
			s.push(streamMessage{Type: "error", Timeframe: chart.Timeframe().Key, Error: err.Error(), Retryable: retryable})
			return
		}
		s.push(streamMessage{Type: "chart", Timeframe: res.Timeframe.Key, Data: res})
	})

	ctx, cancel := context.WithCancel(c.Request.Context())
	go s.writeLoop()
	chart.Start(ctx)
	log.Debug().Str("timeframe", string(tf.Key)).Msg("chart stream opened")

	s.readLoop(chart)

	chart.Stop()
	cancel()
	close(s.done)
	<-s.exited
	log.Debug().Msg("chart stream closed")
}

// push never blocks the chart loop; a slow client misses updates instead.
func (s *chartSession) push(m streamMessage) {
	select {
	case s.send <- m:
	case <-s.done:
	default:
		log.Debug().Str("type", m.Type).Msg("chart stream client lagging, dropping update")
	}
}

func (s *chartSession) readLoop(chart *job.Chart) {
	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("chart stream read failed")
			}
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))

		var req streamRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			s.push(streamMessage{Type: "error", Error: "invalid message: " + err.Error()})
			continue
		}
		tf, err := domain.LookupTimeframe(req.Timeframe)
		if err != nil {
			s.push(streamMessage{Type: "error", Error: err.Error()})
			continue
		}
		chart.SetTimeframe(tf)
	}
}

func (s *chartSession) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
		close(s.exited)
	}()

	for {
		select {
		case m := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(m); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
