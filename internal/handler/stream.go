package handler

import (
	"context"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// StreamEvent is what connected dashboards receive when a forecast run
// lands.
type StreamEvent struct {
	Type   string    `json:"type"`
	Metric string    `json:"metric,omitempty"`
	Count  int       `json:"count,omitempty"`
	At     time.Time `json:"at"`
}

// StreamHub fans forecast events out to websocket subscribers. Slow
// subscribers drop events rather than stalling the publisher.
type StreamHub struct {
	Logger *zap.Logger

	mu   sync.Mutex
	subs map[chan StreamEvent]struct{}
}

func NewStreamHub(logger *zap.Logger) *StreamHub {
	return &StreamHub{
		Logger: logger,
		subs:   map[chan StreamEvent]struct{}{},
	}
}

func (h *StreamHub) Register(r *gin.Engine) {
	r.GET("/api/v1/forecasts/stream", h.serve)
}

func (h *StreamHub) Publish(event StreamEvent) {
	if h == nil {
		return
	}
	event.At = time.Now().UTC()
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

func (h *StreamHub) subscribe() chan StreamEvent {
	ch := make(chan StreamEvent, 16)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *StreamHub) unsubscribe(ch chan StreamEvent) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
}

// @Summary Forecast event stream
// @Tags forecasts
// @Router /api/v1/forecasts/stream [get]
func (h *StreamHub) serve(c *gin.Context) {
	conn, err := websocket.Accept(c.Writer, c.Request, nil)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("websocket accept failed", zap.Error(err))
		}
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	ch := h.subscribe()
	defer h.unsubscribe(ch)

	ctx := c.Request.Context()
	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		case event := <-ch:
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, conn, event)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
