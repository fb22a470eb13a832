package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/yizeng/gab/gin/gorm/marketplace/internal/events"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxClientMessageSize = 512
)

type FeedHub interface {
	Subscribe() *events.Subscriber
	Unsubscribe(s *events.Subscriber)
}

type FeedHandler struct {
	hub      FeedHub
	upgrader websocket.Upgrader
}

func NewFeedHandler(hub FeedHub, allowedOrigins []string) *FeedHandler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}

	return &FeedHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

// HandleFeed godoc
// @Summary      Stream marketplace events
// @Description  Upgrades to a websocket and pushes item.listed, item.sold and item.removed events as JSON.
// @Tags         feed
// @Success      101
// @Router       /feed [get]
func (h *FeedHandler) HandleFeed(ctx *gin.Context) {
	conn, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		zap.L().Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	sub := h.hub.Subscribe()
	go h.readPump(conn, sub)
	h.writePump(conn, sub)
}

// readPump only watches for the client going away; the feed is one way.
func (h *FeedHandler) readPump(conn *websocket.Conn, sub *events.Subscriber) {
	defer h.hub.Unsubscribe(sub)

	conn.SetReadLimit(maxClientMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.L().Debug("feed client disconnected", zap.Error(err))
			}
			return
		}
	}
}

func (h *FeedHandler) writePump(conn *websocket.Conn, sub *events.Subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-sub.Messages():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
