package events

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/yizeng/gab/gin/gorm/marketplace/internal/domain"
)

const subscriberBuffer = 64

type Subscriber struct {
	send chan []byte
}

// Messages is closed when the subscriber is dropped or the hub stops.
func (s *Subscriber) Messages() <-chan []byte {
	return s.send
}

type Hub struct {
	subscribers map[*Subscriber]struct{}
	register    chan *Subscriber
	unregister  chan *Subscriber
	broadcast   chan []byte
	done        chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[*Subscriber]struct{}),
		register:    make(chan *Subscriber),
		unregister:  make(chan *Subscriber),
		broadcast:   make(chan []byte, subscriberBuffer),
		done:        make(chan struct{}),
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for s := range h.subscribers {
			close(s.send)
			delete(h.subscribers, s)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case s := <-h.register:
			h.subscribers[s] = struct{}{}
		case s := <-h.unregister:
			if _, ok := h.subscribers[s]; ok {
				delete(h.subscribers, s)
				close(s.send)
			}
		case message := <-h.broadcast:
			for s := range h.subscribers {
				select {
				case s.send <- message:
				default:
					// Too slow to keep up; drop it rather than block everyone.
					close(s.send)
					delete(h.subscribers, s)
				}
			}
		}
	}
}

func (h *Hub) Subscribe() *Subscriber {
	s := &Subscriber{send: make(chan []byte, subscriberBuffer)}

	select {
	case h.register <- s:
	case <-h.done:
		close(s.send)
	}

	return s
}

func (h *Hub) Unsubscribe(s *Subscriber) {
	select {
	case h.unregister <- s:
	case <-h.done:
	}
}

func (h *Hub) Publish(event domain.MarketEvent) {
	raw, err := json.Marshal(event)
	if err != nil {
		zap.L().Error("failed to encode market event", zap.Error(err))
		return
	}

	h.Broadcast(raw)
}

// Broadcast never blocks the caller; when the hub is backed up the message
// is dropped.
func (h *Hub) Broadcast(raw []byte) {
	select {
	case h.broadcast <- raw:
	default:
		zap.L().Warn("market feed is backed up, dropping event")
	}
}
