// Package realtime pushes live lottery events to observers. Each API instance runs a Hub;
// with Redis enabled a RedisRelay fans events out to the hubs of every instance.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ArowuTest/draft-lottery-backend/internal/metrics"
	"github.com/ArowuTest/draft-lottery-backend/internal/models"
	"go.uber.org/zap"
)

// ErrHubClosed is returned once the hub loop has stopped
var ErrHubClosed = errors.New("live hub is closed")

const sendBuffer = 32

// Publisher delivers live events to observers of a session
type Publisher interface {
	Publish(ctx context.Context, event models.LiveEvent) error
}

type subscription struct {
	sessionID string
	send      chan []byte
}

type message struct {
	sessionID string
	payload   []byte
}

// Hub routes messages to the subscribers of each session
type Hub struct {
	register   chan *subscription
	unregister chan *subscription
	broadcast  chan message
	subs       map[string]map[*subscription]struct{}
	done       chan struct{}
}

// NewHub creates a hub; call Run to start it
func NewHub() *Hub {
	return &Hub{
		register:   make(chan *subscription),
		unregister: make(chan *subscription),
		broadcast:  make(chan message, 64),
		subs:       make(map[string]map[*subscription]struct{}),
		done:       make(chan struct{}),
	}
}

// Run serves subscriptions until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, set := range h.subs {
				for sub := range set {
					close(sub.send)
					metrics.LiveSubscriberRemoved()
				}
			}
			h.subs = map[string]map[*subscription]struct{}{}
			return

		case sub := <-h.register:
			set, ok := h.subs[sub.sessionID]
			if !ok {
				set = make(map[*subscription]struct{})
				h.subs[sub.sessionID] = set
			}
			set[sub] = struct{}{}
			metrics.LiveSubscriberAdded()

		case sub := <-h.unregister:
			h.remove(sub)

		case msg := <-h.broadcast:
			for sub := range h.subs[msg.sessionID] {
				select {
				case sub.send <- msg.payload:
				default:
					zap.L().Warn("dropping slow live subscriber", zap.String("sessionId", sub.sessionID))
					h.remove(sub)
				}
			}
		}
	}
}

func (h *Hub) remove(sub *subscription) {
	set, ok := h.subs[sub.sessionID]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	close(sub.send)
	if len(set) == 0 {
		delete(h.subs, sub.sessionID)
	}
	metrics.LiveSubscriberRemoved()
}

// Subscribe registers for a session's events. The channel closes when the subscription is
// cancelled, the subscriber falls too far behind, or the hub stops.
func (h *Hub) Subscribe(ctx context.Context, sessionID string) (<-chan []byte, func(), error) {
	sub := &subscription{sessionID: sessionID, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- sub:
	case <-h.done:
		return nil, nil, ErrHubClosed
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			select {
			case h.unregister <- sub:
			case <-h.done:
			}
		})
	}
	return sub.send, cancel, nil
}

// Publish encodes the event and hands it to the subscribers of its session
func (h *Hub) Publish(ctx context.Context, event models.LiveEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode live event: %w", err)
	}
	return h.deliver(ctx, event.SessionID, payload)
}

func (h *Hub) deliver(ctx context.Context, sessionID string, payload []byte) error {
	select {
	case <-h.done:
		return ErrHubClosed
	default:
	}
	select {
	case h.broadcast <- message{sessionID: sessionID, payload: payload}:
		return nil
	case <-h.done:
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}
