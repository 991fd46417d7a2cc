package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ArowuTest/draft-lottery-backend/internal/models"
	"github.com/ArowuTest/draft-lottery-backend/internal/services"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Subscriber hands out a stream of encoded live events for one session
type Subscriber interface {
	Subscribe(ctx context.Context, sessionID string) (<-chan []byte, func(), error)
}

// LiveHandler streams session events to observers over a websocket
type LiveHandler struct {
	lotteryService services.LotteryService
	subscriber     Subscriber
	upgrader       websocket.Upgrader
}

// NewLiveHandler creates a LiveHandler. An empty allowedOrigins list accepts any origin.
func NewLiveHandler(lotteryService services.LotteryService, subscriber Subscriber, allowedOrigins []string) *LiveHandler {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &LiveHandler{
		lotteryService: lotteryService,
		subscriber:     subscriber,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(origins) == 0 || origin == "" || origins["*"] || origins[origin]
			},
		},
	}
}

// Stream handles GET /lotteries/:id/live. The first message is a snapshot of the session's
// status and drawing state; every later message is a live event.
func (h *LiveHandler) Stream(c *gin.Context) {
	_, id, ok := sessionParams(c)
	if !ok {
		return
	}
	session, err := h.lotteryService.GetSession(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	// the subscription outlives the request context once the connection is hijacked
	ctx, cancel := context.WithCancel(context.Background())
	events, unsubscribe, err := h.subscriber.Subscribe(ctx, id.Hex())
	if err != nil {
		cancel()
		respondError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		unsubscribe()
		cancel()
		zap.L().Debug("websocket upgrade failed", zap.Error(err), zap.String("sessionId", id.Hex()))
		return
	}

	snapshot, err := json.Marshal(models.LiveEvent{
		Type:         models.LiveEventStatus,
		SessionID:    id.Hex(),
		Status:       session.Status,
		DrawingState: session.DrawingState,
		DraftOrder:   session.DraftOrder,
		At:           time.Now().UTC(),
	})
	if err != nil {
		unsubscribe()
		cancel()
		_ = conn.Close()
		return
	}

	go readPump(conn, cancel)
	go writePump(ctx, conn, snapshot, events, func() {
		unsubscribe()
		cancel()
	})
}

// readPump discards client messages and cancels the stream once the peer goes away
func readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writePump(ctx context.Context, conn *websocket.Conn, first []byte, events <-chan []byte, done func()) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		done()
		_ = conn.Close()
	}()

	if err := write(conn, websocket.TextMessage, first); err != nil {
		return
	}
	for {
		select {
		case message, ok := <-events:
			if !ok {
				_ = write(conn, websocket.CloseMessage, []byte{})
				return
			}
			if err := write(conn, websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			if err := write(conn, websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			_ = write(conn, websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func write(conn *websocket.Conn, messageType int, data []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(messageType, data)
}
