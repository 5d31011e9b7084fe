package http

import (
	"context"
	"net/http"
	"time"

	"quiz-app-service/internal/app"
	"quiz-app-service/internal/domain"
	"quiz-app-service/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

// StatsSource provides the current aggregates of a quiz.
type StatsSource interface {
	QuizStatsSnapshot(ctx context.Context, quizID string) (domain.QuizStatsSnapshot, error)
}

// StatsStreamHandler pushes live quiz stats to websocket clients.
type StatsStreamHandler struct {
	stats    StatsSource
	feed     *app.StatsFeed
	upgrader websocket.Upgrader
}

func NewStatsStreamHandler(stats StatsSource, feed *app.StatsFeed) *StatsStreamHandler {
	return &StatsStreamHandler{
		stats: stats,
		feed:  feed,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type statsMessage struct {
	Type    string                   `json:"type"`
	Payload domain.QuizStatsSnapshot `json:"payload"`
}

// Stream sends the quiz's current stats on connect and again after every committed submission.
func (h *StatsStreamHandler) Stream(c *gin.Context) {
	quizID := c.Param("id")
	log := logger.FromContext(c.Request.Context()).WithField("quiz_id", quizID)

	initial, err := h.stats.QuizStatsSnapshot(c.Request.Context(), quizID)
	if err != nil {
		writeError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	updates, cancel := h.feed.Subscribe(quizID, initial)
	defer cancel()

	// The client never sends data; reading only services control frames and detects close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(statsMessage{Type: "stats", Payload: snap}); err != nil {
				log.WithError(err).Debug("ws write failed")
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}
