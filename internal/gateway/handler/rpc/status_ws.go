package rpc

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"codelens/internal/gateway/service/learning"
)

const (
	statusWSWriteWait = 10 * time.Second
	statusWSPongWait  = 60 * time.Second
	statusWSPingEvery = (statusWSPongWait * 9) / 10
)

var statusWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// StatusSocket pushes every learning status snapshot to websocket clients.
// Each connection sees the current status first.
type StatusSocket struct {
	svc LearningService
	log *zap.Logger
	// pingEvery is shortened in tests.
	pingEvery time.Duration
}

func NewStatusSocket(svc LearningService, logger *zap.Logger) *StatusSocket {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusSocket{svc: svc, log: logger, pingEvery: statusWSPingEvery}
}

func (s *StatusSocket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := statusWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(statusWSPongWait)); err != nil {
		s.log.Debug("status ws: set read deadline failed", zap.Error(err))
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(statusWSPongWait))
	})

	// The reader only drains control frames and notices the client leaving.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	updates := s.svc.Watch(ctx)
	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-updates:
			if !ok {
				return
			}
			if err := s.write(conn, st); err != nil {
				s.log.Debug("status ws: write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(statusWSWriteWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *StatusSocket) write(conn *websocket.Conn, st learning.Status) error {
	if err := conn.SetWriteDeadline(time.Now().Add(statusWSWriteWait)); err != nil {
		return err
	}
	return conn.WriteJSON(st)
}
