package api

import (
	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

// StreamHandler forwards bus events to a websocket client as JSON. The
// optional "ns" query narrows the stream to one event namespace, e.g.
// "view." or "notify.".
func (s *Server) StreamHandler(conn *websocket.Conn) {
	ns := conn.Query("ns")
	events, cancel := s.bus.Subscribe(ns, 64)
	defer cancel()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	s.logger.Debug("stream attached", zap.String("namespace", ns))
	for {
		select {
		case evt, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(evt); err != nil {
				s.logger.Debug("stream write failed", zap.Error(err))
				return
			}
		case <-closed:
			return
		}
	}
}
