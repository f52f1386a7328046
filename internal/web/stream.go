package web

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/PhelGc/roadsphere/internal/scene"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// handleSceneStream envía cada frame de la escena como un mensaje de texto
// con el SVG. El cliente puede mandar "start" o "stop" para la animación.
func (s *Server) handleSceneStream(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("Upgrade websocket fallido", zap.Error(err))
		return
	}
	defer conn.Close()

	frames, unsubscribe := sess.Scene.Subscribe()
	defer unsubscribe()

	closed := make(chan struct{})
	go s.readCommands(conn, sess.Scene, closed)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	if err := s.writeFrame(conn, sess.Scene.Draw().SVG()); err != nil {
		return
	}

	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "scene closed"),
					time.Now().Add(writeWait))
				return
			}
			if err := s.writeFrame(conn, frame); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}

// readCommands lee hasta que la conexión se cierra. Solo este goroutine lee
// de conn; las escrituras quedan en handleSceneStream.
func (s *Server) readCommands(conn *websocket.Conn, sc *scene.Scene, closed chan<- struct{}) {
	defer close(closed)

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("Websocket cerrado", zap.Error(err))
			}
			return
		}
		switch strings.TrimSpace(string(msg)) {
		case "start":
			sc.StartAnimation(s.baseCtx)
		case "stop":
			sc.StopAnimation()
		}
	}
}

func (s *Server) writeFrame(conn *websocket.Conn, frame string) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, []byte(frame))
}
