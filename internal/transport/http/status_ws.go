package http

import (
	"log"
	"net/http"

	"github.com/EfrenHaskell/Cosi166Project/internal/app"
	"github.com/EfrenHaskell/Cosi166Project/internal/domain"
	"github.com/gorilla/websocket"
)

// StatusStream pushes question status over a websocket so the teacher
// dashboard sees transitions without polling.
type StatusStream struct {
	controller *app.SessionController
	upgrader   websocket.Upgrader
}

func NewStatusStream(controller *app.SessionController) *StatusStream {
	return &StatusStream{
		controller: controller,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type statusMessage struct {
	Type    string        `json:"type"`
	Payload domain.Status `json:"payload"`
}

// ServeWS upgrades the request and streams status updates until the client
// disconnects.
func (s *StatusStream) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := s.controller.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			// Clients send nothing; the read loop only detects disconnect.
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(statusMessage{Type: "status", Payload: update}); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		case <-done:
			return
		}
	}
}
