package api

import (
	"net/http"
	"slices"
	"time"

	"github.com/alumninet/chatserver/internal/server"
	"github.com/gorilla/websocket"
)

// CloseUnauthorized is sent when a connection arrives without a valid
// bearer token.
const CloseUnauthorized = 4001

func closeUnauthorized(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(CloseUnauthorized, "unauthorized")
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	conn.Close()
}

// serveWs upgrades the connection and authenticates it from the token
// query parameter. Authentication failures close with 4001 before any
// frame is processed.
func (s *AlumniChatApp) serveWs(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		closeUnauthorized(conn)
		return
	}

	userId, err := s.extractUserIdFromToken(token)
	if err != nil {
		s.log.Println("ws auth:", err)
		closeUnauthorized(conn)
		return
	}

	user, err := s.db.GetAccountById(userId)
	if err != nil {
		s.log.Println("ws auth: lookup user:", err)
		closeUnauthorized(conn)
		return
	}

	client := server.NewClient(serializeUser(user), conn, s.cs, s.log)

	s.cs.RegisterClient(client)
	go client.Write()
	go client.Read()
}
