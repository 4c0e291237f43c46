package ws

import (
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// Verifier maps a bearer credential to a verified user id.
type Verifier interface {
	Verify(token string) (string, error)
}

type Server struct {
	hub      *Hub
	verifier Verifier
	log      *zap.Logger
}

func NewServer(hub *Hub, verifier Verifier, log *zap.Logger) *Server {
	return &Server{hub: hub, verifier: verifier, log: log}
}

func (s *Server) Hub() *Hub { return s.hub }

// Handler upgrades and services one connection. An unverifiable token
// does not close the connection: the client simply never joins a room
// and never sees user-scoped events. Closing with an auth error would
// leak whether a credential was close to valid.
func (s *Server) Handler() func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		c := newClient(conn, s.hub)

		token := conn.Query("token")
		if userID, err := s.verifier.Verify(token); err == nil {
			s.hub.Subscribe(userID, c)
			s.log.Debug("realtime client subscribed", zap.String("user_id", userID))
		} else {
			s.log.Debug("unverified realtime connection", zap.Error(err))
		}

		go c.writePump()
		c.readPump()
	}
}
