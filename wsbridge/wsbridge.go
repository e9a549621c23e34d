// Package wsbridge adapts a gorilla websocket connection to the pipeline's
// Sender contract.
package wsbridge

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Sender writes frames as binary messages and status notifications as text
// messages. gorilla allows a single concurrent writer, and the mutex also
// keeps frame and status messages in submission order.
type Sender struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func NewSender(conn *websocket.Conn) *Sender {
	return &Sender{conn: conn}
}

func (s *Sender) SendBinary(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (s *Sender) SendText(msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, []byte(msg))
}
