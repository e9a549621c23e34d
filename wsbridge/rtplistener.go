package wsbridge

import (
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pion/rtp"
)

// RTPListener forwards packetized RTP to a websocket consumer, one packet per
// binary message. A failed write detaches the listener from the fanout.
type RTPListener struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func NewRTPListener(conn *websocket.Conn) *RTPListener {
	return &RTPListener{conn: conn}
}

func (l *RTPListener) WritePacket(pkt *rtp.Packet) bool {
	b, err := pkt.Marshal()
	if err != nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn.WriteMessage(websocket.BinaryMessage, b) == nil
}

// WriteTrailer tells the consumer the stream ended normally.
func (l *RTPListener) WriteTrailer() {
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "stream ended"))
}
