package ws

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	sendChanBuf   = 256
	writeDeadline = 10 * time.Second
	readDeadline  = 60 * time.Second
	pingInterval  = 30 * time.Second // server-side WS ping
)

// Packet is the unified WS message envelope.
type Packet struct {
	Seq     uint64          `json:"seq"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Conn is one WebSocket connection bound to a game session.
type Conn struct {
	SessionID string
	WS        *websocket.Conn
	SendChan  chan []byte
	Done      chan struct{}
	LastSeq   uint64

	logger *zap.Logger
}

// NewConn creates a Conn. The write goroutine is started only when ws is set.
func NewConn(sessionID string, ws *websocket.Conn, logger *zap.Logger) *Conn {
	c := &Conn{
		SessionID: sessionID,
		WS:        ws,
		SendChan:  make(chan []byte, sendChanBuf),
		Done:      make(chan struct{}),
		logger:    logger.With(zap.String("session_id", sessionID)),
	}
	if ws != nil {
		go c.writePump()
	}
	return c
}

// writePump drains SendChan and writes to the WebSocket connection.
// Also sends periodic WebSocket pings to detect dead connections quickly.
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer c.WS.Close()
	for {
		select {
		case data := <-c.SendChan:
			_ = c.WS.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.WS.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Warn("ws write error", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.WS.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.WS.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.Done:
			_ = c.WS.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// Send encodes a packet and queues it non-blocking. Drops if the queue is
// full or the connection is closed.
func (c *Conn) Send(seq uint64, typ string, payload interface{}) {
	if c.IsClosed() {
		return
	}
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			c.logger.Error("encode packet", zap.String("type", typ), zap.Error(err))
			return
		}
		raw = b
	}
	c.SendRaw(typ, mustPacket(Packet{Seq: seq, Type: typ, Payload: raw}))
}

// SendRaw queues pre-encoded bytes.
func (c *Conn) SendRaw(typ string, data []byte) {
	select {
	case c.SendChan <- data:
	case <-c.Done:
	default:
		if !c.IsClosed() {
			c.logger.Warn("send channel full, dropping packet", zap.String("type", typ))
		}
	}
}

// Close signals the writePump to shut down.
func (c *Conn) Close() {
	select {
	case <-c.Done:
	default:
		close(c.Done)
	}
}

// IsClosed returns true if the connection has been closed.
func (c *Conn) IsClosed() bool {
	select {
	case <-c.Done:
		return true
	default:
		return false
	}
}

// SetReadDeadline resets the WebSocket read deadline.
func (c *Conn) SetReadDeadline() {
	_ = c.WS.SetReadDeadline(time.Now().Add(readDeadline))
}

func mustPacket(p Packet) []byte {
	b, _ := json.Marshal(p)
	return b
}
