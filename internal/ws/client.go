package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/pongarena/backend/internal/bus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

// Close codes used across all endpoints.
const (
	CloseNormal         = 1000
	CloseForceOrTimeout = 4000
	CloseUnauthorized   = 4001
	CloseNotParticipant = 4003
	CloseGameNotFound   = 4004
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	readLimit  = 65536
)

// Client is one WebSocket connection bound to a bus channel. All outbound
// traffic, whether addressed to this connection or fanned out to a group it
// joined, flows through that single channel so clients observe one ordered
// stream.
type Client struct {
	conn    *websocket.Conn
	bus     bus.Bus
	channel string
	recv    <-chan []byte
	userID  int
	limiter *rate.Limiter

	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, b bus.Bus, userID int, kind string, perSecond, burst int) *Client {
	channel := fmt.Sprintf("%s:%d:%s", kind, userID, uuid.NewString())
	return &Client{
		conn:    conn,
		bus:     b,
		channel: channel,
		recv:    b.Register(channel),
		userID:  userID,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// Send queues a message for this connection through the bus.
func (c *Client) Send(ctx context.Context, message interface{}) {
	if err := c.bus.Send(ctx, c.channel, message); err != nil {
		log.Printf("[WS] Send to user %d failed: %v", c.userID, err)
	}
}

func (c *Client) sendError(ctx context.Context, message string) {
	c.Send(ctx, map[string]interface{}{"type": "error", "message": message})
}

// closeControl is the in-band frame a worker broadcasts to shut group
// members down with a specific close code. It is consumed by writePump,
// never forwarded to the client.
type closeControl struct {
	Type   string `json:"type"`
	Code   int    `json:"code"`
	Reason string `json:"reason"`
}

// CloseFrame builds the control message understood by writePump.
func CloseFrame(code int, reason string) closeControl {
	return closeControl{Type: "close_connection", Code: code, Reason: reason}
}

// closeWithCode writes a close frame and tears the connection down.
func (c *Client) closeWithCode(code int, reason string) {
	c.closeOnce.Do(func() {
		deadline := time.Now().Add(writeWait)
		msg := websocket.FormatCloseMessage(code, reason)
		if err := c.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
			log.Printf("[WS] Close control write failed for user %d: %v", c.userID, err)
		}
		c.conn.Close()
	})
}

// writePump forwards the bus channel to the socket and keeps the connection
// alive with pings. It exits when the channel is unregistered or the socket
// breaks.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.recv:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			var control closeControl
			if err := json.Unmarshal(message, &control); err == nil && control.Type == "close_connection" {
				c.closeWithCode(control.Code, control.Reason)
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[WS] Write error for user %d: %v", c.userID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// configureRead applies the shared read limits and keepalive deadline.
func (c *Client) configureRead() {
	c.conn.SetReadLimit(readLimit)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
}

// readMessage blocks for the next inbound frame, enforcing the per-user rate
// limit. Flooded messages are dropped, not fatal.
func (c *Client) readMessage() ([]byte, error) {
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] Unexpected close for user %d: %v", c.userID, err)
			}
			return nil, err
		}
		if !c.limiter.Allow() {
			log.Printf("[WS] Rate limit exceeded for user %d, dropping message", c.userID)
			continue
		}
		return message, nil
	}
}

// cleanup releases the bus channel; the closed channel in turn stops
// writePump.
func (c *Client) cleanup() {
	c.bus.Unregister(c.channel)
}

// inbound is the union of every client message across endpoints; each
// handler reads the fields it cares about.
type inbound struct {
	Type         string   `json:"type"`
	Position     *float64 `json:"position,omitempty"`
	Difficulty   string   `json:"difficulty,omitempty"`
	RecipientID  int      `json:"recipient_id,omitempty"`
	InvitationID int      `json:"invitation_id,omitempty"`
}
