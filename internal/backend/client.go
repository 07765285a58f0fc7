// internal/backend/client.go
package backend

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
)

// Client is this backend instance's connection to the gateway's friend
// channel.
type Client struct {
	logger  *logrus.Logger
	conn    *websocket.Conn
	outChan chan []byte
	ctx     context.Context
	cancel  context.CancelFunc
}

// Dial connects to the gateway, presenting the backend handshake token.
// The context bounds the connection's whole lifetime, not just the dial.
func Dial(ctx context.Context, url, token string, logger *logrus.Logger) (*Client, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	dialCtx, cancelDial := context.WithTimeout(ctx, 10*time.Second)
	defer cancelDial()

	conn, _, err := websocket.Dial(dialCtx, url, &websocket.DialOptions{
		Subprotocols: []string{"friend"},
		HTTPHeader:   header,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to dial gateway at %s: %w", url, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	return &Client{
		logger:  logger,
		conn:    conn,
		outChan: make(chan []byte, 64),
		ctx:     runCtx,
		cancel:  cancel,
	}, nil
}

// Send queues one datagram toward the gateway. Fire-and-forget: if the
// queue is full the datagram is dropped and logged.
func (c *Client) Send(payload []byte) {
	select {
	case c.outChan <- payload:
	default:
		c.logger.Warn("outbound queue to gateway full, dropping datagram")
	}
}

// Run pumps the connection: outbound writes in a goroutine, inbound reads
// on the calling goroutine handed to handle. It returns when the
// connection dies or Close is called.
func (c *Client) Run(handle func(data []byte)) error {
	go c.writePump()

	for {
		typ, data, err := c.conn.Read(c.ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				return nil
			}
			return fmt.Errorf("gateway connection read error: %w", err)
		}
		if typ != websocket.MessageBinary {
			c.logger.Warn("non-binary message from gateway, ignoring")
			continue
		}
		handle(data)
	}
}

func (c *Client) writePump() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case payload := <-c.outChan:
			if err := c.conn.Write(c.ctx, websocket.MessageBinary, payload); err != nil {
				c.logger.Warnf("write to gateway failed: %v", err)
				return
			}
		}
	}
}

// Close tears the connection down.
func (c *Client) Close() {
	c.cancel()
	c.conn.Close(websocket.StatusNormalClosure, "shutting down")
}
