package hub

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/mihirKIG/Service-Hub-Backend/internal/event"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Session lifecycle states. Inbound events are only processed in StateJoined;
// anything arriving earlier or later is discarded.
type State int

const (
	StateConnecting State = iota
	StateAuthorized
	StateJoined
	StateClosed
)

var (
	// tuning parameters
	writeWait         = 10 * time.Second       // time allowed to write a message to the peer
	pongWait          = 20 * time.Second       // time allowed to read the next pong message from the peer
	pingInterval      = (pongWait * 9) / 10    // send pings to peer with this period
	maxMessageSize    = 64 * 1024              // max inbound message size (64KB)
	sendBufSize       = 256                    // per-connection outbound buffer size
	sendTimeout       = 2 * time.Second        // timeout for enqueuing outbound messages
	registerTimeout   = 5 * time.Second        // timeout for client registration
	unregisterTimeout = 5 * time.Second        // timeout for client unregistration
)

// Client is one live connection bound to one identity and one room. A
// reconnect is a brand new Client with a fresh ID; sessions are never
// resumed.
type Client struct {
	ID     string
	userID string
	roomID string

	conn   *websocket.Conn
	hub    *Hub
	egress chan event.Outbound

	state   State
	stateMu sync.RWMutex

	// cancel or stop goroutines
	cancel         context.CancelFunc
	ctx            context.Context
	once           sync.Once
	connClosed     chan struct{}
	connClosedOnce sync.Once
	closed         bool
	closedMu       sync.RWMutex
}

func newClient(userID, roomID string, conn *websocket.Conn, h *Hub) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		ID:         uuid.New().String(),
		userID:     userID,
		roomID:     roomID,
		conn:       conn,
		hub:        h,
		egress:     make(chan event.Outbound, sendBufSize),
		state:      StateConnecting,
		cancel:     cancel,
		ctx:        ctx,
		connClosed: make(chan struct{}),
	}
}

func (c *Client) UserID() string { return c.userID }
func (c *Client) RoomID() string { return c.roomID }

func (c *Client) State() State {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

func (c *Client) setState(s State) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	if c.state == StateClosed {
		return // terminal
	}
	c.state = s
}

// ReadMessages pumps inbound frames into the protocol engine. Events are
// handled synchronously on this goroutine so one sender's events reach the
// engine in arrival order. The deferred deregistration runs on every exit
// path: normal close, read error, or forced shutdown.
func (c *Client) ReadMessages() {
	defer func() {
		select {
		case c.hub.unregister <- c:
			// unregistered
		case <-time.After(unregisterTimeout):
			c.hub.logger.Warn("failed to unregister client: timeout", zap.String("client_id", c.ID))
		}
		c.Close()
	}()

	c.conn.SetReadLimit(int64(maxMessageSize))
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(c.pongHandler)

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err,
					websocket.CloseNormalClosure,
					websocket.CloseGoingAway,
					websocket.CloseAbnormalClosure,
				) {
					c.hub.logger.Debug("client disconnected", zap.String("client_id", c.ID))
					return
				}

				if websocket.IsUnexpectedCloseError(err,
					websocket.CloseInternalServerErr,
					websocket.CloseProtocolError,
				) {
					c.hub.logger.Warn("unexpected close", zap.String("client_id", c.ID), zap.Error(err))
				}

				if ne, ok := err.(net.Error); ok && ne.Timeout() {
					c.hub.logger.Debug("client timed out, closing connection", zap.String("client_id", c.ID))
					return
				}

				// For other errors, log and exit (cleanup happens in defer)
				c.hub.logger.Warn("error reading from client", zap.String("client_id", c.ID), zap.Error(err))
				return
			}

			c.hub.engine.HandleInbound(c, data)
		}
	}
}

func (c *Client) WriteMessages() {
	ticker := time.NewTicker(pingInterval)

	defer func() {
		ticker.Stop()
		c.Close()
		if err := c.conn.WriteMessage(websocket.CloseMessage, nil); err != nil {
			c.hub.logger.Debug("connection closed", zap.Error(err))
		}
		_ = c.conn.Close()

		// Safe close of connClosed channel using sync.Once
		c.connClosedOnce.Do(func() {
			close(c.connClosed)
		})
	}()

	for {
		select {
		case <-c.ctx.Done():
			return
		case ev := <-c.egress:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				c.hub.logger.Warn("write error", zap.String("client_id", c.ID), zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.hub.logger.Debug("ping failed", zap.String("client_id", c.ID), zap.Error(err))
				return
			}
		}
	}
}

func (c *Client) pongHandler(string) error {
	return c.conn.SetReadDeadline(time.Now().Add(pongWait))
}

// SafeSend attempts to enqueue an event for delivery. Returns false if the
// client is closed or the egress buffer stayed full for the whole timeout.
func (c *Client) SafeSend(ev event.Outbound, timeout time.Duration) bool {
	// Check if closed first (fast path)
	if c.IsClosed() {
		return false
	}

	select {
	case <-c.ctx.Done():
		return false
	case c.egress <- ev:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (c *Client) Close() {
	c.once.Do(func() {
		// Mark as closed BEFORE closing the channel
		c.closedMu.Lock()
		c.closed = true
		c.closedMu.Unlock()

		c.setStateClosed()
		// The egress channel is never closed: pending broadcasts may still
		// attempt a select-send, and cancellation alone stops the writer.
		c.cancel()

		// Wait for WriteMessages to close conn, or force close after timeout
		go func() {
			select {
			case <-c.connClosed:
				// WriteMessages closed it properly
			case <-time.After(5 * time.Second):
				if c.conn != nil {
					_ = c.conn.Close()
				}
				c.hub.logger.Debug("safety timeout: force closed connection", zap.String("client_id", c.ID))
			}
		}()
	})
}

func (c *Client) setStateClosed() {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.state = StateClosed
}

// IsClosed returns true if the client has been closed
func (c *Client) IsClosed() bool {
	c.closedMu.RLock()
	defer c.closedMu.RUnlock()
	return c.closed
}
