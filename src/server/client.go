package server

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	writeWait      = 2 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// -----------------------------------------------------------------------------
// Client Structure
// -----------------------------------------------------------------------------

type Client struct {
	id   string
	hub  *FastAPIServer
	conn *websocket.Conn
	send chan interface{}

	// Closed once the hub drops the client
	done      chan struct{}
	closeOnce sync.Once

	// At most one refresh loop runs per client
	mu     sync.Mutex
	closed bool
	cancel context.CancelFunc
	active sync.WaitGroup
}

// -----------------------------------------------------------------------------

func newClient(id string, hub *FastAPIServer, conn *websocket.Conn) *Client {
	return &Client{
		id:   id,
		hub:  hub,
		conn: conn,
		// Buffered channel to prevent blocking the refresh loop
		send: make(chan interface{}, 16),
		done: make(chan struct{}),
	}
}

// -----------------------------------------------------------------------------

// close marks the client dropped, ends its refresh loop and closes the
// connection, which also stops readPump.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		close(c.done)
		c.unsubscribe()
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

// -----------------------------------------------------------------------------

func (c *Client) isClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// -----------------------------------------------------------------------------

// subscribe ends the running refresh loop, if any, and returns the context
// of the next one. It reports false once the client was dropped.
func (c *Client) subscribe() (context.Context, bool) {
	c.unsubscribe()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, false
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.active.Add(1)
	return ctx, true
}

// -----------------------------------------------------------------------------

// unsubscribe cancels the refresh loop and waits for it to exit.
func (c *Client) unsubscribe() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.active.Wait()
}

// -----------------------------------------------------------------------------

func (c *Client) subscriptionDone() {
	c.active.Done()
}

// -----------------------------------------------------------------------------

// trySend queues a direct reply without blocking the read loop.
func (c *Client) trySend(msg interface{}) {
	if c.isClosed() {
		return
	}
	select {
	case c.send <- msg:
	case <-c.done:
	default:
		c.hub.Logger.Warning("Client %s send buffer full, reply dropped", c.id)
	}
}

// -----------------------------------------------------------------------------
// readPump - handles incoming messages from client
// Act as a Watchdog for the connection
// -----------------------------------------------------------------------------

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
		c.hub.Logger.Info("Client %s disconnected", c.id)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.Logger.Info("WebSocket error: %v", err)
			}
			break
		}
		// Handle the message (subscribe commands)
		c.hub.HandleClientMessage(c, message)
	}
}

// -----------------------------------------------------------------------------
// writePump - sends messages to client
// -----------------------------------------------------------------------------

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			// Write JSON message
			if err := c.conn.WriteJSON(message); err != nil {
				c.hub.Logger.Info("Write error: %v", err)
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
