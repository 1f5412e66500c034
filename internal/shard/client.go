package shard

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/udisondev/dressroom/internal/model"
)

// Default write queue / timeout constants.
// Overridden by config values when available.
const (
	defaultSendQueueSize = 256
	defaultWriteTimeout  = 5 * time.Second
	defaultReadTimeout   = 120 * time.Second
	helloTimeout         = 10 * time.Second
)

var (
	errSendQueueFull = errors.New("send queue full")
	errClientClosed  = errors.New("client closed")
)

// Client — одно websocket-подключение.
// Запись идёт только из writePump; Send лишь ставит сообщение в очередь.
type Client struct {
	conn   *websocket.Conn
	remote string

	// заполняются после hello, дальше не меняются
	character model.CharacterID
	space     *Space

	sendCh    chan []byte
	closeCh   chan struct{}
	closeOnce sync.Once

	writeTimeout time.Duration
}

func newClient(conn *websocket.Conn, sendQueueSize int, writeTimeout time.Duration) *Client {
	if sendQueueSize <= 0 {
		sendQueueSize = defaultSendQueueSize
	}
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &Client{
		conn:         conn,
		remote:       conn.RemoteAddr().String(),
		sendCh:       make(chan []byte, sendQueueSize),
		closeCh:      make(chan struct{}),
		writeTimeout: writeTimeout,
	}
}

// Send queues a message for async delivery.
// Non-blocking: a full queue closes the client (slow client → disconnect).
func (c *Client) Send(msg []byte) error {
	select {
	case <-c.closeCh:
		return errClientClosed
	default:
	}
	select {
	case c.sendCh <- msg:
		return nil
	default:
		slog.Warn("send queue full, disconnecting slow client", "client", c.remote, "character", c.character)
		c.CloseAsync()
		return errSendQueueFull
	}
}

// CloseAsync signals the writePump to stop without blocking.
// Safe to call multiple times.
func (c *Client) CloseAsync() {
	c.closeOnce.Do(func() {
		close(c.closeCh)
	})
}

// Done закрывается после CloseAsync.
func (c *Client) Done() <-chan struct{} { return c.closeCh }

// writePump — единственный writer подключения. После closeCh дописывает уже
// поставленные в очередь сообщения, отправляет close frame и закрывает conn,
// что завершает reader loop.
func (c *Client) writePump() {
	defer c.conn.Close()

	for {
		select {
		case msg := <-c.sendCh:
			if err := c.write(msg); err != nil {
				slog.Debug("write failed", "client", c.remote, "error", err)
				c.CloseAsync()
				return
			}
		case <-c.closeCh:
			for {
				select {
				case msg := <-c.sendCh:
					if err := c.write(msg); err != nil {
						return
					}
				default:
					_ = c.conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
						time.Now().Add(time.Second))
					return
				}
			}
		}
	}
}

func (c *Client) write(msg []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}
