package infrastructure

import (
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tableside/internal/modules/realtime/domain"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	readLimit  = 1 << 16
)

// ClientInfo identifies the owner of a websocket connection.
type ClientInfo struct {
	UserID       string
	SessionID    string
	RestaurantID string
	Role         string
}

type Client struct {
	hub          *Hub
	conn         *websocket.Conn
	send         chan []byte
	userID       string
	sessionID    string
	restaurantID string
	role         string
	commands     *CommandProcessor
	subscribed   map[string]struct{}
	closeOnce    sync.Once
	closed       bool
	sendMu       sync.RWMutex
	closeHooks   []func(*Client)
	hookMu       sync.Mutex
}

// NewClient creates a client with a buffered send queue. commandFn handles every
// action the built-in processor does not know.
func NewClient(hub *Hub, conn *websocket.Conn, info ClientInfo, buf int, commandFn CommandHandler) *Client {
	if buf <= 0 {
		buf = 16
	}
	client := &Client{
		hub:          hub,
		conn:         conn,
		send:         make(chan []byte, buf),
		userID:       strings.TrimSpace(info.UserID),
		sessionID:    strings.TrimSpace(info.SessionID),
		restaurantID: strings.TrimSpace(info.RestaurantID),
		role:         strings.TrimSpace(info.Role),
		subscribed:   make(map[string]struct{}),
	}
	client.commands = NewCommandProcessor(hub, commandFn)
	return client
}

func (c *Client) UserID() string       { return c.userID }
func (c *Client) SessionID() string    { return c.sessionID }
func (c *Client) RestaurantID() string { return c.restaurantID }

// Commands exposes the processor so callers can register extra actions.
func (c *Client) Commands() *CommandProcessor { return c.commands }

func (c *Client) key() string {
	parts := []string{c.role, c.userID, c.sessionID}
	if c.restaurantID != "" {
		parts = append(parts, c.restaurantID)
	}
	return strings.Join(parts, ":")
}

func (c *Client) logAttrs() []any {
	return []any{
		slog.String("userId", c.userID),
		slog.String("sessionId", c.sessionID),
		slog.String("restaurantId", c.restaurantID),
		slog.String("role", c.role),
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.sendMu.Lock()
		c.closed = true
		close(c.send)
		c.sendMu.Unlock()
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// enqueue reports false when the send buffer is full.
func (c *Client) enqueue(data []byte) bool {
	c.sendMu.RLock()
	defer c.sendMu.RUnlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// AddCloseHook registers a callback executed once when the client closes.
func (c *Client) AddCloseHook(fn func(*Client)) {
	if fn == nil {
		return
	}
	c.hookMu.Lock()
	c.closeHooks = append(c.closeHooks, fn)
	c.hookMu.Unlock()
}

func (c *Client) invokeCloseHooks() {
	c.hookMu.Lock()
	hooks := append([]func(*Client){}, c.closeHooks...)
	c.closeHooks = nil
	c.hookMu.Unlock()

	for _, hook := range hooks {
		func(h func(*Client)) {
			defer func() {
				if r := recover(); r != nil {
					slog.Warn("ws close hook panic", slog.Any("error", r))
				}
			}()
			h(c)
		}(hook)
	}
}

func (c *Client) SendDomainMessage(msg *domain.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("websocket marshal error", slog.Any("error", err))
		return
	}
	if !c.enqueue(data) {
		slog.Warn("websocket send buffer full", c.logAttrs()...)
		go c.hub.detachClient(c)
	}
}

func (c *Client) WritePump() {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				slog.Warn("websocket write error", append(c.logAttrs(), slog.Any("error", err))...)
				return
			}
		case <-ping.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				slog.Warn("websocket ping error", append(c.logAttrs(), slog.Any("error", err))...)
				return
			}
		}
	}
}

func (c *Client) ReadPump() {
	c.conn.SetReadLimit(readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	defer c.hub.detachClient(c)
	for {
		var cmd Command
		if err := c.conn.ReadJSON(&cmd); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("websocket read error", append(c.logAttrs(), slog.Any("error", err))...)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.processCommand(cmd)
	}
}

func (c *Client) processCommand(cmd Command) {
	if c.commands == nil {
		return
	}
	c.commands.Process(c, cmd)
}
