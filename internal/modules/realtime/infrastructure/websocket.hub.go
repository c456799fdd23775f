package infrastructure

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"tableside/internal/modules/realtime/domain"
)

// Hub fans messages out to websocket clients by topic. Message metadata can narrow
// delivery to one user, session, restaurant or table.
type Hub struct {
	topics  map[string]map[*Client]struct{}
	clients map[string]*Client
	mu      sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		topics:  make(map[string]map[*Client]struct{}),
		clients: make(map[string]*Client),
	}
}

func (h *Hub) registerClient(c *Client) {
	h.mu.Lock()
	existing, replaced := h.clients[c.key()]
	if replaced && existing != c {
		h.detachLocked(existing)
	}
	h.clients[c.key()] = c
	h.mu.Unlock()
	if replaced && existing != c {
		existing.invokeCloseHooks()
	}
	slog.Info("ws client registered", c.logAttrs()...)
}

func (h *Hub) subscribe(c *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[*Client]struct{})
	}
	h.topics[topic][c] = struct{}{}
	c.subscribed[topic] = struct{}{}
}

func (h *Hub) unsubscribe(c *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.topics[topic]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
	delete(c.subscribed, topic)
	slog.Debug("ws client unsubscribed", append(c.logAttrs(), slog.String("topic", topic))...)
}

// detachClient runs the close hooks after releasing the hub lock so hooks may use the hub.
func (h *Hub) detachClient(c *Client) {
	h.mu.Lock()
	h.detachLocked(c)
	h.mu.Unlock()
	if c != nil {
		c.invokeCloseHooks()
	}
}

// Detach closes the client and removes it from every topic.
func (h *Hub) Detach(c *Client) {
	h.detachClient(c)
}

func (h *Hub) detachLocked(c *Client) {
	if c == nil {
		return
	}
	for topic := range c.subscribed {
		if subs, ok := h.topics[topic]; ok {
			delete(subs, c)
			if len(subs) == 0 {
				delete(h.topics, topic)
			}
		}
	}
	if current, ok := h.clients[c.key()]; ok && current == c {
		delete(h.clients, c.key())
	}
	c.close()
	slog.Info("ws client detached", c.logAttrs()...)
}

// Subscribers returns the number of clients subscribed to topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

func (h *Hub) Broadcast(_ context.Context, msg *domain.Message) {
	if msg == nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("broadcast marshal error", slog.String("topic", msg.Topic), slog.Any("error", err))
		return
	}

	h.mu.RLock()
	clientsMap := h.topics[msg.Topic]
	clients := make([]*Client, 0, len(clientsMap))
	for c := range clientsMap {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	targetUser := strings.TrimSpace(msg.Meta(domain.MetaUserID))
	targetSession := strings.TrimSpace(msg.Meta(domain.MetaSessionID))
	targetRestaurant := strings.TrimSpace(msg.Meta(domain.MetaRestaurantID))

	for _, c := range clients {
		if targetUser != "" && c.userID != targetUser {
			continue
		}
		if targetSession != "" && c.sessionID != targetSession {
			continue
		}
		if targetRestaurant != "" && c.restaurantID != "" && c.restaurantID != targetRestaurant {
			continue
		}
		if !c.enqueue(data) {
			go h.detachClient(c)
		}
	}
}

func (h *Hub) AttachClient(c *Client, topics []string) {
	h.registerClient(c)
	for _, topic := range topics {
		if trimmed := strings.TrimSpace(topic); trimmed != "" {
			h.subscribe(c, trimmed)
		}
	}
	slog.Info("ws client attached", append(c.logAttrs(), slog.Any("topics", topics))...)
}
