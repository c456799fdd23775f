package infrastructure

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"tableside/internal/modules/realtime/domain"
)

// Command is a client-to-server websocket frame.
type Command struct {
	Action  string          `json:"action"`
	Topic   string          `json:"topic,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func (c Command) actionKey() string {
	return normalizeAction(c.Action)
}

// Decode unmarshals the payload into dst. An empty payload leaves dst untouched.
func (c Command) Decode(dst any) error {
	if len(c.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(c.Payload, dst)
}

type CommandHandler func(ctx context.Context, client *Client, cmd Command)

type CommandProcessor struct {
	hub             *Hub
	handlers        map[string]CommandHandler
	fallback        CommandHandler
	fallbackTimeout time.Duration
	// allowTopic guards client-initiated subscriptions; nil allows none.
	allowTopic func(client *Client, topic string) bool
}

func NewCommandProcessor(hub *Hub, fallback CommandHandler) *CommandProcessor {
	processor := &CommandProcessor{
		hub:             hub,
		handlers:        make(map[string]CommandHandler),
		fallback:        fallback,
		fallbackTimeout: 10 * time.Second,
	}
	processor.Register("subscribe", processor.handleSubscribe)
	processor.Register("unsubscribe", processor.handleUnsubscribe)
	processor.Register("ping", processor.handlePing)
	return processor
}

func (p *CommandProcessor) Register(action string, handler CommandHandler) {
	if handler == nil {
		return
	}
	key := normalizeAction(action)
	if key == "" {
		return
	}
	p.handlers[key] = handler
}

// AllowTopics sets the predicate deciding which topics a client may subscribe to.
func (p *CommandProcessor) AllowTopics(fn func(client *Client, topic string) bool) {
	p.allowTopic = fn
}

func (p *CommandProcessor) Process(client *Client, cmd Command) {
	if client == nil {
		return
	}

	action := cmd.actionKey()
	if action == "" {
		return
	}

	if handler, ok := p.handlers[action]; ok {
		handler(context.Background(), client, cmd)
		return
	}

	if p.fallback == nil {
		slog.Debug("ws command ignored", append(client.logAttrs(), slog.String("action", action))...)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.fallbackTimeout)
	go func() {
		defer cancel()
		p.fallback(ctx, client, cmd)
	}()
}

func (p *CommandProcessor) handleSubscribe(_ context.Context, client *Client, cmd Command) {
	topic := strings.TrimSpace(cmd.Topic)
	if topic == "" {
		return
	}
	if p.allowTopic == nil || !p.allowTopic(client, topic) {
		slog.Warn("ws subscribe denied", append(client.logAttrs(), slog.String("topic", topic))...)
		SendError(client, domain.SystemEntity, "subscribe", "topic not allowed")
		return
	}
	p.hub.subscribe(client, topic)
	slog.Debug("ws subscribe", append(client.logAttrs(), slog.String("topic", topic))...)
}

func (p *CommandProcessor) handleUnsubscribe(_ context.Context, client *Client, cmd Command) {
	topic := strings.TrimSpace(cmd.Topic)
	if topic == "" {
		return
	}
	p.hub.unsubscribe(client, topic)
}

func (p *CommandProcessor) handlePing(_ context.Context, client *Client, _ Command) {
	ack := domain.Message{
		Topic:     domain.TopicSystemPong,
		Entity:    domain.SystemEntity,
		Action:    domain.ActionPong,
		Timestamp: time.Now().UTC(),
	}
	client.SendDomainMessage(&ack)
}

// SendError replies on the entity's error topic.
func SendError(client *Client, entity, action, reason string) {
	msg := domain.NewMessage(entity, domain.ActionError, map[string]string{"error": reason}).
		WithMeta("action", action).
		WithMeta(domain.MetaRestaurantID, client.restaurantID)
	client.SendDomainMessage(msg)
}

func normalizeAction(action string) string {
	return strings.ToLower(strings.TrimSpace(action))
}
