package domain

import "time"

// Message is the envelope shared by the change feed and websocket clients.
type Message struct {
	Topic      string            `json:"topic"`
	Entity     string            `json:"entity"`
	Action     string            `json:"action"`
	ResourceID string            `json:"resourceId,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Data       any               `json:"data,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Metadata keys used to narrow delivery in the hub.
const (
	MetaUserID       = "userId"
	MetaSessionID    = "sessionId"
	MetaRestaurantID = "restaurantId"
	MetaTableNumber  = "tableNumber"
)

// NewMessage builds a message for entity/action with the canonical topic.
func NewMessage(entity, action string, data any) *Message {
	return &Message{
		Topic:     CustomTopic(entity, action),
		Entity:    entity,
		Action:    action,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// WithMeta sets a metadata entry, ignoring empty values.
func (m *Message) WithMeta(key, value string) *Message {
	if value == "" {
		return m
	}
	if m.Metadata == nil {
		m.Metadata = make(map[string]string)
	}
	m.Metadata[key] = value
	return m
}

// Meta returns a metadata value or "".
func (m *Message) Meta(key string) string {
	if m == nil || m.Metadata == nil {
		return ""
	}
	return m.Metadata[key]
}
