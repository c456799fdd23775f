package broker

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"tableside/internal/modules/realtime/domain"
	"tableside/internal/platform/docstore"
)

func TestMessageFromChange(t *testing.T) {
	t.Parallel()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		change docstore.Change
		topic  string
		table  string
	}{
		{
			name: "request update",
			change: docstore.Change{Kind: docstore.OpSet, Path: docstore.Path{Collection: "requests", ID: "r1"},
				Data: map[string]any{"restaurantId": "ABC123", "tableNumber": 2, "resolved": true}},
			topic: "requests.updated",
			table: "2",
		},
		{
			name: "server call delete",
			change: docstore.Change{Kind: docstore.OpDelete, Path: docstore.Path{Collection: "server_calls", ID: "s1"},
				Data: map[string]any{"restaurantId": "ABC123", "tableNumber": float64(4)}},
			topic: "serverCalls.deleted",
			table: "4",
		},
		{
			name: "delete where",
			change: docstore.Change{Kind: docstore.OpDeleteWhere, Path: docstore.Path{Collection: "tables"},
				Data: map[string]any{"restaurantId": "ABC123"}},
			topic: "tables.deleted",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg := MessageFromChange(tc.change, at)
			if msg.Topic != tc.topic {
				t.Fatalf("topic = %q, want %q", msg.Topic, tc.topic)
			}
			if got := msg.Meta(domain.MetaRestaurantID); got != "ABC123" {
				t.Fatalf("restaurant metadata = %q", got)
			}
			if got := msg.Meta(domain.MetaTableNumber); got != tc.table {
				t.Fatalf("table metadata = %q, want %q", got, tc.table)
			}
			if !msg.Timestamp.Equal(at) {
				t.Fatalf("timestamp = %v", msg.Timestamp)
			}
		})
	}
}

func TestDecodeMessageRoundTripsProducerPayload(t *testing.T) {
	t.Parallel()
	change := docstore.Change{Kind: docstore.OpSet, Path: docstore.Path{Collection: "billRequests", ID: "b1"},
		Data: map[string]any{"restaurantId": "ABC123", "tableNumber": 1}}
	value, err := json.Marshal(MessageFromChange(change, time.Now()))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	msg := decodeMessage(kafka.Message{Topic: "tableside.changes", Key: []byte("ABC123"), Value: value})
	if msg.Topic != "billRequests.updated" || msg.ResourceID != "b1" {
		t.Fatalf("decoded = %+v", msg)
	}
	if msg.Meta(domain.MetaTableNumber) != "1" {
		t.Fatalf("metadata = %v", msg.Metadata)
	}
}

func TestDecodeMessageFallsBackToTopic(t *testing.T) {
	t.Parallel()
	msg := decodeMessage(kafka.Message{Topic: "requests.deleted", Key: []byte("ABC123"), Value: []byte("not json")})
	if msg.Entity != "requests" || msg.Action != "deleted" {
		t.Fatalf("entity/action = %s/%s", msg.Entity, msg.Action)
	}
	if msg.Data != "not json" {
		t.Fatalf("data = %v", msg.Data)
	}
}

func TestKnownEntityFiltersForeignCollections(t *testing.T) {
	t.Parallel()
	cases := []struct {
		topic string
		want  bool
	}{
		{"requests.updated", true},
		{"serverCalls.deleted", true},
		{"tables.updated", true},
		{"invoices.updated", false},
		{"", false},
	}
	for _, tc := range cases {
		t.Run(tc.topic, func(t *testing.T) {
			msg := decodeMessage(kafka.Message{Topic: tc.topic, Value: []byte("raw")})
			if got := knownEntity(msg); got != tc.want {
				t.Fatalf("knownEntity(%q) = %v, want %v", msg.Entity, got, tc.want)
			}
		})
	}
	if knownEntity(nil) {
		t.Fatal("nil message accepted")
	}
}

type recordingDispatcher struct {
	mu     sync.Mutex
	topics []string
}

func (d *recordingDispatcher) Dispatch(_ context.Context, msg *domain.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.topics = append(d.topics, msg.Topic)
	return nil
}

func TestLocalFeedDispatchesEveryChange(t *testing.T) {
	t.Parallel()
	dispatcher := &recordingDispatcher{}
	feed := NewLocalFeed(dispatcher)

	feed.Observe(context.Background(), []docstore.Change{
		{Kind: docstore.OpSet, Path: docstore.Path{Collection: "requests", ID: "r1"}},
		{Kind: docstore.OpDelete, Path: docstore.Path{Collection: "billRequests", ID: "b1"}},
	})

	if len(dispatcher.topics) != 2 || dispatcher.topics[0] != "requests.updated" || dispatcher.topics[1] != "billRequests.deleted" {
		t.Fatalf("topics = %v", dispatcher.topics)
	}
}
