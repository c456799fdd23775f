package infrastructure

import (
	"context"
	"encoding/json"
	"testing"

	"tableside/internal/modules/realtime/domain"
)

func drain(c *Client) []domain.Message {
	var out []domain.Message
	for {
		select {
		case data := <-c.send:
			var msg domain.Message
			if err := json.Unmarshal(data, &msg); err == nil {
				out = append(out, msg)
			}
		default:
			return out
		}
	}
}

func TestHubBroadcastFiltersByMetadata(t *testing.T) {
	t.Parallel()
	hub := NewHub()
	abc := NewClient(hub, nil, ClientInfo{UserID: "m1", SessionID: "s1", RestaurantID: "ABC123", Role: "dashboard"}, 8, nil)
	zzz := NewClient(hub, nil, ClientInfo{UserID: "m2", SessionID: "s2", RestaurantID: "ZZZ999", Role: "dashboard"}, 8, nil)
	hub.AttachClient(abc, []string{"shared"})
	hub.AttachClient(zzz, []string{"shared"})

	for _, msg := range []*domain.Message{
		domain.NewMessage("shared", "x", nil).WithMeta(domain.MetaRestaurantID, "ABC123"),
		domain.NewMessage("shared", "x", nil),
		domain.NewMessage("shared", "x", nil).WithMeta(domain.MetaUserID, "m2"),
	} {
		msg.Topic = "shared"
		hub.Broadcast(context.Background(), msg)
	}

	if got := len(drain(abc)); got != 2 {
		t.Fatalf("abc received %d, want 2", got)
	}
	if got := len(drain(zzz)); got != 2 {
		t.Fatalf("zzz received %d, want 2", got)
	}
}

func TestHubReplacesClientWithSameKey(t *testing.T) {
	t.Parallel()
	hub := NewHub()
	info := ClientInfo{UserID: "m1", SessionID: "s1", RestaurantID: "ABC123", Role: "dashboard"}
	first := NewClient(hub, nil, info, 8, nil)
	closed := make(chan struct{}, 1)
	first.AddCloseHook(func(*Client) { closed <- struct{}{} })
	hub.AttachClient(first, []string{"dashboard.ABC123"})

	second := NewClient(hub, nil, info, 8, nil)
	hub.AttachClient(second, []string{"dashboard.ABC123"})

	select {
	case <-closed:
	default:
		t.Fatal("replaced client close hook not invoked")
	}
	if got := hub.Subscribers("dashboard.ABC123"); got != 1 {
		t.Fatalf("subscribers = %d, want 1", got)
	}
}

func TestHubDetachRunsHooksOnce(t *testing.T) {
	t.Parallel()
	hub := NewHub()
	client := NewClient(hub, nil, ClientInfo{UserID: "u", SessionID: "s", Role: "customer"}, 1, nil)
	calls := 0
	client.AddCloseHook(func(c *Client) {
		calls++
		hub.Subscribers("t")
	})
	hub.AttachClient(client, []string{"t"})

	hub.Detach(client)
	hub.Detach(client)
	if calls != 1 {
		t.Fatalf("close hook calls = %d, want 1", calls)
	}
	if hub.Subscribers("t") != 0 {
		t.Fatal("client still subscribed")
	}
}

func TestCommandProcessorGuardsSubscriptions(t *testing.T) {
	t.Parallel()
	hub := NewHub()
	client := NewClient(hub, nil, ClientInfo{UserID: "u", SessionID: "s", RestaurantID: "ABC123", Role: "dashboard"}, 8, nil)
	hub.AttachClient(client, nil)
	client.Commands().AllowTopics(func(_ *Client, topic string) bool { return topic == "restaurant.ABC123" })

	client.Commands().Process(client, Command{Action: "subscribe", Topic: "restaurant.ZZZ999"})
	client.Commands().Process(client, Command{Action: "SUBSCRIBE", Topic: "restaurant.ABC123"})
	client.Commands().Process(client, Command{Action: "ping"})

	if hub.Subscribers("restaurant.ABC123") != 1 || hub.Subscribers("restaurant.ZZZ999") != 0 {
		t.Fatal("subscription guard not applied")
	}
	msgs := drain(client)
	if len(msgs) != 2 || msgs[0].Topic != "system.error" || msgs[1].Topic != domain.TopicSystemPong {
		t.Fatalf("messages = %+v", msgs)
	}
}
