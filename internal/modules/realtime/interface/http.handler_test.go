package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"tableside/internal/modules/realtime/application/usecase"
	"tableside/internal/modules/realtime/infrastructure"
	"tableside/internal/platform/docstore"
	"tableside/internal/platform/docstore/memstore"
)

type frame struct {
	Topic  string         `json:"topic"`
	Action string         `json:"action"`
	Data   map[string]any `json:"data"`
}

func newTableServer(t *testing.T) (*httptest.Server, *infrastructure.Hub) {
	t.Helper()
	store := memstore.New()
	err := store.Write(context.Background(), docstore.Path{Collection: "restaurants", ID: "ABC123"}, map[string]any{"name": "Casa"}, false)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	hub := infrastructure.NewHub()
	e := echo.New()
	e.GET("/ws/restaurants/:rid/tables/:table", NewTableWebsocketHandler(hub, store, 8))
	e.POST("/api/restaurants/:rid/tables/:table/messages", NewTableMessageHandler(usecase.NewBroadcastUseCase(hub), hub))
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv, hub
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var f frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read: %v", err)
	}
	return f
}

func TestTableSocketReceivesTableMessages(t *testing.T) {
	srv, hub := newTableServer(t)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/restaurants/ABC123/tables/3"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if f := readFrame(t, conn); f.Topic != "system.connected" {
		t.Fatalf("first frame = %+v", f)
	}
	if hub.Subscribers("table.ABC123.3") != 1 {
		t.Fatalf("subscribers = %d", hub.Subscribers("table.ABC123.3"))
	}

	resp, err := http.Post(srv.URL+"/api/restaurants/ABC123/tables/3/messages", "application/json", strings.NewReader(`{"message":"Kitchen closes in 10 minutes"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	var body TableMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.StatusCode != http.StatusOK || body.Subscribers != 1 {
		t.Fatalf("status=%d body=%+v", resp.StatusCode, body)
	}

	f := readFrame(t, conn)
	if f.Topic != "table.ABC123.3" || f.Data["notification"] != "Kitchen closes in 10 minutes" {
		t.Fatalf("frame = %+v", f)
	}
}

func TestTableSocketRejectsBadRoutes(t *testing.T) {
	srv, _ := newTableServer(t)
	cases := []struct {
		path   string
		status int
	}{
		{path: "/ws/restaurants/ABC123/tables/zero", status: http.StatusBadRequest},
		{path: "/ws/restaurants/NOPE/tables/3", status: http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tc.path)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tc.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.status)
			}
		})
	}
}

func TestTableMessageRequiresText(t *testing.T) {
	srv, _ := newTableServer(t)
	resp, err := http.Post(srv.URL+"/api/restaurants/ABC123/tables/3/messages", "application/json", strings.NewReader(`{"message":"  "}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}
