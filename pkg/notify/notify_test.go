package notify

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestBlockAppliedJSONShape(t *testing.T) {
	body, err := json.Marshal(BlockApplied{Chain: "regtest", Height: 42})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded BlockApplied
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Chain != "regtest" || decoded.Height != 42 {
		t.Fatalf("unexpected round trip: %+v", decoded)
	}
}

func TestBroadcastReachesConnectedClient(t *testing.T) {
	n := &Notifier{
		channel: "blocks",
		clients: make(map[*client]struct{}),
	}
	n.upgrader = websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096}

	srv := httptest.NewServer(n.Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Give the server goroutine time to register the client.
	time.Sleep(50 * time.Millisecond)

	n.broadcast([]byte(`{"chain":"regtest","height":7}`))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read message: %v", err)
	}
	var got BlockApplied
	if err := json.Unmarshal(msg, &got); err != nil {
		t.Fatalf("unmarshal broadcast: %v", err)
	}
	if got.Chain != "regtest" || got.Height != 7 {
		t.Fatalf("unexpected broadcast payload: %+v", got)
	}
}
