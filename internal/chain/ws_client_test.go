package chain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

// headServer confirms one newHeads subscription and pushes numbers as heads.
func headServer(t *testing.T, numbers ...uint64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer c.Close()

		var req rpcRequest
		if err := c.ReadJSON(&req); err != nil {
			return
		}
		if req.Method != "eth_subscribe" {
			t.Errorf("expected eth_subscribe, got %s", req.Method)
		}

		if err := c.WriteJSON(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  "0xsub1",
		}); err != nil {
			return
		}

		time.Sleep(20 * time.Millisecond)
		for _, n := range numbers {
			result, _ := json.Marshal(map[string]string{
				"number":    "0x" + strconv.FormatUint(n, 16),
				"timestamp": "0x10",
				"hash":      "0x00000000000000000000000000000000000000000000000000000000000000bb",
			})
			c.WriteJSON(map[string]interface{}{
				"jsonrpc": "2.0",
				"method":  "eth_subscription",
				"params": map[string]interface{}{
					"subscription": "0xsub1",
					"result":       json.RawMessage(result),
				},
			})
		}

		// Keep connection open
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func TestWSClient_SubscribeHeads(t *testing.T) {
	server := headServer(t, 100, 101)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := NewWSClient(ctx, wsURL, nil, quietLogger())
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	heads, err := client.SubscribeHeads(ctx)
	if err != nil {
		t.Fatalf("SubscribeHeads: %v", err)
	}

	for _, want := range []uint64{100, 101} {
		select {
		case h := <-heads:
			if h.Number != want {
				t.Errorf("expected head %d, got %d", want, h.Number)
			}
			if h.Timestamp != 16 {
				t.Errorf("expected timestamp 16, got %d", h.Timestamp)
			}
		case <-ctx.Done():
			t.Fatalf("timeout waiting for head %d", want)
		}
	}
}

func TestWSClient_CloseClosesSubscriptions(t *testing.T) {
	server := headServer(t)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := NewWSClient(ctx, wsURL, nil, quietLogger())
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}

	heads, err := client.SubscribeHeads(ctx)
	if err != nil {
		t.Fatalf("SubscribeHeads: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	select {
	case _, ok := <-heads:
		if ok {
			t.Error("expected closed channel")
		}
	case <-ctx.Done():
		t.Fatal("channel not closed")
	}

	if _, err := client.SubscribeHeads(ctx); err != ErrClientClosed {
		t.Errorf("expected ErrClientClosed, got %v", err)
	}
}

func TestWSClient_DialFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewWSClient(ctx, "ws://127.0.0.1:1", nil, quietLogger())
	if err == nil {
		t.Fatal("expected dial error")
	}
}
