package bus

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sagar/internal/assistant"
)

// hub accepts websocket connections and forwards every text frame to got.
func hub(t *testing.T, got chan<- Message) *httptest.Server {
	t.Helper()
	upgrader := ws.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var m Message
			if json.Unmarshal(data, &m) == nil {
				got <- m
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func receive(t *testing.T, got <-chan Message) Message {
	t.Helper()
	select {
	case m := <-got:
		return m
	case <-time.After(3 * time.Second):
		t.Fatal("no message on the hub")
		return Message{}
	}
}

func TestBus_DeliversEvents(t *testing.T) {
	got := make(chan Message, 4)
	srv := hub(t, got)

	b, err := New(wsURL(srv), "sagar", 10*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	b.Observe(assistant.Event{Kind: assistant.EventHeard, Mode: "active", Text: "open google", At: at})
	b.Observe(assistant.Event{Kind: assistant.EventMode, Mode: "waiting", At: at})

	m := receive(t, got)
	assert.Equal(t, "sagar", m.From)
	assert.Equal(t, "heard", m.Kind)
	assert.Equal(t, "active", m.Mode)
	assert.Equal(t, "open google", m.Content)
	assert.True(t, at.Equal(m.At))

	m = receive(t, got)
	assert.Equal(t, "mode", m.Kind)
	assert.Equal(t, "waiting", m.Mode)
}

func TestBus_RedialsUntilHubIsUp(t *testing.T) {
	got := make(chan Message, 1)
	upstream := hub(t, got)

	var ready atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !ready.Load() {
			http.Error(w, "not yet", http.StatusServiceUnavailable)
			return
		}
		upstream.Config.Handler.ServeHTTP(w, r)
	}))
	defer srv.Close()

	b, err := New(wsURL(srv), "sagar", 20*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	b.Observe(assistant.Event{Kind: assistant.EventWake, Mode: "waiting"})
	time.AfterFunc(100*time.Millisecond, func() { ready.Store(true) })

	assert.Equal(t, "wake", receive(t, got).Kind)
}

func TestBus_ObserveNeverBlocks(t *testing.T) {
	b, err := New("ws://127.0.0.1:1/", "sagar", time.Second)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		for i := 0; i < queueSize*2; i++ {
			b.Observe(assistant.Event{Kind: assistant.EventReply})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Observe blocked without a running bus")
	}
	assert.Len(t, b.queue, queueSize)
}

func TestBus_StopsWithContext(t *testing.T) {
	b, err := New("ws://127.0.0.1:1/", "sagar", 10*time.Millisecond)
	require.NoError(t, err)
	b.Observe(assistant.Event{Kind: assistant.EventReply})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run ignored the canceled context")
	}
}
