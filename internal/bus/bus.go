// Package bus streams dialogue events to a websocket hub.
package bus

import (
	"context"
	"encoding/json"
	log "log/slog"
	"net/url"
	"time"

	ws "github.com/gorilla/websocket"

	"sagar/internal/assistant"
)

const queueSize = 64

type Message struct {
	From    string    `json:"from"`
	Kind    string    `json:"kind"`
	Mode    string    `json:"mode"`
	Content string    `json:"content,omitempty"`
	At      time.Time `json:"at"`
}

// Bus implements assistant.Observer. Observe never blocks: events are queued
// and written by Run, and dropped when the queue is full.
type Bus struct {
	url    string
	from   string
	reconn time.Duration
	queue  chan Message
	conn   *ws.Conn
}

func New(wsURL, from string, reconn time.Duration) (*Bus, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, err
	}
	if reconn <= 0 {
		reconn = time.Second
	}

	return &Bus{
		url:    u.String(),
		from:   from,
		reconn: reconn,
		queue:  make(chan Message, queueSize),
	}, nil
}

func (b *Bus) Observe(e assistant.Event) {
	m := Message{
		From:    b.from,
		Kind:    string(e.Kind),
		Mode:    e.Mode,
		Content: e.Text,
		At:      e.At,
	}

	select {
	case b.queue <- m:
	default:
		log.Warn("Bus queue full, dropping event", "kind", m.Kind)
	}
}

// Run delivers queued events until ctx is done. A failed write drops the
// connection; the next event redials first, retrying every reconn.
func (b *Bus) Run(ctx context.Context) {
	defer b.disconnect()

	for {
		select {
		case <-ctx.Done():
			return
		case m := <-b.queue:
			b.deliver(ctx, m)
		}
	}
}

func (b *Bus) deliver(ctx context.Context, m Message) {
	payload, err := json.Marshal(m)
	if err != nil {
		log.Error("Failed to encode bus message", "err", err)
		return
	}

	for {
		if b.conn == nil && !b.tryReconn(ctx) {
			return
		}

		err := b.conn.WriteMessage(ws.TextMessage, payload)
		if err == nil {
			log.Debug("Write bus", "msg", string(payload))
			return
		}

		log.Warn("Bus write failed", "err", err)
		b.disconnect()
	}
}

// tryReconn dials until it succeeds or ctx is done.
func (b *Bus) tryReconn(ctx context.Context) bool {
	for {
		conn, _, err := ws.DefaultDialer.DialContext(ctx, b.url, nil)
		if err == nil {
			log.Info("Connected to bus", "url", b.url)
			b.conn = conn
			return true
		}
		log.Debug("Bus dial failed", "url", b.url, "err", err)

		select {
		case <-ctx.Done():
			return false
		case <-time.After(b.reconn):
		}
	}
}

func (b *Bus) disconnect() {
	if b.conn == nil {
		return
	}
	_ = b.conn.WriteMessage(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, ""))
	b.conn.Close()
	b.conn = nil
}
