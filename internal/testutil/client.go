package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/udisondev/dressroom/internal/game/appearance"
	"github.com/udisondev/dressroom/internal/protocol"
)

// ShardClient упрощает integration тесты shard: подключение по websocket,
// отправка конвертов и чтение ответов с таймаутом.
type ShardClient struct {
	t       testing.TB
	conn    *websocket.Conn
	seq     uint64
	timeout time.Duration
}

// DialShard подключается к ws endpoint тестового сервера.
// httpURL — адрес httptest.Server; соединение закрывается через t.Cleanup.
func DialShard(t testing.TB, httpURL string) *ShardClient {
	t.Helper()

	url := "ws" + strings.TrimPrefix(httpURL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, http.Header{})
	if err != nil {
		t.Fatalf("dial shard %s: %v", url, err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	c := &ShardClient{t: t, conn: conn, timeout: 5 * time.Second}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// Close закрывает соединение.
func (c *ShardClient) Close() error {
	return c.conn.Close()
}

// Send отправляет сообщение и возвращает его seq.
func (c *ShardClient) Send(typ string, payload any) uint64 {
	c.t.Helper()
	c.seq++
	raw, err := protocol.Encode(typ, c.seq, payload)
	if err != nil {
		c.t.Fatalf("encoding %s: %v", typ, err)
	}
	c.SendRaw(raw)
	return c.seq
}

// SendAction отправляет action или query (typ) с закодированным действием.
func (c *ShardClient) SendAction(typ string, a appearance.Action) uint64 {
	c.t.Helper()
	raw, err := appearance.EncodeAction(a)
	if err != nil {
		c.t.Fatalf("encoding action: %v", err)
	}
	return c.Send(typ, raw)
}

// SendRaw отправляет произвольный текстовый фрейм.
func (c *ShardClient) SendRaw(raw []byte) {
	c.t.Helper()
	if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		c.t.Fatalf("writing frame: %v", err)
	}
}

// Read читает следующий конверт.
func (c *ShardClient) Read() protocol.Envelope {
	c.t.Helper()
	env, err := c.TryRead()
	if err != nil {
		c.t.Fatalf("reading envelope: %v", err)
	}
	return env
}

// TryRead читает следующий конверт, возвращая ошибку вместо Fatal.
func (c *ShardClient) TryRead() (protocol.Envelope, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return protocol.Envelope{}, err
	}
	_, raw, err := c.conn.ReadMessage()
	if err != nil {
		return protocol.Envelope{}, err
	}
	var env protocol.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return protocol.Envelope{}, fmt.Errorf("decoding envelope %q: %w", raw, err)
	}
	return env, nil
}

// Expect читает конверты, пока не встретит typ, и разбирает его payload в out.
// Конверты других типов пропускаются.
func (c *ShardClient) Expect(typ string, out any) protocol.Envelope {
	c.t.Helper()
	for {
		env := c.Read()
		if env.Type != typ {
			continue
		}
		if out != nil {
			if err := json.Unmarshal(env.Payload, out); err != nil {
				c.t.Fatalf("decoding %s payload: %v", typ, err)
			}
		}
		return env
	}
}

// Join отправляет hello и ждёт welcome.
func (c *ShardClient) Join(hello protocol.Hello) protocol.Welcome {
	c.t.Helper()
	c.Send(protocol.TypeHello, hello)
	var w protocol.Welcome
	env := c.Expect(protocol.TypeWelcome, &w)
	if env.Type != protocol.TypeWelcome {
		c.t.Fatalf("expected welcome, got %s", env.Type)
	}
	return w
}
