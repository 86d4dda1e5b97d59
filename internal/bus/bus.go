// Package bus connects the agent to a websocket message hub as a shard:
// messages addressed to it are answered as turns.
package bus

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	KindText  = "text"
	KindVoice = "voice"
	KindReply = "reply"
	KindError = "error"
)

type Message struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Kind     string `json:"kind"`
	Content  string `json:"content"`
	Audio    []byte `json:"audio,omitempty"`
	Table    int    `json:"table,omitempty"`
	AudioRef string `json:"audio_ref,omitempty"`
}

// Conn is a hub connection that redials after the hub drops it.
type Conn struct {
	url    string
	reconn time.Duration
	log    *slog.Logger

	mu   sync.Mutex // guards writes and conn swaps
	conn *websocket.Conn
}

func Dial(ctx context.Context, url string, reconn time.Duration, logger *slog.Logger) (*Conn, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if reconn <= 0 {
		reconn = time.Second
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	logger.Info("Connected to bus", "url", url)
	return &Conn{url: url, reconn: reconn, log: logger, conn: conn}, nil
}

func (c *Conn) Read() (*Message, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}

	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Conn) Write(m *Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Redial replaces the connection, retrying every reconn until ctx ends.
func (c *Conn) Redial(ctx context.Context) error {
	for {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
		if err == nil {
			c.mu.Lock()
			c.conn.Close()
			c.conn = conn
			c.mu.Unlock()
			c.log.Info("Reconnected to bus", "url", c.url)
			return nil
		}

		c.log.Warn("Bus redial failed", "url", c.url, "err", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.reconn):
		}
	}
}

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return c.conn.Close()
}

func isClosed(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure)
}
