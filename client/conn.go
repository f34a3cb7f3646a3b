package client

import (
	"context"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// Conn is one live subscription to the server's event stream.
type Conn struct {
	ws *websocket.Conn
}

// Dial connects to the push channel. baseURL is the server's HTTP base
// (http:// or https://); the session token rides in the query string since
// browser websocket clients cannot set headers.
func Dial(ctx context.Context, baseURL, token string) (*Conn, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "client.Dial")
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/events"
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "client.Dial")
	}
	return &Conn{ws: ws}, nil
}

// Listen feeds every incoming frame to the engine until the connection
// drops or ctx is done.
func (c *Conn) Listen(ctx context.Context, engine *Engine) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = c.ws.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return errors.Wrap(err, "client.Listen")
		}
		if err := engine.HandleEvent(ctx, raw); err != nil {
			return err
		}
	}
}

func (c *Conn) Close() error {
	return c.ws.Close()
}
