package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	ws "github.com/coder/websocket"
)

// Notification is a change broadcast by the API after a mutation.
type Notification struct {
	Type   string `json:"type"`
	Entity string `json:"entity"`
	Action string `json:"action"`
	ID     int64  `json:"id,omitempty"`
}

// Watch connects to the API's websocket and calls fn for every calendar
// event notification until ctx ends or the connection drops.
func (c *Client) Watch(ctx context.Context, fn func(Notification)) error {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/ws"

	// The dial is bounded by ctx; a client-wide timeout would cut the
	// long-lived connection.
	opts := &ws.DialOptions{
		HTTPClient: &http.Client{Jar: c.httpClient.Jar, Transport: c.httpClient.Transport},
	}
	if c.username != "" {
		cred := base64.StdEncoding.EncodeToString([]byte(c.username + ":" + c.password))
		opts.HTTPHeader = http.Header{"Authorization": {"Basic " + cred}}
	}

	conn, _, err := ws.Dial(ctx, wsURL, opts)
	if err != nil {
		return fmt.Errorf("dial %s: %w", wsURL, err)
	}
	defer conn.CloseNow()

	c.logger.Info("watching calendar changes", "url", wsURL)
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return fmt.Errorf("read notification: %w", err)
		}
		var n Notification
		if err := json.Unmarshal(data, &n); err != nil {
			c.logger.Warn("malformed notification", "error", err)
			continue
		}
		if n.Entity != "calendar_event" {
			continue
		}
		fn(n)
	}
}
