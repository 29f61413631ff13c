package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/aura-hud/aura/internal/event"
)

// dialTimeout bounds how long an adapter waits for the daemon socket. The
// hook binary must never hold up the host agent.
const dialTimeout = 2 * time.Second

// Client is a short-lived connection used by adapter processes.
type Client struct {
	conn net.Conn
}

// Dial connects to the daemon socket.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", path, err)
	}
	return &Client{conn: conn}, nil
}

// SendEvents writes each event as its own frame, in order.
func (c *Client) SendEvents(events []event.AgentEvent) error {
	for _, ev := range events {
		data, err := EncodeEventFrame(ev)
		if err != nil {
			return fmt.Errorf("encoding event %s: %w", ev.Type, err)
		}
		if _, err := c.conn.Write(data); err != nil {
			return fmt.Errorf("writing event %s: %w", ev.Type, err)
		}
	}
	return nil
}

// Ping sends a ping frame and waits for the pong.
func (c *Client) Ping() error {
	if _, err := c.conn.Write([]byte(`{"msg":"ping"}` + "\n")); err != nil {
		return fmt.Errorf("writing ping: %w", err)
	}
	c.conn.SetReadDeadline(time.Now().Add(dialTimeout))
	line, err := bufio.NewReader(c.conn).ReadBytes('\n')
	if err != nil {
		return fmt.Errorf("reading pong: %w", err)
	}
	var f frame
	if err := json.Unmarshal(line, &f); err != nil {
		return fmt.Errorf("decoding pong: %w", err)
	}
	if f.Msg != MsgPong {
		return fmt.Errorf("unexpected reply %q", f.Msg)
	}
	return nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
