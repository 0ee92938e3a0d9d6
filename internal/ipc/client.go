package ipc

import (
	"encoding/json"
	"fmt"
	"net"
	"sync/atomic"
	"time"
)

// Client is a short-lived connection to the expandd control socket, used
// by expandctl for a single request/response exchange.
type Client struct {
	conn      net.Conn
	nextReqID atomic.Uint32
}

// Dial connects to the daemon listening at socketPath.
func Dial(socketPath string) (*Client, error) {
	conn, err := dial(socketPath)
	if err != nil {
		return nil, fmt.Errorf("ipc: dial: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Request sends a message of the given type with a JSON payload and
// returns the decoded response payload. A MsgError response is turned
// into a Go error.
func (c *Client) Request(msgType MessageType, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("ipc: marshal request: %w", err)
	}

	reqID := c.nextReqID.Add(1)
	req := NewMessage(msgType, reqID, body)
	if err := req.Write(c.conn); err != nil {
		return fmt.Errorf("ipc: write request: %w", err)
	}

	resp, err := ReadMessage(c.conn)
	if err != nil {
		return fmt.Errorf("ipc: read response: %w", err)
	}

	if resp.Header.Type == MsgError {
		var errPayload ErrorPayload
		if err := json.Unmarshal(resp.Payload, &errPayload); err != nil {
			return fmt.Errorf("ipc: daemon returned an error (undecodable body): %w", err)
		}
		return fmt.Errorf("ipc: daemon error: %s", errPayload.Message)
	}

	if out == nil {
		return nil
	}
	if len(resp.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Payload, out); err != nil {
		return fmt.Errorf("ipc: decode response: %w", err)
	}
	return nil
}

// Ping sends a liveness check and measures round-trip time.
func (c *Client) Ping() (time.Duration, error) {
	start := time.Now()
	if err := c.Request(MsgPing, struct{}{}, nil); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}

func errorMessage(requestID uint32, err error) *Message {
	body, _ := json.Marshal(ErrorPayload{Message: err.Error()})
	return NewMessage(MsgError, requestID, body)
}
