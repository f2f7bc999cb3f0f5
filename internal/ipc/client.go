package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/harunnryd/voxd/internal/config"
)

// Client sends one command per connection to a running daemon.
type Client struct {
	socketPath string
	timeout    time.Duration
}

func NewClient(socketPath string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout, _ = config.DurationOrDefault("", config.DefaultIPCClientTimeout)
	}
	return &Client{socketPath: socketPath, timeout: timeout}
}

func (c *Client) Send(ctx context.Context, cmd Command) (Response, error) {
	if cmd.ID == "" {
		fresh := NewCommand(cmd.Type)
		cmd.ID = fresh.ID
		cmd.Timestamp = fresh.Timestamp
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return Response{}, fmt.Errorf("connect to daemon at %s (is `voxd daemon` running?): %w", c.socketPath, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		return Response{}, fmt.Errorf("encode command: %w", err)
	}
	if _, err := conn.Write(append(data, '\n')); err != nil {
		return Response{}, fmt.Errorf("send command: %w", err)
	}

	return readResponse(conn)
}

func readResponse(r io.Reader) (Response, error) {
	line, err := bufio.NewReader(r).ReadBytes('\n')
	if err != nil && len(line) == 0 {
		return Response{}, fmt.Errorf("read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}
