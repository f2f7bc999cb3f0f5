package main

import (
	"context"
	"fmt"

	"github.com/harunnryd/voxd/internal/config"
	"github.com/harunnryd/voxd/internal/ipc"
)

// send delivers one command to the running daemon. A response with ok=false
// becomes an error so the process exits non-zero.
func send(ctx context.Context, cmd ipc.Command) (ipc.Response, error) {
	if cfg == nil {
		return ipc.Response{}, fmt.Errorf("config not loaded")
	}

	timeout, err := config.DurationOrDefault(cfg.IPC.ClientTimeout, config.DefaultIPCClientTimeout)
	if err != nil {
		return ipc.Response{}, fmt.Errorf("parse ipc client timeout: %w", err)
	}

	resp, err := ipc.NewClient(cfg.IPC.SocketPath, timeout).Send(ctx, cmd)
	if err != nil {
		return ipc.Response{}, err
	}
	if !resp.OK {
		return resp, responseError(resp)
	}
	return resp, nil
}

func responseError(resp ipc.Response) error {
	if resp.ErrorKind == "" {
		return fmt.Errorf("%s", resp.Message)
	}
	return fmt.Errorf("%s [%s]", resp.Message, resp.ErrorKind)
}

// sendAndPrint is the common path for commands whose only output is the message.
func sendAndPrint(ctx context.Context, cmd ipc.Command) error {
	resp, err := send(ctx, cmd)
	if err != nil {
		return err
	}
	fmt.Printf("✓ %s\n", resp.Message)
	return nil
}
