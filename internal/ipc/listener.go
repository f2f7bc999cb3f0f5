package ipc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/harunnryd/voxd/internal/concurrency"
	"github.com/harunnryd/voxd/internal/config"
	voxErrors "github.com/harunnryd/voxd/internal/errors"
	"github.com/harunnryd/voxd/internal/logger"
)

// Handler answers one decoded command.
type Handler interface {
	Handle(ctx context.Context, cmd Command) Response
}

type HandlerFunc func(ctx context.Context, cmd Command) Response

func (f HandlerFunc) Handle(ctx context.Context, cmd Command) Response {
	return f(ctx, cmd)
}

type ListenerConfig struct {
	SocketPath      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	MaxMessageBytes int
}

// Listener serves one command per connection on a unix socket.
type Listener struct {
	cfg     ListenerConfig
	handler Handler
	ln      net.Listener
	wg      sync.WaitGroup
	mu      sync.Mutex
	closed  bool
}

// Listen binds the socket. A leftover socket file with nothing behind it is
// removed first; a live one is an error.
func Listen(cfg ListenerConfig, handler Handler) (*Listener, error) {
	if handler == nil {
		return nil, fmt.Errorf("ipc handler not provided")
	}
	if cfg.SocketPath == "" {
		return nil, fmt.Errorf("ipc socket path is empty")
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout, _ = config.DurationOrDefault("", config.DefaultIPCReadTimeout)
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout, _ = config.DurationOrDefault("", config.DefaultIPCWriteTimeout)
	}
	cfg.MaxMessageBytes = config.IntOrDefault(cfg.MaxMessageBytes, config.DefaultIPCMaxMessageBytes)

	if err := os.MkdirAll(filepath.Dir(cfg.SocketPath), 0700); err != nil {
		return nil, fmt.Errorf("create socket dir: %w", err)
	}
	if err := removeStaleSocket(cfg.SocketPath); err != nil {
		return nil, err
	}

	ln, err := net.Listen("unix", cfg.SocketPath)
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", cfg.SocketPath, err)
	}
	if err := os.Chmod(cfg.SocketPath, 0600); err != nil {
		ln.Close()
		return nil, fmt.Errorf("chmod socket: %w", err)
	}

	slog.Info("IPC socket bound", "path", cfg.SocketPath)
	return &Listener{cfg: cfg, handler: handler, ln: ln}, nil
}

func removeStaleSocket(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat socket: %w", err)
	}

	conn, err := net.DialTimeout("unix", path, 200*time.Millisecond)
	if err == nil {
		conn.Close()
		return fmt.Errorf("socket %s is in use by another daemon", path)
	}

	slog.Warn("Removing stale socket", "path", path)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale socket: %w", err)
	}
	return nil
}

func (l *Listener) Addr() string {
	return l.cfg.SocketPath
}

// Serve accepts connections until ctx is cancelled or Close is called.
func (l *Listener) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		l.Close()
	}()

	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if l.isClosed() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return fmt.Errorf("accept: %w", err)
		}

		l.mu.Lock()
		if l.closed {
			l.mu.Unlock()
			conn.Close()
			return nil
		}
		l.wg.Add(1)
		l.mu.Unlock()

		concurrency.SafeGo(func() {
			defer l.wg.Done()
			l.serveConn(ctx, conn)
		}, nil)
	}
}

func (l *Listener) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(l.cfg.ReadTimeout))
	cmd, err := l.readCommand(conn)
	if err != nil {
		slog.Warn("Rejected IPC request", "error", err)
		l.writeResponse(conn, Failure("", err))
		return
	}

	ctx = logger.WithCommand(logger.WithRequestID(ctx, cmd.ID), string(cmd.Type))
	logger.FromContext(ctx).Debug("IPC command received")

	resp := l.handler.Handle(ctx, cmd)
	if resp.ID == "" {
		resp.ID = cmd.ID
	}
	l.writeResponse(conn, resp)
}

func (l *Listener) readCommand(conn net.Conn) (Command, error) {
	// room for the line terminator plus one byte to detect an oversized body
	reader := bufio.NewReader(io.LimitReader(conn, int64(l.cfg.MaxMessageBytes)+3))
	line, err := reader.ReadBytes('\n')
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		if errors.Is(err, io.EOF) {
			return Command{}, voxErrors.InvalidInput("empty request")
		}
		return Command{}, voxErrors.InvalidInput(fmt.Sprintf("read request: %v", err))
	}
	line = bytes.TrimRight(line, "\r\n")
	if len(line) > l.cfg.MaxMessageBytes {
		return Command{}, voxErrors.InvalidInput(fmt.Sprintf("request exceeds %d bytes", l.cfg.MaxMessageBytes))
	}

	var cmd Command
	if err := json.Unmarshal(line, &cmd); err != nil {
		return Command{}, voxErrors.InvalidInput(fmt.Sprintf("decode request: %v", err))
	}
	if cmd.Source == "" {
		cmd.Source = SourceIPC
	}
	return cmd, nil
}

func (l *Listener) writeResponse(conn net.Conn, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		slog.Error("Failed to encode IPC response", "error", err)
		return
	}
	data = append(data, '\n')

	_ = conn.SetWriteDeadline(time.Now().Add(l.cfg.WriteTimeout))
	if _, err := conn.Write(data); err != nil {
		slog.Warn("Failed to write IPC response", "id", resp.ID, "error", err)
	}
}

func (l *Listener) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// Close stops accepting, waits for in-flight connections and removes the socket file.
func (l *Listener) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	err := l.ln.Close()
	l.wg.Wait()
	if rmErr := os.Remove(l.cfg.SocketPath); rmErr != nil && !os.IsNotExist(rmErr) && err == nil {
		err = rmErr
	}
	slog.Info("IPC socket closed", "path", l.cfg.SocketPath)
	return err
}
