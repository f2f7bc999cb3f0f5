package overlay

import (
	"encoding/json"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/harunnryd/voxd/internal/concurrency"
)

const defaultQueueSize = 32

// SocketNotifier writes one JSON line per notification to a unix socket the
// UI listens on. A single sender goroutine keeps notifications in order.
type SocketNotifier struct {
	path        string
	dialTimeout time.Duration
	queue       chan Notification
	quit        chan struct{}
	done        chan struct{}
	closeOnce   sync.Once
	dropped     atomic.Uint64
	failed      atomic.Uint64
}

func NewSocketNotifier(path string, dialTimeout time.Duration) *SocketNotifier {
	s := &SocketNotifier{
		path:        path,
		dialTimeout: dialTimeout,
		queue:       make(chan Notification, defaultQueueSize),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	concurrency.SafeGo(s.run, nil)
	return s
}

func (s *SocketNotifier) Notify(n Notification) {
	select {
	case <-s.quit:
		return
	default:
	}
	select {
	case s.queue <- n:
	default:
		s.dropped.Add(1)
	}
}

func (s *SocketNotifier) run() {
	defer close(s.done)
	for {
		select {
		case n := <-s.queue:
			if err := s.send(n); err != nil {
				s.failed.Add(1)
				slog.Debug("Overlay notification not delivered", "kind", n.Kind, "path", s.path, "error", err)
			}
		case <-s.quit:
			return
		}
	}
}

func (s *SocketNotifier) send(n Notification) error {
	conn, err := net.DialTimeout("unix", s.path, s.dialTimeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	_ = conn.SetWriteDeadline(time.Now().Add(s.dialTimeout))
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	_, err = conn.Write(append(data, '\n'))
	return err
}

// Close stops the sender. Pending notifications are discarded.
func (s *SocketNotifier) Close() {
	s.closeOnce.Do(func() {
		close(s.quit)
		<-s.done
	})
}

func (s *SocketNotifier) Dropped() uint64 {
	return s.dropped.Load()
}

func (s *SocketNotifier) Failed() uint64 {
	return s.failed.Load()
}
