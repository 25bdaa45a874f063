package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-sapien/internal/httpc"
	"github.com/teslashibe/go-sapien/internal/log"
)

const (
	// DefaultMasterBuffer is how many notices MasterSink holds before dropping.
	DefaultMasterBuffer = 16
	// DefaultDrainTimeout bounds how long Close keeps delivering queued notices.
	DefaultDrainTimeout = 2 * time.Second
)

// MasterSink POSTs each notice as JSON to the master process. Delivery runs
// on its own goroutine; when the buffer is full new notices are dropped.
type MasterSink struct {
	url    string
	client *http.Client
	logger *slog.Logger
	drain  time.Duration

	queue  chan Notice
	done   chan struct{} // closed by Close
	exited chan struct{} // closed when loop returns
	once   sync.Once

	ctx    context.Context // cancelled when the drain deadline passes
	cancel context.CancelFunc

	sent    atomic.Uint64
	failed  atomic.Uint64
	dropped atomic.Uint64
}

// MasterOption configures a MasterSink.
type MasterOption func(*MasterSink)

// WithHTTPClient overrides the shared httpc client.
func WithHTTPClient(c *http.Client) MasterOption {
	return func(s *MasterSink) { s.client = c }
}

// WithBuffer sets the queue depth.
func WithBuffer(n int) MasterOption {
	return func(s *MasterSink) {
		if n > 0 {
			s.queue = make(chan Notice, n)
		}
	}
}

// WithDrainTimeout overrides DefaultDrainTimeout.
func WithDrainTimeout(d time.Duration) MasterOption {
	return func(s *MasterSink) { s.drain = d }
}

// WithMasterLogger sets the logger.
func WithMasterLogger(l *slog.Logger) MasterOption {
	return func(s *MasterSink) { s.logger = l }
}

// NewMasterSink starts a sink delivering to url. Call Close to stop it.
func NewMasterSink(url string, opts ...MasterOption) *MasterSink {
	s := &MasterSink{
		url:    url,
		client: httpc.NewClient(3 * time.Second),
		drain:  DefaultDrainTimeout,
		queue:  make(chan Notice, DefaultMasterBuffer),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.Component("notify.master")
	}
	go s.loop()
	return s
}

// Notify implements Sink.
func (s *MasterSink) Notify(n Notice) {
	select {
	case <-s.done:
		s.dropped.Add(1)
		return
	default:
	}
	select {
	case s.queue <- n:
	default:
		if s.dropped.Add(1)%10 == 1 {
			s.logger.Warn("master queue full, dropping notification", "event", n.Event, "dropped", s.dropped.Load())
		}
	}
}

func (s *MasterSink) loop() {
	defer close(s.exited)
	for {
		select {
		case <-s.done:
			s.flush()
			return
		case n := <-s.queue:
			s.send(n)
		}
	}
}

// flush delivers what is still queued until the drain deadline cancels
// s.ctx; anything left after that is counted as dropped.
func (s *MasterSink) flush() {
	for {
		select {
		case n := <-s.queue:
			if s.ctx.Err() != nil {
				s.dropped.Add(1)
				continue
			}
			s.send(n)
		default:
			return
		}
	}
}

func (s *MasterSink) send(n Notice) {
	if err := s.deliver(n); err != nil {
		s.failed.Add(1)
		s.logger.Warn("master notification failed", "event", n.Event, "err", err)
		return
	}
	s.sent.Add(1)
}

func (s *MasterSink) deliver(n Notice) error {
	if err := httpc.DoJSON(s.ctx, s.client, http.MethodPost, s.url, n, nil); err != nil {
		return fmt.Errorf("notify: master: %w", err)
	}
	return nil
}

// Stats returns delivered, failed and dropped counts.
func (s *MasterSink) Stats() (sent, failed, dropped uint64) {
	return s.sent.Load(), s.failed.Load(), s.dropped.Load()
}

// Close stops accepting notices and delivers the ones already queued, giving
// up once the drain timeout has passed.
func (s *MasterSink) Close() error {
	s.once.Do(func() {
		close(s.done)
		timer := time.AfterFunc(s.drain, s.cancel)
		<-s.exited
		timer.Stop()
		s.cancel()
	})
	<-s.exited
	return nil
}
