package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-sapien/internal/log"
	backend "github.com/redis/go-redis/v9"
)

// Redis defaults.
const (
	DefaultChannel = "sapien:events" // channel notices are published on
	DefaultHistory = 100             // notices kept in <channel>:history
)

// RedisSink publishes each notice as JSON on a Redis channel and keeps a
// capped history list next to it (<channel>:history).
type RedisSink struct {
	client  *backend.Client
	channel string
	keep    int64
	logger  *slog.Logger

	queue chan Notice
	done  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
}

// RedisOption configures a RedisSink.
type RedisOption func(*RedisSink)

// WithChannel overrides DefaultChannel.
func WithChannel(ch string) RedisOption {
	return func(s *RedisSink) {
		if ch != "" {
			s.channel = ch
		}
	}
}

// WithHistory sets how many notices the history list keeps. 0 disables it.
func WithHistory(n int) RedisOption {
	return func(s *RedisSink) { s.keep = int64(n) }
}

// WithRedisLogger sets the logger.
func WithRedisLogger(l *slog.Logger) RedisOption {
	return func(s *RedisSink) { s.logger = l }
}

// NewRedisSink connects to addr and starts publishing.
func NewRedisSink(addr, password string, db int, opts ...RedisOption) *RedisSink {
	return NewRedisSinkFromClient(backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}), opts...)
}

// NewRedisSinkFromClient publishes through an existing client.
func NewRedisSinkFromClient(client *backend.Client, opts ...RedisOption) *RedisSink {
	s := &RedisSink{
		client:  client,
		channel: DefaultChannel,
		keep:    DefaultHistory,
		queue:   make(chan Notice, DefaultMasterBuffer),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.Component("notify.redis")
	}
	s.wg.Add(1)
	go s.loop()
	return s
}

// Notify implements Sink.
func (s *RedisSink) Notify(n Notice) {
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.queue <- n:
	default:
		s.logger.Warn("redis queue full, dropping notification", "event", n.Event)
	}
}

func (s *RedisSink) loop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case n := <-s.queue:
			if err := s.publish(n); err != nil {
				s.logger.Warn("redis publish failed", "event", n.Event, "err", err)
			}
		}
	}
}

func (s *RedisSink) historyKey() string {
	return s.channel + ":history"
}

func (s *RedisSink) publish(n Notice) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	pipe := s.client.Pipeline()
	pipe.Publish(ctx, s.channel, data)
	if s.keep > 0 {
		pipe.LPush(ctx, s.historyKey(), data)
		pipe.LTrim(ctx, s.historyKey(), 0, s.keep-1)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// Recent returns up to n notices from the history list, newest first.
func (s *RedisSink) Recent(ctx context.Context, n int) ([]Notice, error) {
	if n <= 0 {
		return nil, nil
	}
	raw, err := s.client.LRange(ctx, s.historyKey(), 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Notice, 0, len(raw))
	for _, r := range raw {
		var notice Notice
		if err := json.Unmarshal([]byte(r), &notice); err != nil {
			return nil, err
		}
		out = append(out, notice)
	}
	return out, nil
}

// Close stops publishing and closes the client.
func (s *RedisSink) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		s.wg.Wait()
		err = s.client.Close()
	})
	return err
}
