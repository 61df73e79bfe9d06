// Package events emits session lifecycle events (login, refresh, logout) to Kafka.
// Delivery is best effort and never blocks or fails an auth operation.
package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/prohmpiriya/tenant-auth/pkg/logger"
	"github.com/prohmpiriya/tenant-auth/pkg/retry"
)

// EventType is the kind of session event
type EventType string

const (
	EventLogin   EventType = "session.login"
	EventRefresh EventType = "session.refresh"
	EventLogout  EventType = "session.logout"
)

var (
	ErrQueueFull = errors.New("session event queue full")
	ErrClosed    = errors.New("session event publisher closed")
)

// SessionEvent is the payload written to the session topic, keyed by username
type SessionEvent struct {
	Type       EventType `json:"type"`
	Username   string    `json:"username"`
	TokenID    string    `json:"token_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher accepts session events
type Publisher interface {
	Publish(ctx context.Context, event *SessionEvent) error
	Close()
}

// Producer is the subset of the Kafka producer used here
type Producer interface {
	ProduceJSON(ctx context.Context, topic, key string, data interface{}, headers map[string]string) error
}

// KafkaPublisherConfig configures KafkaPublisher
type KafkaPublisherConfig struct {
	Topic      string
	BufferSize int
	Workers    int
	Retry      *retry.Config
}

// KafkaPublisher queues events and delivers them from a small worker pool
type KafkaPublisher struct {
	producer Producer
	config   KafkaPublisherConfig
	logger   *logger.Logger

	queue  chan *SessionEvent
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// NewKafkaPublisher starts the delivery workers
func NewKafkaPublisher(producer Producer, cfg KafkaPublisherConfig, log *logger.Logger) *KafkaPublisher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1024
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if log == nil {
		log = logger.NewNop()
	}

	p := &KafkaPublisher{
		producer: producer,
		config:   cfg,
		logger:   log.Named("session-events"),
		queue:    make(chan *SessionEvent, cfg.BufferSize),
	}

	for i := 0; i < cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Publish enqueues event without waiting for delivery
func (p *KafkaPublisher) Publish(ctx context.Context, event *SessionEvent) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrClosed
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	select {
	case p.queue <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting events and waits for queued ones to be delivered
func (p *KafkaPublisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *KafkaPublisher) worker() {
	defer p.wg.Done()

	for event := range p.queue {
		p.deliver(event)
	}
}

func (p *KafkaPublisher) deliver(event *SessionEvent) {
	ctx := context.Background()
	headers := map[string]string{"event_type": string(event.Type)}

	err := retry.New(p.config.Retry).
		OnRetry(func(attempt int, err error, wait time.Duration) {
			p.logger.Debug("Retrying session event",
				zap.String("type", string(event.Type)),
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.Error(err),
			)
		}).
		Do(ctx, func(ctx context.Context) error {
			return p.producer.ProduceJSON(ctx, p.config.Topic, event.Username, event, headers)
		})
	if err != nil {
		p.logger.Warn("Dropped session event",
			zap.String("type", string(event.Type)),
			zap.String("username", event.Username),
			zap.Error(err),
		)
	}
}

// NopPublisher discards events; used when Kafka is disabled
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event *SessionEvent) error { return nil }
func (NopPublisher) Close()                                                 {}
