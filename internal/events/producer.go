package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
)

var (
	// ErrInboxFull is returned when the producer buffer cannot take more messages.
	ErrInboxFull = errors.New("events: producer inbox full")
	// ErrClosed is returned by Publish after Close.
	ErrClosed = errors.New("events: producer closed")
)

// MessageWriter is the part of *kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer buffers envelopes and writes them from one goroutine so
// publishing never blocks a ledger operation.
type Producer struct {
	w       MessageWriter
	logger  *slog.Logger
	inbox   chan kafka.Message
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
	started atomic.Bool
}

// NewKafkaWriter builds the writer for topic.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
}

// NewProducer wraps w with a buffer of size buf.
func NewProducer(w MessageWriter, buf int, logger *slog.Logger) *Producer {
	if buf <= 0 {
		buf = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Producer{
		w:      w,
		logger: logger,
		inbox:  make(chan kafka.Message, buf),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start runs the writer loop until ctx is cancelled or Close is called.
// Buffered messages are flushed before the writer closes.
func (p *Producer) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(p.done)
		for {
			select {
			case <-ctx.Done():
				p.drain()
				return
			case <-p.stop:
				p.drain()
				return
			case m := <-p.inbox:
				p.write(m)
			}
		}
	}()
}

// Publish queues env keyed by its correlation id.
func (p *Producer) Publish(_ context.Context, env Envelope) error {
	select {
	case <-p.stop:
		return ErrClosed
	default:
	}
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("events: marshal envelope: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(env.CorrelationID),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(env.EventType)},
		},
	}
	select {
	case p.inbox <- msg:
		return nil
	default:
		return ErrInboxFull
	}
}

// Close stops the loop and waits for the flush.
func (p *Producer) Close() {
	p.once.Do(func() { close(p.stop) })
	if p.started.Load() {
		<-p.done
		return
	}
	p.drain()
}

func (p *Producer) drain() {
	for {
		select {
		case m := <-p.inbox:
			p.write(m)
		default:
			if err := p.w.Close(); err != nil {
				p.logger.Warn("kafka writer close", slog.Any("error", err))
			}
			return
		}
	}
}

func (p *Producer) write(m kafka.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.w.WriteMessages(ctx, m); err != nil {
		p.logger.Error("kafka publish failed",
			slog.String("key", string(m.Key)),
			slog.Any("error", err))
	}
}
