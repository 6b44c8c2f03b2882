package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mercato-dev/marketcore/internal/domain/event"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// Config describes the RabbitMQ connection and exchange used for order
// notifications.
type Config struct {
	URL        string
	Exchange   string
	RetryCount int
	RetryDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.Exchange == "" {
		c.Exchange = "marketcore.orders"
	}
	if c.RetryCount <= 0 {
		c.RetryCount = 5
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 2 * time.Second
	}
	return c
}

// Publisher delivers domain events to a durable topic exchange. It implements
// event.Publisher; callers treat failures as fire-and-forget.
type Publisher struct {
	cfg  Config
	log  *zap.Logger
	mu   sync.RWMutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewPublisher(cfg Config, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.L()
	}
	return &Publisher{
		cfg: cfg.withDefaults(),
		log: logger.With(zap.String("component", "amqp_publisher")),
	}
}

// Connect dials the broker with retry and declares the topic exchange.
func (p *Publisher) Connect() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	for attempt := 1; attempt <= p.cfg.RetryCount; attempt++ {
		p.conn, err = amqp.Dial(p.cfg.URL)
		if err != nil {
			p.log.Warn("amqp_connect_failed",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", p.cfg.RetryCount),
				zap.Error(err),
			)
			time.Sleep(p.cfg.RetryDelay)
			continue
		}

		p.ch, err = p.conn.Channel()
		if err != nil {
			_ = p.conn.Close()
			return fmt.Errorf("amqp: open channel: %w", err)
		}

		if err := p.ch.ExchangeDeclare(
			p.cfg.Exchange,
			"topic",
			true,  // durable
			false, // auto-delete
			false, // internal
			false, // no-wait
			nil,
		); err != nil {
			_ = p.ch.Close()
			_ = p.conn.Close()
			return fmt.Errorf("amqp: declare exchange: %w", err)
		}

		p.log.Info("amqp_connected", zap.String("exchange", p.cfg.Exchange))
		return nil
	}
	return fmt.Errorf("amqp: connect after %d attempts: %w", p.cfg.RetryCount, err)
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// Publish sends the event as persistent JSON with its name as routing key.
func (p *Publisher) Publish(ctx context.Context, e event.Event) error {
	if e == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.RLock()
	ch := p.ch
	p.mu.RUnlock()
	if ch == nil {
		return fmt.Errorf("amqp: not connected")
	}

	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("amqp: marshal event: %w", err)
	}

	err = ch.Publish(
		p.cfg.Exchange,
		e.EventName(),
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Type:         e.EventName(),
		},
	)
	if err != nil {
		return fmt.Errorf("amqp: publish %s: %w", e.EventName(), err)
	}

	p.log.Debug("event_published", zap.String("event", e.EventName()))
	return nil
}
