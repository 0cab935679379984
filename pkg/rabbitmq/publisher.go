// Package rabbitmq publishes outbox events to a durable fanout exchange.
package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/angelmondragon/restaurant-backend/pkg/config"
	"github.com/angelmondragon/restaurant-backend/pkg/logger"
	"github.com/angelmondragon/restaurant-backend/pkg/outbox/broker"
)

const (
	dialAttempts = 5
	confirmWait  = 10 * time.Second
)

type channel interface {
	PublishWithDeferredConfirmWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) (*amqp.DeferredConfirmation, error)
	IsClosed() bool
	Close() error
}

// Publisher owns one connection and one confirm-mode channel.
type Publisher struct {
	url      string
	exchange string
	logg     *logger.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   channel
}

// NewPublisher dials RabbitMQ with retries and declares the exchange.
func NewPublisher(ctx context.Context, cfg config.RabbitMQConfig, logg *logger.Logger) (*Publisher, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq url is required")
	}
	if strings.TrimSpace(cfg.Exchange) == "" {
		return nil, errors.New("rabbitmq exchange is required")
	}
	p := &Publisher{url: cfg.URL, exchange: cfg.Exchange, logg: logg}
	if err := p.connect(ctx); err != nil {
		return nil, err
	}
	if logg != nil {
		logg.Info(ctx, "rabbitmq publisher initialized")
	}
	return p, nil
}

func (p *Publisher) connect(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= dialAttempts; attempt++ {
		conn, err := amqp.Dial(p.url)
		if err == nil {
			ch, chErr := setupChannel(conn, p.exchange)
			if chErr == nil {
				p.conn = conn
				p.ch = ch
				return nil
			}
			_ = conn.Close()
			err = chErr
		}
		lastErr = err
		if attempt == dialAttempts {
			break
		}
		wait := time.Duration(attempt) * 2 * time.Second
		if p.logg != nil {
			p.logg.Warn(p.logg.WithField(ctx, "retry_in", wait.String()), "rabbitmq connection failed")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("connect rabbitmq after %d attempts: %w", dialAttempts, lastErr)
}

func setupChannel(conn *amqp.Connection, exchange string) (*amqp.Channel, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("enable confirms: %w", err)
	}
	return ch, nil
}

// Publish sends a persistent message and waits for the broker confirm. The
// event type doubles as the routing key for consumers that bind by header.
func (p *Publisher) Publish(ctx context.Context, msg broker.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil || p.ch.IsClosed() {
		if p.url == "" {
			return errors.New("rabbitmq channel closed")
		}
		if err := p.connect(ctx); err != nil {
			return fmt.Errorf("reconnect: %w", err)
		}
	}

	headers := amqp.Table{}
	for k, v := range msg.Attributes {
		headers[k] = v
	}
	publishing := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.Attributes["event_id"],
		Type:         msg.Attributes["event_type"],
		Timestamp:    time.Now().UTC(),
		Headers:      headers,
		Body:         msg.Data,
	}

	confirmCtx, cancel := context.WithTimeout(ctx, confirmWait)
	defer cancel()
	confirm, err := p.ch.PublishWithDeferredConfirmWithContext(confirmCtx, p.exchange, msg.Attributes["event_type"], false, false, publishing)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", p.exchange, err)
	}
	if confirm == nil {
		return nil
	}
	acked, err := confirm.WaitContext(confirmCtx)
	if err != nil {
		return fmt.Errorf("await confirm: %w", err)
	}
	if !acked {
		return fmt.Errorf("broker nacked message %s", publishing.MessageId)
	}
	return nil
}

// Ping reports whether the channel is usable.
func (p *Publisher) Ping(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil || p.ch.IsClosed() {
		return errors.New("rabbitmq channel closed")
	}
	return nil
}

// Close shuts the channel then the connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	if p.ch != nil {
		if err := p.ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
