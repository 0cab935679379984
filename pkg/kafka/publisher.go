// Package kafka publishes outbox events through a kafka-go Writer.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/angelmondragon/restaurant-backend/pkg/config"
	"github.com/angelmondragon/restaurant-backend/pkg/logger"
	"github.com/angelmondragon/restaurant-backend/pkg/outbox/broker"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type dialFunc func(ctx context.Context, network, address string) (io.Closer, error)

// Publisher writes messages synchronously so the outbox row is only marked
// published after every in-sync replica has acked.
type Publisher struct {
	writer  messageWriter
	brokers []string
	dial    dialFunc
}

// NewPublisher builds a writer keyed by aggregate id with hash balancing.
func NewPublisher(ctx context.Context, cfg config.KafkaConfig, logg *logger.Logger) (*Publisher, error) {
	brokers := make([]string, 0, len(cfg.Brokers))
	for _, b := range cfg.Brokers {
		if trimmed := strings.TrimSpace(b); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: false,
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           10 * time.Second,
	}
	dialer := &kafka.Dialer{Timeout: 5 * time.Second}
	dial := func(ctx context.Context, network, address string) (io.Closer, error) {
		return dialer.DialContext(ctx, network, address)
	}
	if logg != nil {
		logg.Info(ctx, "kafka publisher initialized")
	}
	return &Publisher{writer: writer, brokers: brokers, dial: dial}, nil
}

// Publish writes one message to msg.Topic.
func (p *Publisher) Publish(ctx context.Context, msg broker.Message) error {
	if msg.Topic == "" {
		return errors.New("kafka topic required")
	}
	headers := make([]kafka.Header, 0, len(msg.Attributes))
	for k, v := range msg.Attributes {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic:   msg.Topic,
		Key:     []byte(msg.Key),
		Value:   msg.Data,
		Headers: headers,
		Time:    time.Now().UTC(),
	})
	if err != nil {
		return classifyWriteErr(fmt.Errorf("write kafka message: %w", err))
	}
	return nil
}

// classifyWriteErr marks broker answers that a retry cannot change.
func classifyWriteErr(err error) error {
	var kerr kafka.Error
	if !errors.As(err, &kerr) {
		return err
	}
	switch kerr {
	case kafka.MessageSizeTooLarge, kafka.InvalidTopic, kafka.TopicAuthorizationFailed, kafka.InvalidMessage:
		return broker.Permanent(err)
	}
	return err
}

// Ping dials the first reachable broker.
func (p *Publisher) Ping(ctx context.Context) error {
	var lastErr error
	for _, addr := range p.brokers {
		conn, err := p.dial(ctx, "tcp", addr)
		if err == nil {
			return conn.Close()
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("no kafka brokers configured")
	}
	return fmt.Errorf("kafka ping: %w", lastErr)
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
