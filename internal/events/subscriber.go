package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Invalidator is the read-side eviction surface the subscriber drives.
type Invalidator interface {
	InvalidateContent(ctx context.Context, contentID int64)
	InvalidateAll(ctx context.Context)
}

// Subscriber consumes invalidation events and evicts cache entries. A bad or
// failing message is logged and skipped; the consumer loop never stops on a
// per-message error.
type Subscriber struct {
	conn        *amqp.Connection
	channel     *amqp.Channel
	queue       string
	invalidator Invalidator
	logger      *slog.Logger
}

type SubscriberConfig struct {
	URL       string
	Exchange  string
	QueueName string
}

func NewSubscriber(cfg SubscriberConfig, invalidator Invalidator, logger *slog.Logger) (*Subscriber, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(cfg.Exchange, "fanout", true, false, false, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(cfg.QueueName, true, false, false, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, "", cfg.Exchange, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	logger.Info("subscribed to invalidation events",
		"exchange", cfg.Exchange,
		"queue", q.Name,
	)

	return &Subscriber{
		conn:        conn,
		channel:     ch,
		queue:       q.Name,
		invalidator: invalidator,
		logger:      logger.With("component", "invalidation_subscriber"),
	}, nil
}

// Run consumes until the context is cancelled or the broker closes the
// delivery channel.
func (s *Subscriber) Run(ctx context.Context) error {
	deliveries, err := s.channel.Consume(s.queue, "", true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-deliveries:
			if !ok {
				return nil
			}
			s.handleMessage(ctx, msg.Body)
		}
	}
}

func (s *Subscriber) handleMessage(ctx context.Context, body []byte) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		s.logger.Error("dropping malformed event", "error", err)
		return
	}

	switch ev.Kind {
	case KindContentUpdated:
		if ev.ContentID == 0 {
			s.logger.Warn("content-updated event without content id")
			return
		}
		s.invalidator.InvalidateContent(ctx, ev.ContentID)
		s.logger.Debug("invalidated content cache",
			"content_id", ev.ContentID,
			"action", ev.Action,
		)
	case KindContentDeleted:
		if ev.ContentID != 0 {
			s.invalidator.InvalidateContent(ctx, ev.ContentID)
		}
		// The shape of any list or search result may have changed.
		s.invalidator.InvalidateAll(ctx)
		s.logger.Debug("invalidated collection caches", "kind", ev.Kind)
	case KindContentBulkUpdated:
		s.invalidator.InvalidateAll(ctx)
		s.logger.Debug("invalidated collection caches", "kind", ev.Kind)
	default:
		s.logger.Warn("ignoring unknown event kind", "kind", ev.Kind)
	}
}

func (s *Subscriber) Close() error {
	if s.channel != nil {
		s.channel.Close()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
