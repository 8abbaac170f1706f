package queue

import (
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/seu-repo/voxa-cobranza/pkg/config"
)

// RabbitMQQueue publishes every subject as a routing key on one topic exchange
type RabbitMQQueue struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	url      string
	exchange string
	mu       sync.RWMutex
	closed   bool
	done     chan struct{}
	log      *zap.Logger
}

const (
	reconnectMin = time.Second
	reconnectMax = 30 * time.Second
)

// NewRabbitMQQueue creates a new RabbitMQ message queue adapter
func NewRabbitMQQueue(cfg config.RabbitMQConfig, log *zap.Logger) (*RabbitMQQueue, error) {
	exchange := cfg.Exchange
	if exchange == "" {
		exchange = "voxa.calls"
	}

	conn, ch, err := dial(cfg.URL, exchange)
	if err != nil {
		return nil, err
	}

	q := &RabbitMQQueue{
		conn:     conn,
		channel:  ch,
		url:      cfg.URL,
		exchange: exchange,
		done:     make(chan struct{}),
		log:      log,
	}

	go q.supervise()

	log.Info("Successfully connected to RabbitMQ", zap.String("exchange", exchange))
	return q, nil
}

func dial(url, exchange string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("rabbitmq: declare exchange: %w", err)
	}
	return conn, ch, nil
}

func (q *RabbitMQQueue) Publish(subject string, data []byte) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.channel == nil {
		return fmt.Errorf("rabbitmq: channel not available")
	}

	err := q.channel.Publish(
		q.exchange, subject, false, false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        data,
			Timestamp:   time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("rabbitmq: publish: %w", err)
	}

	return nil
}

func (q *RabbitMQQueue) Subscribe(subject string, handler func(data []byte) error) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.channel == nil {
		return fmt.Errorf("rabbitmq: channel not available")
	}

	queue, err := q.channel.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq: declare queue: %w", err)
	}

	if err := q.channel.QueueBind(queue.Name, subject, q.exchange, false, nil); err != nil {
		return fmt.Errorf("rabbitmq: bind queue: %w", err)
	}

	msgs, err := q.channel.Consume(queue.Name, "", true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq: consume: %w", err)
	}

	go func() {
		for msg := range msgs {
			if err := handler(msg.Body); err != nil {
				q.log.Error("Error processing RabbitMQ message",
					zap.String("routing_key", subject),
					zap.Error(err),
				)
			}
		}
	}()

	q.log.Info("Subscribed to RabbitMQ subject", zap.String("routing_key", subject))
	return nil
}

// Close stops the reconnect loop and closes the broker connection.
func (q *RabbitMQQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.done)

	if q.channel != nil {
		q.channel.Close()
	}
	return q.conn.Close()
}

// supervise redials with a doubling delay, capped at reconnectMax, whenever
// the connection drops. Subscriptions are not restored.
func (q *RabbitMQQueue) supervise() {
	for {
		q.mu.RLock()
		lost := q.conn.NotifyClose(make(chan *amqp.Error, 1))
		q.mu.RUnlock()

		select {
		case <-q.done:
			return
		case reason, ok := <-lost:
			if !ok || reason == nil {
				return
			}
			q.log.Warn("RabbitMQ connection lost, reconnecting", zap.String("reason", reason.Reason))
		}

		q.mu.Lock()
		q.channel = nil
		q.mu.Unlock()

		for delay := reconnectMin; ; delay = min(delay*2, reconnectMax) {
			select {
			case <-q.done:
				return
			case <-time.After(delay):
			}
			conn, ch, err := dial(q.url, q.exchange)
			if err != nil {
				q.log.Error("Failed to reconnect to RabbitMQ", zap.Duration("retry_in", delay), zap.Error(err))
				continue
			}
			q.mu.Lock()
			q.conn, q.channel = conn, ch
			q.mu.Unlock()
			q.log.Info("Reconnected to RabbitMQ")
			break
		}
	}
}
