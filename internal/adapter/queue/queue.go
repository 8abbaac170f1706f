package queue

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/seu-repo/voxa-cobranza/pkg/config"
)

// MessageQueue defines the interface for a message queue adapter
type MessageQueue interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, handler func(data []byte) error) error
	Close() error
}

// New connects to the broker selected by events.broker. It returns nil without
// error when events are disabled.
func New(cfg *config.Config, log *zap.Logger) (MessageQueue, error) {
	switch cfg.Events.Broker {
	case "", "none":
		log.Info("Call events disabled")
		return nil, nil
	case "nats":
		q, err := NewNATSQueue(cfg.NATS, log)
		if err != nil {
			return nil, err
		}
		return q, nil
	case "rabbitmq":
		q, err := NewRabbitMQQueue(cfg.RabbitMQ, log)
		if err != nil {
			return nil, err
		}
		return q, nil
	default:
		return nil, fmt.Errorf("queue: unknown broker %q", cfg.Events.Broker)
	}
}
