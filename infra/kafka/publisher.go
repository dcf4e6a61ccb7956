package kafka

import (
	"context"

	"github.com/cockroachdb/errors"
)

// Publisher delivers one event to the message bus.
type Publisher interface {
	Publish(ctx context.Context, key, value []byte) error
	Close() error
}

const (
	DriverKafkaGo = "kafka-go"
	DriverSarama  = "sarama"
)

var ErrUnknownDriver = errors.New("kafka: unknown driver")

// NewPublisher builds a publisher for driver.
func NewPublisher(driver string, brokers []string, topic string) (Publisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	switch driver {
	case DriverKafkaGo, "":
		return NewProducer(brokers, topic), nil
	case DriverSarama:
		return NewSaramaProducer(brokers, topic)
	default:
		return nil, errors.Wrapf(ErrUnknownDriver, "%q", driver)
	}
}
