package queue

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Queues names the durable queues the pipeline uses.
type Queues struct {
	Processing string
	Results    string
	DeadLetter string
}

// Rabbit holds the broker connection and channel shared by the publisher and
// consumer.
type Rabbit struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queues  Queues
}

// Dial connects to the broker and declares the processing, result, and
// dead-letter queues as durable.
func Dial(url string, queues Queues) (*Rabbit, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	for _, name := range []string{queues.Processing, queues.Results, queues.DeadLetter} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("failed to declare queue %s: %w", name, err)
		}
	}

	return &Rabbit{conn: conn, channel: ch, queues: queues}, nil
}

// Close tears down the channel and connection.
func (r *Rabbit) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
