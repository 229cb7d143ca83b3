// internal/queue/feed.go
package queue

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/streadway/amqp"
)

// ChangeMessage announces that a client's calendar changed. Consumers
// re-read the client's documents rather than trusting any payload beyond
// the client id.
type ChangeMessage struct {
	Collection string `json:"collection"`
	ClientID   string `json:"client_id"`
}

const changesExchange = "calendar_changes"

// ChangeFeed fans change messages out to every interested consumer.
type ChangeFeed interface {
	Publish(msg ChangeMessage) error
	Consume(consumerTag string, handler func(ChangeMessage)) (CancelFunc, <-chan error, error)
}

// CancelFunc stops a consumer.
type CancelFunc func()

// AMQPFeed is the RabbitMQ-backed change feed. Every consumer gets its own
// exclusive queue bound to a fanout exchange, so all server instances and
// workers see every change.
type AMQPFeed struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// DialAMQPFeed connects to RabbitMQ and declares the fanout exchange.
func DialAMQPFeed(url string) (*AMQPFeed, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		changesExchange,
		"fanout",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &AMQPFeed{conn: conn, ch: ch}, nil
}

// Publish announces a calendar change.
func (f *AMQPFeed) Publish(msg ChangeMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return f.ch.Publish(
		changesExchange,
		"", // fanout ignores routing key
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

// Consume binds a fresh exclusive queue to the exchange and feeds each
// change message to the handler. The returned error channel yields once if
// the delivery stream dies.
func (f *AMQPFeed) Consume(consumerTag string, handler func(ChangeMessage)) (CancelFunc, <-chan error, error) {
	ch, err := f.conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open consumer channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // auto-delete
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		return nil, nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, "", changesExchange, false, nil); err != nil {
		ch.Close()
		return nil, nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	msgs, err := ch.Consume(
		q.Name,
		consumerTag,
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		return nil, nil, fmt.Errorf("failed to register consumer: %w", err)
	}

	errs := make(chan error, 1)
	go func() {
		for d := range msgs {
			var msg ChangeMessage
			if err := json.Unmarshal(d.Body, &msg); err != nil {
				log.Println("⚠️ Invalid change message:", err)
				d.Ack(false)
				continue
			}
			handler(msg)
			d.Ack(false)
		}
		errs <- fmt.Errorf("change feed consumer %s closed", consumerTag)
	}()

	cancel := func() {
		ch.Close()
	}
	return cancel, errs, nil
}

// Close shuts the feed down.
func (f *AMQPFeed) Close() {
	f.ch.Close()
	f.conn.Close()
}

var _ ChangeFeed = (*AMQPFeed)(nil)
