package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// StartNotificationConsumer connects to the broker, declares the permit
// queues (durable), and consumes both, turning each event into a
// notification via the given provider.  The function runs a reconnect loop
// with exponential backoff and never returns under normal operation;
// processing errors are logged and the offending message is rejected
// without requeue so a poison message cannot wedge the consumer.
func StartNotificationConsumer(provider Provider) error {
	url := brokerURL()
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("permit-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := consumeLoop(conn, provider); err != nil {
			log.Printf("permit-consumer: consume loop ended: %v; reconnecting", err)
			_ = conn.Close()
			time.Sleep(2 * time.Second)
			continue
		}
	}
}

func consumeLoop(conn *amqp.Connection, provider Provider) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("permit-consumer: set QoS failed: %v", err)
	}

	for _, name := range []string{PermitSubmittedQueue, PermitDecidedQueue} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", name, err)
		}
	}

	submitted, err := ch.Consume(PermitSubmittedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", PermitSubmittedQueue, err)
	}
	decided, err := ch.Consume(PermitDecidedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", PermitDecidedQueue, err)
	}

	for {
		var (
			d  amqp.Delivery
			ok bool
			fn func([]byte, Provider) error
		)
		select {
		case d, ok = <-submitted:
			fn = handleSubmitted
		case d, ok = <-decided:
			fn = handleDecided
		}
		if !ok {
			return errors.New("deliveries channel closed")
		}
		if err := fn(d.Body, provider); err != nil {
			log.Printf("permit-consumer: handle message failed: %v", err)
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
}

func handleSubmitted(body []byte, provider Provider) error {
	var ev PermitSubmittedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	msg := fmt.Sprintf("Permit request %s received for %s (%s), valid through %s. You will be notified once it is reviewed.",
		ev.Folio, ev.Name, ev.EmployeeNumber, ev.ExpiresAt)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return provider.Send(ctx, msg, ev.Email)
}

func handleDecided(body []byte, provider Provider) error {
	var ev PermitDecidedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	msg := fmt.Sprintf("Permit %s for %s (%s) was %s.", ev.Folio, ev.Name, ev.EmployeeNumber, ev.Status)
	if ev.Message != "" {
		msg += " " + ev.Message
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return provider.Send(ctx, msg, ev.Email)
}
