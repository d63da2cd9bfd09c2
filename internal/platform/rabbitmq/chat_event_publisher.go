package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"supportchat/internal/model"
)

// ChatEventPublisher sends committed chat changes to the chat event queue.
// One channel is shared; amqp channels are not safe for concurrent publishes.
type ChatEventPublisher struct {
	conn      *amqp.Connection
	queueName string

	mu sync.Mutex
	ch *amqp.Channel
}

func NewChatEventPublisher(conn *amqp.Connection, queueName string) *ChatEventPublisher {
	return &ChatEventPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *ChatEventPublisher) Publish(ctx context.Context, event model.ChatEvent) error {
	payload, err := EncodeChatEvent(event)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}
	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
			Type:         event.Type,
		},
	); err != nil {
		_ = ch.Close()
		p.ch = nil
		return fmt.Errorf("publish chat event failed: %w", err)
	}
	return nil
}

func (p *ChatEventPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return nil
	}
	err := p.ch.Close()
	p.ch = nil
	return err
}

func (p *ChatEventPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	p.ch = ch
	return ch, nil
}

func EncodeChatEvent(event model.ChatEvent) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal chat event failed: %w", err)
	}
	return payload, nil
}

func DecodeChatEvent(body []byte) (model.ChatEvent, error) {
	var event model.ChatEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return model.ChatEvent{}, fmt.Errorf("unmarshal chat event failed: %w", err)
	}
	if event.ChatID == "" {
		return model.ChatEvent{}, fmt.Errorf("chat event without chat id")
	}
	return event, nil
}
