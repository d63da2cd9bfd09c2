package worker

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"supportchat/internal/model"
	"supportchat/internal/platform/rabbitmq"
)

type TranscriptReader interface {
	ListMessages(ctx context.Context, chatID string) ([]model.Message, error)
}

type HistoryWriter interface {
	SetHistory(ctx context.Context, chatID string, messages []model.Message) error
	DeleteHistory(ctx context.Context, chatID string) error
}

// ChatEventWorker consumes chat events and keeps the transcript cache warm:
// a new turn reloads the transcript, a deletion evicts it.
type ChatEventWorker struct {
	conn      *amqp.Connection
	chats     TranscriptReader
	cache     HistoryWriter
	queueName string
	logger    *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewChatEventWorker(conn *amqp.Connection, chats TranscriptReader, cache HistoryWriter, queueName string, logger *zap.Logger) *ChatEventWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatEventWorker{
		conn:      conn,
		chats:     chats,
		cache:     cache,
		queueName: queueName,
		logger:    logger.Named("chat_event_worker"),
	}
}

func (w *ChatEventWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	ch, err := w.conn.Channel()
	if err != nil {
		return fmt.Errorf("open worker channel failed: %w", err)
	}
	if err := ch.Qos(16, 0, false); err != nil {
		_ = ch.Close()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					w.logger.Warn("delivery channel closed")
					return
				}
				if err := w.handle(workerCtx, d.Body); err != nil {
					w.logger.Warn("handle chat event failed", zap.Error(err))
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	w.logger.Info("worker started", zap.String("queue", w.queueName))
	return nil
}

func (w *ChatEventWorker) handle(ctx context.Context, body []byte) error {
	event, err := rabbitmq.DecodeChatEvent(body)
	if err != nil {
		return err
	}

	switch event.Type {
	case model.ChatEventTurnAppended:
		messages, err := w.chats.ListMessages(ctx, event.ChatID)
		if err != nil {
			return fmt.Errorf("reload transcript failed: %w", err)
		}
		if len(messages) == 0 {
			return w.cache.DeleteHistory(ctx, event.ChatID)
		}
		return w.cache.SetHistory(ctx, event.ChatID, messages)
	case model.ChatEventDeleted:
		return w.cache.DeleteHistory(ctx, event.ChatID)
	default:
		w.logger.Debug("ignore chat event", zap.String("type", event.Type))
		return nil
	}
}

func (w *ChatEventWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
