package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"docchat/internal/model"
	"docchat/internal/platform/logger"
	"docchat/internal/platform/rabbitmq"
	"docchat/internal/repository"
	"docchat/internal/storage"
)

// errMalformedJob marks deliveries that can never succeed.
var errMalformedJob = errors.New("malformed purge job")

// DocumentPurgeWorker removes documents that no chat references any more,
// both the stored object and the row.
type DocumentPurgeWorker struct {
	conn      *amqp.Connection
	documents repository.DocumentStore
	chats     repository.ChatStore
	storage   storage.Storage
	queueName string
	log       *logger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewDocumentPurgeWorker(
	conn *amqp.Connection,
	documents repository.DocumentStore,
	chats repository.ChatStore,
	store storage.Storage,
	queueName string,
	log *logger.Logger,
) *DocumentPurgeWorker {
	return &DocumentPurgeWorker{
		conn:      conn,
		documents: documents,
		chats:     chats,
		storage:   store,
		queueName: queueName,
		log:       log.With("component", "document_purge_worker"),
	}
}

func (w *DocumentPurgeWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	if _, err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}
	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		cancel()
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
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

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
					return
				}
				err := w.handle(workerCtx, d.Body)
				switch {
				case err == nil:
					_ = d.Ack(false)
				case errors.Is(err, errMalformedJob):
					w.log.Error("drop purge job", "error", err)
					_ = d.Nack(false, false)
				default:
					w.log.Warn("purge job failed, requeueing", "error", err)
					_ = d.Nack(false, !d.Redelivered)
				}
			}
		}
	}()

	w.log.Info("document purge worker started", "queue", w.queueName)
	return nil
}

func (w *DocumentPurgeWorker) handle(ctx context.Context, body []byte) error {
	var job model.DocumentPurge
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("%w: %w", errMalformedJob, err)
	}
	if job.DocumentID == "" {
		return fmt.Errorf("%w: empty document id", errMalformedJob)
	}

	refs, err := w.chats.CountByDocumentID(ctx, job.DocumentID)
	if err != nil {
		return err
	}
	if refs > 0 {
		w.log.Debug("document still referenced", "document_id", job.DocumentID, "chats", refs)
		return nil
	}

	doc, err := w.documents.GetByID(ctx, job.DocumentID)
	if err != nil {
		return err
	}
	if doc == nil {
		return nil
	}

	if err := w.storage.Delete(ctx, doc.FilePath); err != nil {
		return fmt.Errorf("delete object %s failed: %w", doc.FilePath, err)
	}
	if err := w.documents.Delete(ctx, doc.ID); err != nil {
		return err
	}
	w.log.Info("document purged", "document_id", doc.ID, "key", doc.FilePath)
	return nil
}

func (w *DocumentPurgeWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
