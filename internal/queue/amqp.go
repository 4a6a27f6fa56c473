package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/recrutabot/internal/logger"
)

const (
	defaultQueueName = "recrutabot.resumes"
	publishTimeout   = 5 * time.Second
)

// AMQP is a durable queue on RabbitMQ. Deliveries are acked only after the
// handler succeeds; a failed first delivery is requeued once.
type AMQP struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
	workers int
	logger  *zap.Logger
	errorReporter
}

func NewAMQP(url, name string, workers, prefetch int, log *zap.Logger) (*AMQP, error) {
	if url == "" {
		return nil, errors.New("amqp url is required")
	}
	if name == "" {
		name = defaultQueueName
	}
	if workers <= 0 {
		workers = defaultWorkers
	}
	if prefetch <= 0 {
		prefetch = workers
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		name,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.Qos(prefetch, 0, false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}

	log = logger.WithFields(log, zap.String("queue", BackendAMQP), zap.String("queue_name", q.Name))

	return &AMQP{
		conn:          conn,
		channel:       ch,
		queue:         q,
		workers:       workers,
		logger:        log,
		errorReporter: newErrorReporter(log),
	}, nil
}

func (a *AMQP) Enqueue(ctx context.Context, task ResumeTask) error {
	body, err := json.Marshal(task)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return a.channel.PublishWithContext(
		ctx,
		"",           // exchange
		a.queue.Name, // routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    task.MessageID,
			Timestamp:    task.EnqueuedAt,
			Body:         body,
		},
	)
}

func (a *AMQP) Consume(ctx context.Context, handler Handler) error {
	deliveries, err := a.channel.Consume(
		a.queue.Name,
		"",
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < a.workers; i++ {
		worker := i
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case d, ok := <-deliveries:
					if !ok {
						return errors.New("amqp delivery channel closed")
					}
					a.handle(ctx, worker, d, handler)
				}
			}
		})
	}

	return g.Wait()
}

func (a *AMQP) handle(ctx context.Context, worker int, d amqp.Delivery, handler Handler) {
	log := a.logger.With(zap.Int("worker", worker))

	var task ResumeTask
	if err := json.Unmarshal(d.Body, &task); err != nil {
		log.Warn("dropping invalid resume task", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	log = logger.WithFields(log, logger.CandidateFields(task.Phone, task.MessageID)...)

	if err := handler(ctx, task); err != nil {
		requeue := !d.Redelivered
		log.Debug("resume task failed", zap.Error(err), zap.Bool("requeue", requeue))
		_ = d.Nack(false, requeue)
		a.report(task, err)
		return
	}

	if err := d.Ack(false); err != nil {
		log.Warn("ack failed", zap.Error(err))
	}
}

func (a *AMQP) Close() error {
	return errors.Join(a.channel.Close(), a.conn.Close())
}
