// Package queue runs résumé processing outside of the webhook request.
package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	BackendMemory = "memory"
	BackendAMQP   = "amqp"
)

var (
	ErrQueueFull = errors.New("resume queue is full")
	ErrClosed    = errors.New("resume queue is closed")
)

// ResumeTask references an attachment that still has to be downloaded and parsed.
type ResumeTask struct {
	Phone      string    `json:"phone"`
	MessageID  string    `json:"message_id"`
	MediaID    string    `json:"media_id"`
	Filename   string    `json:"filename"`
	MimeType   string    `json:"mime_type"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

type Handler func(ctx context.Context, task ResumeTask) error

// TaskError is a failed handler run.
type TaskError struct {
	Task ResumeTask
	Err  error
}

func (e TaskError) Error() string {
	return fmt.Sprintf("resume task %s: %v", e.Task.MessageID, e.Err)
}

func (e TaskError) Unwrap() error { return e.Err }

type Queue interface {
	Enqueue(ctx context.Context, task ResumeTask) error
	// Consume blocks and feeds tasks to the handler until ctx is cancelled.
	Consume(ctx context.Context, handler Handler) error
	// Errors reports handler failures. Reports are dropped when nobody reads them.
	Errors() <-chan TaskError
	Close() error
}

const errorsBuffer = 32

type errorReporter struct {
	errs   chan TaskError
	logger *zap.Logger
}

func newErrorReporter(log *zap.Logger) errorReporter {
	return errorReporter{errs: make(chan TaskError, errorsBuffer), logger: log}
}

func (r errorReporter) Errors() <-chan TaskError {
	return r.errs
}

func (r errorReporter) report(task ResumeTask, err error) {
	select {
	case r.errs <- TaskError{Task: task, Err: err}:
	default:
		r.logger.Error("resume task failed", zap.Error(err), zap.String("reason", "error channel is full"))
	}
}

type Config struct {
	Backend string `mapstructure:"queue"`
	Workers int    `mapstructure:"workers"`
	Buffer  int    `mapstructure:"buffer"`
	AMQP    struct {
		URL      string `mapstructure:"url"`
		Queue    string `mapstructure:"queue"`
		Prefetch int    `mapstructure:"prefetch"`
	} `mapstructure:"amqp"`
}

// New builds the queue selected by cfg.Backend. An empty backend means memory.
func New(cfg Config, log *zap.Logger) (Queue, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendMemory:
		return NewMemory(cfg.Workers, cfg.Buffer, log), nil
	case BackendAMQP:
		return NewAMQP(cfg.AMQP.URL, cfg.AMQP.Queue, cfg.Workers, cfg.AMQP.Prefetch, log)
	default:
		return nil, fmt.Errorf("unsupported resume queue backend: %s", cfg.Backend)
	}
}
