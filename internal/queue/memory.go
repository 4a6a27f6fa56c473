package queue

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/recrutabot/internal/logger"
)

const (
	defaultWorkers = 2
	defaultBuffer  = 64
)

// Memory is an in-process queue. Tasks are lost on restart.
type Memory struct {
	tasks   chan ResumeTask
	workers int
	logger  *zap.Logger
	errorReporter

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewMemory(workers, buffer int, log *zap.Logger) *Memory {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if buffer <= 0 {
		buffer = defaultBuffer
	}

	log = logger.WithFields(log, zap.String("queue", BackendMemory))

	return &Memory{
		tasks:         make(chan ResumeTask, buffer),
		workers:       workers,
		logger:        log,
		errorReporter: newErrorReporter(log),
		done:          make(chan struct{}),
	}
}

// Enqueue never blocks: a full buffer is reported as ErrQueueFull.
func (m *Memory) Enqueue(ctx context.Context, task ResumeTask) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrClosed
	}

	select {
	case m.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

func (m *Memory) Consume(ctx context.Context, handler Handler) error {
	g, ctx := errgroup.WithContext(ctx)

	for i := 0; i < m.workers; i++ {
		worker := i
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-m.done:
					return nil
				case task := <-m.tasks:
					m.handle(ctx, worker, task, handler)
				}
			}
		})
	}

	return g.Wait()
}

func (m *Memory) handle(ctx context.Context, worker int, task ResumeTask, handler Handler) {
	log := m.logger.With(zap.Int("worker", worker))
	log = logger.WithFields(log, logger.CandidateFields(task.Phone, task.MessageID)...)

	log.Debug("processing resume task", zap.String("filename", task.Filename))

	if err := handler(ctx, task); err != nil {
		log.Debug("resume task failed", zap.Error(err))
		m.report(task, err)
	}
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	close(m.done)

	return nil
}
