package ai

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Generator produces a single text completion for a system instruction and a user message.
type Generator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
	Model() string
	Provider() string
}

// ErrTimeout is returned when a bounded call exceeds its deadline.
var ErrTimeout = errors.New("ai call timed out")

type bounded struct {
	Generator
	timeout time.Duration
}

// WithTimeout wraps g so that every call runs under its own deadline.
// A non-positive timeout returns g unchanged.
func WithTimeout(g Generator, timeout time.Duration) Generator {
	if timeout <= 0 || g == nil {
		return g
	}
	return &bounded{Generator: g, timeout: timeout}
}

func (b *bounded) GenerateContent(ctx context.Context, system, message string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := b.Generator.GenerateContent(ctx, system, message)
		done <- result{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s", ErrTimeout, b.timeout)
		}
		return "", ctx.Err()
	case res := <-done:
		return res.text, res.err
	}
}
