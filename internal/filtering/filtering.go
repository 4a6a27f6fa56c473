// Package filtering narrows candidate lists through ordered, logged steps.
package filtering

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/recrutabot/internal/models"
)

// Filter represents a single filtering step applied to candidates.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Apply(ctx context.Context, c []models.Candidate) ([]models.Candidate, Step, error)
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string            `json:"name"`
	Enabled bool              `json:"enabled"`
	Reason  string            `json:"reason,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

type statusProvider interface {
	Status() Status
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
func DisableByName(steps []Filter, name, reason string) {
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// Run executes the supplied filters sequentially.
func Run(ctx context.Context, logger *zap.Logger, steps []Filter, c []models.Candidate) ([]models.Candidate, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	logger.Debug("filter chain", zap.Any("filters", Describe(steps)))

	for _, step := range steps {
		if !step.IsEnabled() {
			logger.Debug("filter disabled", zap.String("name", step.Name()))
			continue
		}

		next, info, err := step.Apply(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		logger.Debug("filter step",
			zap.String("name", step.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)

		c = next
	}

	return c, nil
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}

// Summary renders the enabled filters with their details, "none" when nothing is enabled.
func Summary(steps []Filter) string {
	var parts []string
	for _, status := range Describe(steps) {
		if !status.Enabled {
			continue
		}

		keys := make([]string, 0, len(status.Details))
		for key := range status.Details {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		part := status.Name
		for _, key := range keys {
			part += " " + key + "=" + status.Details[key]
		}
		parts = append(parts, part)
	}

	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "; ")
}

// toggle is embedded by filters that can be switched off.
type toggle struct {
	disabled bool
	reason   string
}

func (t *toggle) Disable(reason string) {
	t.disabled = true
	t.reason = reason
}

func (t *toggle) IsEnabled() bool { return !t.disabled }

// keep applies pred and reports the step.
func keep(c []models.Candidate, pred func(*models.Candidate) bool) ([]models.Candidate, Step) {
	out := make([]models.Candidate, 0, len(c))
	for i := range c {
		if pred(&c[i]) {
			out = append(out, c[i])
		}
	}
	return out, Step{Initial: len(c), Dropped: len(c) - len(out), Left: len(out)}
}
