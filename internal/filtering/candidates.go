package filtering

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spigell/recrutabot/internal/completion"
	"github.com/spigell/recrutabot/internal/models"
)

// Query holds the list filters accepted by the admin API and the CLI.
type Query struct {
	Status    string `form:"status"`
	JobID     string `form:"job_id"`
	BotStatus string `form:"bot_status"`
	Search    string `form:"q"`
	Complete  string `form:"complete"`
	MinScore  string `form:"min_score"`
}

// Steps builds the filter chain for q. Filters without a value are disabled.
func (q Query) Steps() ([]Filter, error) {
	steps := []Filter{
		NewStatus(models.CandidateStatus(strings.TrimSpace(q.Status))),
		NewJob(strings.TrimSpace(q.JobID)),
		NewBotStatus(models.BotStatus(strings.TrimSpace(q.BotStatus))),
		NewSearch(q.Search),
	}

	switch strings.TrimSpace(q.Complete) {
	case "":
		steps = append(steps, NewCompletion(nil, false))
		DisableByName(steps, "completion", "not requested")
	case "true", "1":
		steps = append(steps, NewCompletion(nil, true))
	case "false", "0":
		steps = append(steps, NewCompletion(nil, false))
	default:
		return nil, fmt.Errorf("invalid complete value: %q", q.Complete)
	}

	minScore := NewMinScore(0)
	if raw := strings.TrimSpace(q.MinScore); raw != "" {
		score, err := strconv.Atoi(raw)
		if err != nil || score < 1 || score > 10 {
			return nil, fmt.Errorf("invalid min_score value: %q", q.MinScore)
		}
		minScore = NewMinScore(score)
	}
	steps = append(steps, minScore)

	for _, step := range steps {
		if s, ok := step.(interface{ validate() error }); ok && step.IsEnabled() {
			if err := s.validate(); err != nil {
				return nil, err
			}
		}
	}

	return steps, nil
}

type statusFilter struct {
	toggle
	status models.CandidateStatus
}

// NewStatus keeps candidates in the given funnel stage.
func NewStatus(status models.CandidateStatus) Filter {
	f := &statusFilter{status: status}
	if status == "" {
		f.Disable("no status requested")
	}
	return f
}

func (f *statusFilter) Name() string { return "status" }

func (f *statusFilter) validate() error {
	if !f.status.Valid() {
		return fmt.Errorf("invalid status: %q", f.status)
	}
	return nil
}

func (f *statusFilter) Apply(_ context.Context, c []models.Candidate) ([]models.Candidate, Step, error) {
	out, step := keep(c, func(c *models.Candidate) bool {
		status := c.Status
		if status == "" {
			status = models.StatusNew
		}
		return status == f.status
	})
	return out, step, nil
}

func (f *statusFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: map[string]string{"status": string(f.status)}}
}

type jobFilter struct {
	toggle
	jobID string
}

// NewJob keeps candidates associated with a job. "none" selects unassigned candidates.
func NewJob(jobID string) Filter {
	f := &jobFilter{jobID: jobID}
	if jobID == "" {
		f.Disable("no job requested")
	}
	return f
}

func (f *jobFilter) Name() string { return "job" }

func (f *jobFilter) Apply(_ context.Context, c []models.Candidate) ([]models.Candidate, Step, error) {
	out, step := keep(c, func(c *models.Candidate) bool {
		if f.jobID == "none" {
			return c.JobID == nil || *c.JobID == ""
		}
		return c.JobID != nil && *c.JobID == f.jobID
	})
	return out, step, nil
}

type botStatusFilter struct {
	toggle
	status models.BotStatus
}

// NewBotStatus keeps candidates whose bot is active or inactive.
func NewBotStatus(status models.BotStatus) Filter {
	f := &botStatusFilter{status: status}
	if status == "" {
		f.Disable("no bot status requested")
	}
	return f
}

func (f *botStatusFilter) Name() string { return "bot_status" }

func (f *botStatusFilter) validate() error {
	if !f.status.Valid() {
		return fmt.Errorf("invalid bot status: %q", f.status)
	}
	return nil
}

func (f *botStatusFilter) Apply(_ context.Context, c []models.Candidate) ([]models.Candidate, Step, error) {
	out, step := keep(c, func(c *models.Candidate) bool {
		return c.IsBotActive() == (f.status == models.BotActive)
	})
	return out, step, nil
}

type searchFilter struct {
	toggle
	terms []string
}

// NewSearch keeps candidates matching every term in name, phone, email, role or location.
func NewSearch(query string) Filter {
	f := &searchFilter{terms: strings.Fields(strings.ToLower(query))}
	if len(f.terms) == 0 {
		f.Disable("empty query")
	}
	return f
}

func (f *searchFilter) Name() string { return "search" }

func (f *searchFilter) Apply(_ context.Context, c []models.Candidate) ([]models.Candidate, Step, error) {
	out, step := keep(c, func(c *models.Candidate) bool {
		haystack := strings.ToLower(strings.Join([]string{c.Name, c.Phone, c.Email, c.DesiredRole, c.Location}, " "))
		for _, term := range f.terms {
			if !strings.Contains(haystack, term) {
				return false
			}
		}
		return true
	})
	return out, step, nil
}

func (f *searchFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: map[string]string{"terms": strings.Join(f.terms, " ")}}
}

type completionFilter struct {
	toggle
	evaluator *completion.Evaluator
	complete  bool
}

// NewCompletion keeps candidates whose intake is (or is not) complete.
func NewCompletion(evaluator *completion.Evaluator, complete bool) Filter {
	if evaluator == nil {
		evaluator = completion.NewEvaluator()
	}
	return &completionFilter{evaluator: evaluator, complete: complete}
}

func (f *completionFilter) Name() string { return "completion" }

func (f *completionFilter) Apply(_ context.Context, c []models.Candidate) ([]models.Candidate, Step, error) {
	out, step := keep(c, func(c *models.Candidate) bool {
		return f.evaluator.Evaluate(c).Complete == f.complete
	})
	return out, step, nil
}

type minScoreFilter struct {
	toggle
	threshold int
}

// NewMinScore keeps scored candidates at or above threshold. Zero disables the step.
func NewMinScore(threshold int) Filter {
	f := &minScoreFilter{threshold: threshold}
	if threshold <= 0 {
		f.Disable("no minimum score")
	}
	return f
}

func (f *minScoreFilter) Name() string { return "min_score" }

func (f *minScoreFilter) Apply(_ context.Context, c []models.Candidate) ([]models.Candidate, Step, error) {
	out, step := keep(c, func(c *models.Candidate) bool {
		return c.Score != nil && *c.Score >= f.threshold
	})
	return out, step, nil
}
