package filtering

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/recrutabot/internal/models"
)

func ptr[T any](v T) *T { return &v }

func sample() []models.Candidate {
	return []models.Candidate{
		{Phone: "1", Name: "Ana Souza", DesiredRole: "Backend Developer", Status: models.StatusQualified, JobID: ptr("job-1"), BotStatus: models.BotInactive, Score: ptr(8),
			YearsOfExperience: 4, ExpectedSalary: "12k", Location: "São Paulo", LinkedInURL: "https://linkedin.com/in/ana"},
		{Phone: "2", Name: "Bruno Lima", DesiredRole: "QA", Status: models.StatusNew, BotStatus: models.BotActive, Score: ptr(5)},
		{Phone: "3", Name: "Candidato", Location: "Recife"},
	}
}

func phones(c []models.Candidate) []string {
	out := make([]string, 0, len(c))
	for _, candidate := range c {
		out = append(out, candidate.Phone)
	}
	return out
}

func TestQuerySteps(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query Query
		want  []string
	}{
		{name: "no filters", query: Query{}, want: []string{"1", "2", "3"}},
		{name: "status new includes unset", query: Query{Status: "new"}, want: []string{"2", "3"}},
		{name: "job", query: Query{JobID: "job-1"}, want: []string{"1"}},
		{name: "unassigned job", query: Query{JobID: "none"}, want: []string{"2", "3"}},
		{name: "bot active includes unset", query: Query{BotStatus: "active"}, want: []string{"2", "3"}},
		{name: "search all terms", query: Query{Search: "ana BACKEND"}, want: []string{"1"}},
		{name: "search location", query: Query{Search: "recife"}, want: []string{"3"}},
		{name: "complete", query: Query{Complete: "true"}, want: []string{"1"}},
		{name: "incomplete", query: Query{Complete: "false"}, want: []string{"2", "3"}},
		{name: "min score", query: Query{MinScore: "6"}, want: []string{"1"}},
		{name: "combined", query: Query{BotStatus: "active", Search: "bruno", MinScore: "5"}, want: []string{"2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			steps, err := tt.query.Steps()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			got, err := Run(context.Background(), zap.NewNop(), steps, sample())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			gotPhones := phones(got)
			if len(gotPhones) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, gotPhones)
			}
			for i := range tt.want {
				if gotPhones[i] != tt.want[i] {
					t.Fatalf("expected %v, got %v", tt.want, gotPhones)
				}
			}
		})
	}
}

func TestQueryStepsRejectsInvalidValues(t *testing.T) {
	t.Parallel()

	for _, q := range []Query{
		{Status: "archived"},
		{BotStatus: "paused"},
		{Complete: "maybe"},
		{MinScore: "11"},
		{MinScore: "abc"},
	} {
		if _, err := q.Steps(); err == nil {
			t.Fatalf("expected error for %+v", q)
		}
	}
}

func TestRunLogsSteps(t *testing.T) {
	t.Parallel()

	core, observed := observer.New(zapcore.DebugLevel)
	steps := []Filter{NewSearch("ana"), NewStatus("")}

	if _, err := Run(context.Background(), zap.New(core), steps, sample()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries := observed.FilterMessage("filter step").All()
	if len(entries) != 1 {
		t.Fatalf("expected one executed step, got %d", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["name"] != "search" || ctx["dropped"] != int64(2) || ctx["left"] != int64(1) {
		t.Fatalf("unexpected step log: %v", ctx)
	}
	if observed.FilterMessage("filter disabled").Len() != 1 {
		t.Fatalf("expected disabled filter to be logged")
	}
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	steps := []Filter{NewSearch("ana"), NewJob("")}
	DisableByName(steps, "search", "manual")

	statuses := Describe(steps)
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if statuses[0].Enabled || statuses[0].Reason != "manual" || statuses[0].Details["terms"] != "ana" {
		t.Fatalf("unexpected search status: %+v", statuses[0])
	}
	if statuses[1].Name != "job" || statuses[1].Enabled {
		t.Fatalf("unexpected job status: %+v", statuses[1])
	}
}

func TestSummary(t *testing.T) {
	t.Parallel()

	steps, err := Query{Status: "new", Search: "Ana  Dev"}.Steps()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := Summary(steps); got != "status status=new; search terms=ana dev" {
		t.Fatalf("unexpected summary %q", got)
	}

	none, err := Query{}.Steps()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := Summary(none); got != "none" {
		t.Fatalf("expected none, got %q", got)
	}
}
