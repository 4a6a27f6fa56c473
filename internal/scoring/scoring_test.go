package scoring

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/recrutabot/internal/models"
	"github.com/spigell/recrutabot/internal/storage"
)

type stubGenerator struct {
	response string
	err      error
	system   string
	message  string
}

func (s *stubGenerator) GenerateContent(_ context.Context, system, message string) (string, error) {
	s.system = system
	s.message = message
	return s.response, s.err
}

func (s *stubGenerator) Model() string    { return "stub-model" }
func (s *stubGenerator) Provider() string { return "stub" }

type stubStore struct {
	job       *models.Job
	candidate *models.Candidate
	messages  []models.Message

	savedID            string
	savedScore         int
	savedJustification string
}

func (s *stubStore) GetJob(_ context.Context, id string) (*models.Job, error) {
	if s.job == nil || s.job.ID != id {
		return nil, storage.ErrNotFound
	}
	return s.job, nil
}

func (s *stubStore) GetCandidateByID(_ context.Context, id string) (*models.Candidate, error) {
	if s.candidate == nil || s.candidate.ID != id {
		return nil, storage.ErrNotFound
	}
	return s.candidate, nil
}

func (s *stubStore) ListMessages(context.Context, string) ([]models.Message, error) {
	return s.messages, nil
}

func (s *stubStore) SaveScore(_ context.Context, id string, score int, justification string) error {
	s.savedID = id
	s.savedScore = score
	s.savedJustification = justification
	return nil
}

func newStore() *stubStore {
	return &stubStore{
		job: &models.Job{
			ID:             "job-1",
			Title:          "Backend Developer",
			Seniority:      "Mid",
			RequiredSkills: []string{"Go", "PostgreSQL"},
		},
		candidate: &models.Candidate{ID: "cand-1", Phone: "5511987654321", Name: "Ana", YearsOfExperience: 4},
		messages: []models.Message{
			{Sender: models.SenderCandidate, Text: "Olá, sou a Ana"},
			{Sender: models.SenderBot, Text: "Qual cargo você procura?"},
		},
	}
}

func TestScoreSavesAssessment(t *testing.T) {
	t.Parallel()

	store := newStore()
	gen := &stubGenerator{response: "```json\n{\"score\": 7.6, \"justification\": \"Boa experiência com Go, pouca com PostgreSQL.\"}\n```"}

	got, err := New(gen, store, zap.NewNop(), 0).Score(context.Background(), "cand-1", "job-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Score != 8 {
		t.Fatalf("expected rounded score 8, got %d", got.Score)
	}
	if store.savedID != "cand-1" || store.savedScore != 8 || !strings.HasPrefix(store.savedJustification, "Boa experiência") {
		t.Fatalf("unexpected saved values: %+v", store)
	}

	for _, section := range []string{"# DADOS DA VAGA", "Go, PostgreSQL", "# DADOS DO CANDIDATO", "Candidato: Olá, sou a Ana", "Recrutador: Qual cargo", "# AVALIAÇÃO"} {
		if !strings.Contains(gen.message, section) {
			t.Fatalf("prompt is missing %q:\n%s", section, gen.message)
		}
	}
	if !strings.Contains(gen.system, "recrutador técnico sênior") {
		t.Fatalf("unexpected system prompt: %q", gen.system)
	}
}

func TestScoreErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		candidateID string
		jobID       string
		mutate      func(*stubStore)
		response    string
		want        error
	}{
		{name: "missing ids", candidateID: "", jobID: "job-1", want: ErrMissingIDs},
		{name: "unknown job", candidateID: "cand-1", jobID: "nope", want: ErrJobNotFound},
		{name: "unknown candidate", candidateID: "nope", jobID: "job-1", want: ErrCandidateNotFound},
		{
			name:        "empty conversation",
			candidateID: "cand-1",
			jobID:       "job-1",
			mutate:      func(s *stubStore) { s.messages = nil },
			want:        ErrEmptyConversation,
		},
		{name: "score out of range", candidateID: "cand-1", jobID: "job-1", response: `{"score": 11, "justification": "Muito acima do esperado."}`, want: ErrInvalidScore},
		{name: "score as string", candidateID: "cand-1", jobID: "job-1", response: `{"score": "7", "justification": "Perfil razoável para a vaga."}`, want: ErrInvalidScore},
		{name: "short justification", candidateID: "cand-1", jobID: "job-1", response: `{"score": 5, "justification": "ok"}`, want: ErrInvalidScore},
		{name: "not json", candidateID: "cand-1", jobID: "job-1", response: "nota 7", want: ErrInvalidScore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := newStore()
			if tt.mutate != nil {
				tt.mutate(store)
			}

			_, err := New(&stubGenerator{response: tt.response}, store, zap.NewNop(), 0).Score(context.Background(), tt.candidateID, tt.jobID)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if store.savedID != "" {
				t.Fatalf("nothing must be saved on error")
			}
		})
	}
}

func TestParseResponseUnwrapsReply(t *testing.T) {
	t.Parallel()

	raw := "```JSON\nAvaliação: {\"score\": 8, \"justification\": \"Domina Go e já liderou times.\"}\n```"
	assessment, err := parseResponse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if assessment.Score != 8 || assessment.Raw != raw {
		t.Fatalf("unexpected assessment: %+v", assessment)
	}
}
