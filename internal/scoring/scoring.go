// Package scoring rates a candidate against a job from their profile and interview transcript.
package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/recrutabot/internal/ai"
	"github.com/spigell/recrutabot/internal/logger"
	"github.com/spigell/recrutabot/internal/models"
	"github.com/spigell/recrutabot/internal/storage"
	"github.com/spigell/recrutabot/internal/utils"
)

//go:embed prompt.md
var systemPrompt string

const (
	defaultMaxLogLength    = 200
	minJustificationLength = 10
)

var (
	ErrMissingIDs        = errors.New("candidateId and jobId are required")
	ErrJobNotFound       = errors.New("job not found")
	ErrCandidateNotFound = errors.New("candidate not found")
	ErrEmptyConversation = errors.New("conversation not found or empty")
	ErrInvalidScore      = errors.New("invalid assessment")
)

type Store interface {
	GetJob(ctx context.Context, id string) (*models.Job, error)
	GetCandidateByID(ctx context.Context, id string) (*models.Candidate, error)
	ListMessages(ctx context.Context, phone string) ([]models.Message, error)
	SaveScore(ctx context.Context, id string, score int, justification string) error
}

type Assessment struct {
	Score         int    `json:"score"`
	Justification string `json:"justification"`
	Raw           string `json:"-"`
}

type Scorer struct {
	generator ai.Generator
	store     Store
	logger    *zap.Logger
	maxLogLen int
}

func New(generator ai.Generator, store Store, log *zap.Logger, maxLogLength int) *Scorer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Scorer{
		generator: generator,
		store:     store,
		logger:    logger.WithCommonFields(log, generator.Provider(), generator.Model()),
		maxLogLen: maxLogLength,
	}
}

// Score evaluates the candidate for the job and persists the result.
func (s *Scorer) Score(ctx context.Context, candidateID, jobID string) (*Assessment, error) {
	candidateID = strings.TrimSpace(candidateID)
	jobID = strings.TrimSpace(jobID)
	if candidateID == "" || jobID == "" {
		return nil, ErrMissingIDs
	}

	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("get job: %w", err)
	}

	candidate, err := s.store.GetCandidateByID(ctx, candidateID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrCandidateNotFound
		}
		return nil, fmt.Errorf("get candidate: %w", err)
	}

	messages, err := s.store.ListMessages(ctx, candidate.Phone)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	if len(messages) == 0 {
		return nil, ErrEmptyConversation
	}

	prompt := buildPrompt(job, candidate, messages)

	s.logger.Debug("score request",
		zap.String("job_id", job.ID),
		zap.String("candidate_id", candidate.ID),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, s.maxLogLen)),
	)

	raw, err := s.generator.GenerateContent(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("score response",
		zap.String("candidate_id", candidate.ID),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, s.maxLogLen)),
	)

	assessment, err := parseResponse(raw)
	if err != nil {
		s.logger.Warn("rejecting score output", zap.Error(err),
			zap.String("response_preview", utils.TruncateForLog(raw, s.maxLogLen)))
		return nil, err
	}

	if err := s.store.SaveScore(ctx, candidate.ID, assessment.Score, assessment.Justification); err != nil {
		return nil, fmt.Errorf("save score: %w", err)
	}

	s.logger.Info("candidate scored",
		zap.String("candidate_id", candidate.ID),
		zap.String("job_id", job.ID),
		zap.Int("score", assessment.Score),
	)

	return assessment, nil
}

func buildPrompt(job *models.Job, c *models.Candidate, messages []models.Message) string {
	var b strings.Builder

	b.WriteString("# DADOS DA VAGA\n")
	fmt.Fprintf(&b, "- Título: %s\n", job.Title)
	fmt.Fprintf(&b, "- Descrição: %s\n", job.Description)
	fmt.Fprintf(&b, "- Senioridade: %s\n", job.Seniority)
	fmt.Fprintf(&b, "- Habilidades Requeridas: %s\n", strings.Join(job.RequiredSkills, ", "))
	fmt.Fprintf(&b, "- Localização: %s\n\n", job.Location)

	b.WriteString("# DADOS DO CANDIDATO\n")
	fmt.Fprintf(&b, "- Nome: %s\n", c.Name)
	fmt.Fprintf(&b, "- Senioridade (auto-declarada): %s\n", c.Seniority)
	fmt.Fprintf(&b, "- Anos de Experiência: %s\n", strconv.FormatFloat(c.YearsOfExperience, 'f', -1, 64))
	fmt.Fprintf(&b, "- Cargo Desejado: %s\n", c.DesiredRole)
	fmt.Fprintf(&b, "- Localização: %s\n\n", c.Location)

	b.WriteString("# TRANSCRIÇÃO DA ENTREVISTA COM O BOT\n")
	for _, m := range messages {
		speaker := "Candidato"
		if m.Sender != models.SenderCandidate {
			speaker = "Recrutador"
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, m.Text)
	}

	b.WriteString("\n# AVALIAÇÃO\n")
	b.WriteString("Com base em todos os dados acima, gere a pontuação e a justificativa para o candidato em relação à vaga. Lembre-se de retornar APENAS o objeto JSON.\n")

	return b.String()
}

func parseResponse(raw string) (*Assessment, error) {
	cleaned := utils.ExtractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScore, err)
	}

	score, ok := data["score"].(float64)
	if !ok || math.IsNaN(score) || score < 1 || score > 10 {
		return nil, fmt.Errorf("%w: score must be a number between 1 and 10", ErrInvalidScore)
	}

	justification, ok := data["justification"].(string)
	justification = strings.TrimSpace(justification)
	if !ok || utf8.RuneCountInString(justification) < minJustificationLength {
		return nil, fmt.Errorf("%w: justification is missing or too short", ErrInvalidScore)
	}

	return &Assessment{
		Score:         int(math.Round(score)),
		Justification: justification,
		Raw:           raw,
	}, nil
}
