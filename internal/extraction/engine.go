// Package extraction turns free text into validated partial candidate updates.
package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/recrutabot/internal/ai"
	"github.com/spigell/recrutabot/internal/completion"
	"github.com/spigell/recrutabot/internal/logger"
	"github.com/spigell/recrutabot/internal/models"
	"github.com/spigell/recrutabot/internal/utils"
)

//go:embed conversation.md
var conversationPrompt string

//go:embed resume.md
var resumePrompt string

const (
	defaultMaxLogLength = 200
	maxResumeRunes      = 30000
)

type Engine struct {
	generator ai.Generator
	evaluator *completion.Evaluator
	logger    *zap.Logger
	maxLogLen int
}

func New(generator ai.Generator, evaluator *completion.Evaluator, log *zap.Logger, maxLogLength int) *Engine {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if evaluator == nil {
		evaluator = completion.NewEvaluator()
	}

	return &Engine{
		generator: generator,
		evaluator: evaluator,
		logger:    logger.WithCommonFields(log, generator.Provider(), generator.Model()),
		maxLogLen: maxLogLength,
	}
}

// Extract reads a conversation and returns only the fields that differ from snapshot.
// Rerunning it on a transcript without new information yields an empty update.
func (e *Engine) Extract(ctx context.Context, conversation string, snapshot *models.Candidate) (models.CandidateUpdate, error) {
	system := strings.ReplaceAll(conversationPrompt, "{{CANDIDATE_JSON}}", snapshotJSON(snapshot))
	message := "Analise esta conversa e extraia informações:\n\n" + strings.TrimSpace(conversation) + "\n\nRetorne o JSON:"

	update, err := e.run(ctx, "conversation", system, message)
	if err != nil {
		return models.CandidateUpdate{}, err
	}

	return diff(update, snapshot), nil
}

// ExtractResume reads résumé text. Fields absent from the text stay unset.
func (e *Engine) ExtractResume(ctx context.Context, text string) (models.CandidateUpdate, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.CandidateUpdate{}, errors.New("resume text is empty")
	}
	if utf8.RuneCountInString(text) > maxResumeRunes {
		text = string([]rune(text)[:maxResumeRunes])
	}

	return e.run(ctx, "resume", resumePrompt, "CURRÍCULO:\n"+text)
}

func (e *Engine) run(ctx context.Context, mode, system, message string) (models.CandidateUpdate, error) {
	e.logger.Debug("extraction request",
		zap.String("mode", mode),
		zap.Int("prompt_length", utf8.RuneCountInString(message)),
		zap.String("prompt_preview", utils.TruncateForLog(message, e.maxLogLen)),
	)

	raw, err := e.generator.GenerateContent(ctx, system, message)
	if err != nil {
		e.logger.Warn("extraction call failed", zap.String("mode", mode), zap.Error(err))
		return models.CandidateUpdate{}, err
	}

	e.logger.Debug("extraction response",
		zap.String("mode", mode),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, e.maxLogLen)),
	)

	fields, err := parseFields(raw)
	if err != nil {
		e.logger.Warn("discarding malformed extraction output",
			zap.String("mode", mode),
			zap.String("raw", utils.TruncateForLog(raw, e.maxLogLen)),
			zap.Error(err),
		)
		return models.CandidateUpdate{}, err
	}

	return e.validate(fields), nil
}

func (e *Engine) validate(f *rawFields) models.CandidateUpdate {
	var update models.CandidateUpdate

	optional := func(v string) *string {
		if v = cleanString(v); v == "" {
			return nil
		}
		return &v
	}

	if name := cleanString(f.Name); name != "" && !e.evaluator.IsPlaceholder(name) {
		update.Name = &name
	}
	update.DesiredRole = optional(f.DesiredRole)
	update.ExpectedSalary = optional(f.ExpectedSalary)
	update.Location = optional(f.Location)
	update.LinkedInURL = optional(f.LinkedInURL)
	update.Email = optional(f.Email)

	if years := coerceYears(f.YearsOfExperience); years > 0 {
		update.YearsOfExperience = &years
	}

	return update.Normalize()
}

// diff drops values already present on the snapshot.
func diff(u models.CandidateUpdate, c *models.Candidate) models.CandidateUpdate {
	if c == nil {
		return u
	}

	same := func(p *string, current string) bool {
		return p != nil && strings.EqualFold(strings.TrimSpace(*p), strings.TrimSpace(current))
	}

	if same(u.Name, c.Name) {
		u.Name = nil
	}
	if same(u.DesiredRole, c.DesiredRole) {
		u.DesiredRole = nil
	}
	if same(u.ExpectedSalary, c.ExpectedSalary) {
		u.ExpectedSalary = nil
	}
	if same(u.Location, c.Location) {
		u.Location = nil
	}
	if same(u.LinkedInURL, c.LinkedInURL) {
		u.LinkedInURL = nil
	}
	if same(u.Email, c.Email) {
		u.Email = nil
	}
	if u.YearsOfExperience != nil && *u.YearsOfExperience == c.YearsOfExperience {
		u.YearsOfExperience = nil
	}
	if u.YearsOfExperience == nil {
		u.Seniority = nil
	}

	return u
}

func snapshotJSON(c *models.Candidate) string {
	if c == nil {
		return "{}"
	}

	profile := map[string]any{
		"name":              c.Name,
		"desiredRole":       c.DesiredRole,
		"yearsOfExperience": c.YearsOfExperience,
		"expectedSalary":    c.ExpectedSalary,
		"location":          c.Location,
		"linkedinUrl":       c.LinkedInURL,
		"email":             c.Email,
		"seniority":         c.Seniority,
	}

	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}
