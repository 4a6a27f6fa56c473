// Package orchestrator decides the bot's next utterance for an inbound candidate message.
package orchestrator

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/recrutabot/internal/ai"
	"github.com/spigell/recrutabot/internal/completion"
	"github.com/spigell/recrutabot/internal/logger"
	"github.com/spigell/recrutabot/internal/models"
	"github.com/spigell/recrutabot/internal/storage"
	"github.com/spigell/recrutabot/internal/utils"
)

const defaultMaxLogLength = 200

type Store interface {
	ListMessages(ctx context.Context, phone string) ([]models.Message, error)
	ActivePrompt(ctx context.Context) (*models.SystemPrompt, error)
	ListJobs(ctx context.Context, status models.JobStatus) ([]models.Job, error)
	GetCandidate(ctx context.Context, phone string) (*models.Candidate, error)
	UpdateCandidate(ctx context.Context, phone string, update models.CandidateUpdate) (*models.Candidate, error)
	SetBotStatus(ctx context.Context, phone string, status models.BotStatus) error
}

type Extractor interface {
	Extract(ctx context.Context, conversation string, snapshot *models.Candidate) (models.CandidateUpdate, error)
}

// Inbound is a candidate text message that passed the bot-status gate.
type Inbound struct {
	Phone       string
	Text        string
	DisplayName string
	// MessageID excludes the already persisted inbound message from the history.
	MessageID string
}

// Turn is the outcome of one dialogue turn.
type Turn struct {
	Reply string
	// HandedOff is set when this turn deactivated the bot after completion.
	HandedOff bool
}

type Orchestrator struct {
	store     Store
	generator ai.Generator
	extractor Extractor
	evaluator *completion.Evaluator
	logger    *zap.Logger
	maxLogLen int
}

func New(store Store, generator ai.Generator, extractor Extractor, evaluator *completion.Evaluator, log *zap.Logger, maxLogLength int) *Orchestrator {
	if evaluator == nil {
		evaluator = completion.NewEvaluator()
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Orchestrator{
		store:     store,
		generator: generator,
		extractor: extractor,
		evaluator: evaluator,
		logger:    logger.WithCommonFields(log, generator.Provider(), generator.Model()),
		maxLogLen: maxLogLength,
	}
}

type turnContext struct {
	history   []models.Message
	system    string
	jobs      string
	candidate *models.Candidate
}

// HandleInboundText runs one dialogue turn and returns the reply for the candidate.
// It never fails: every dependency error degrades to a default, and a failed
// generation yields FallbackReply.
func (o *Orchestrator) HandleInboundText(ctx context.Context, in Inbound) Turn {
	log := logger.WithFields(o.logger, logger.CandidateFields(in.Phone, in.MessageID)...)

	tc := o.gather(ctx, log, in)

	res := o.evaluator.Evaluate(tc.candidate)
	transcript := Transcript(tc.history)

	displayName := strings.TrimSpace(in.DisplayName)
	if o.evaluator.IsPlaceholder(displayName) {
		displayName = ""
	}

	prompt := promptParts{
		jobs:        tc.jobs,
		status:      completion.StatusBlock(tc.candidate, res),
		transcript:  transcript,
		displayName: displayName,
		message:     in.Text,
	}.build()

	var (
		reply    string
		replyErr error
		update   models.CandidateUpdate
		extrErr  error
	)

	var g errgroup.Group
	g.Go(func() error {
		log.Debug("reply request",
			zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
			zap.String("prompt_preview", utils.TruncateForLog(prompt, o.maxLogLen)),
		)
		reply, replyErr = o.generator.GenerateContent(ctx, tc.system, prompt)
		return nil
	})
	g.Go(func() error {
		update, extrErr = o.extractor.Extract(ctx, extractionInput(transcript, in.Text), tc.candidate)
		return nil
	})
	_ = g.Wait()

	snapshot := tc.candidate
	if extrErr != nil {
		log.Warn("extraction failed, keeping candidate as is", zap.Error(extrErr))
	} else if !update.IsEmpty() {
		merged, err := o.store.UpdateCandidate(ctx, in.Phone, update)
		if err != nil {
			log.Error("merging extracted fields", zap.Error(err), zap.Strings("fields", update.Fields()))
		} else {
			log.Info("candidate updated from conversation", zap.Strings("fields", update.Fields()))
			snapshot = merged
		}
	}

	handedOff := o.handoff(ctx, log, in.Phone, snapshot)

	reply = strings.TrimSpace(reply)
	if replyErr != nil || reply == "" {
		if errors.Is(replyErr, ai.ErrTimeout) {
			log.Warn("reply generation timed out, sending fallback", zap.Error(replyErr))
		} else {
			log.Error("reply generation failed, sending fallback", zap.Error(replyErr))
		}
		return Turn{Reply: FallbackReply, HandedOff: handedOff}
	}

	log.Debug("reply response",
		zap.Int("response_length", utf8.RuneCountInString(reply)),
		zap.String("response_preview", utils.TruncateForLog(reply, o.maxLogLen)),
	)

	return Turn{Reply: reply, HandedOff: handedOff}
}

// Handoff deactivates the bot for a complete candidate. It reports whether the
// status changed.
func (o *Orchestrator) Handoff(ctx context.Context, phone string, snapshot *models.Candidate) bool {
	log := logger.WithFields(o.logger, logger.CandidateFields(phone, "")...)
	return o.handoff(ctx, log, phone, snapshot)
}

func (o *Orchestrator) handoff(ctx context.Context, log *zap.Logger, phone string, snapshot *models.Candidate) bool {
	if snapshot == nil || !snapshot.IsBotActive() {
		return false
	}
	if !o.evaluator.Evaluate(snapshot).Complete {
		return false
	}

	if err := o.store.SetBotStatus(ctx, phone, models.BotInactive); err != nil {
		log.Error("deactivating bot after completion", zap.Error(err))
		return false
	}

	snapshot.BotStatus = models.BotInactive
	log.Info("intake complete, bot deactivated")
	return true
}

// gather fetches everything a turn needs concurrently. Each lookup degrades on its own.
func (o *Orchestrator) gather(ctx context.Context, log *zap.Logger, in Inbound) turnContext {
	var (
		tc      turnContext
		history []models.Message
	)

	var g errgroup.Group
	g.Go(func() error {
		messages, err := o.store.ListMessages(ctx, in.Phone)
		if err != nil {
			log.Warn("loading transcript, continuing without history", zap.Error(err))
			return nil
		}
		history = messages
		return nil
	})
	g.Go(func() error {
		tc.system = o.systemPrompt(ctx, log)
		return nil
	})
	g.Go(func() error {
		jobs, err := o.store.ListJobs(ctx, models.JobOpen)
		if err != nil {
			log.Warn("loading open jobs, continuing without summary", zap.Error(err))
			return nil
		}
		tc.jobs = JobsSummary(jobs)
		return nil
	})
	g.Go(func() error {
		c, err := o.store.GetCandidate(ctx, in.Phone)
		if err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				log.Warn("loading candidate snapshot", zap.Error(err))
			}
			return nil
		}
		tc.candidate = c
		return nil
	})
	_ = g.Wait()

	tc.history = make([]models.Message, 0, len(history))
	for _, m := range history {
		if in.MessageID != "" && m.ID == in.MessageID {
			continue
		}
		tc.history = append(tc.history, m)
	}

	return tc
}

func (o *Orchestrator) systemPrompt(ctx context.Context, log *zap.Logger) string {
	p, err := o.store.ActivePrompt(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Warn("loading system prompt, using default", zap.Error(err))
		}
		return DefaultSystemPrompt()
	}
	if strings.TrimSpace(p.Content) == "" {
		return DefaultSystemPrompt()
	}
	return p.Content
}

// SystemPrompt returns the active prompt, or the default one.
func (o *Orchestrator) SystemPrompt(ctx context.Context) string {
	return o.systemPrompt(ctx, o.logger)
}
