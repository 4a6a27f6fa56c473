// Package intake drives the per-candidate conversation lifecycle: it gates
// inbound messages on the bot status, routes text to the dialogue and résumés
// to the background queue.
package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/recrutabot/internal/completion"
	"github.com/spigell/recrutabot/internal/documents"
	"github.com/spigell/recrutabot/internal/extraction"
	"github.com/spigell/recrutabot/internal/logger"
	"github.com/spigell/recrutabot/internal/models"
	"github.com/spigell/recrutabot/internal/orchestrator"
	"github.com/spigell/recrutabot/internal/queue"
	"github.com/spigell/recrutabot/internal/whatsapp"
)

// DefaultPlaceholder is the name of a candidate whose name is not known yet.
const DefaultPlaceholder = "Candidato"

var ErrUnsupportedDocument = errors.New("unsupported document type")

type Store interface {
	EnsureCandidate(ctx context.Context, phone, name string, at time.Time) (*models.Candidate, bool, error)
	GetCandidate(ctx context.Context, phone string) (*models.Candidate, error)
	UpdateCandidate(ctx context.Context, phone string, update models.CandidateUpdate) (*models.Candidate, error)
	SetBotStatus(ctx context.Context, phone string, status models.BotStatus) error
	AddMessage(ctx context.Context, msg *models.Message) (bool, error)
}

type Dialogue interface {
	HandleInboundText(ctx context.Context, in orchestrator.Inbound) orchestrator.Turn
	Handoff(ctx context.Context, phone string, snapshot *models.Candidate) bool
}

type ResumeExtractor interface {
	ExtractResume(ctx context.Context, text string) (models.CandidateUpdate, error)
}

type MediaDownloader interface {
	DownloadMedia(ctx context.Context, mediaID string) (*whatsapp.Media, error)
}

type Enqueuer interface {
	Enqueue(ctx context.Context, task queue.ResumeTask) error
}

type Deps struct {
	Store     Store
	Messenger *Messenger
	Dialogue  Dialogue
	Resumes   ResumeExtractor
	Media     MediaDownloader
	Queue     Enqueuer
	// TextExtractor defaults to documents.ExtractText.
	TextExtractor func(data []byte, mimeType string) (string, error)
	Placeholder   string
}

type Service struct {
	store       Store
	messenger   *Messenger
	dialogue    Dialogue
	resumes     ResumeExtractor
	media       MediaDownloader
	queue       Enqueuer
	extractText func(data []byte, mimeType string) (string, error)
	placeholder string
	logger      *zap.Logger
	now         func() time.Time

	locks keyedMutex
}

func New(deps Deps, log *zap.Logger) *Service {
	placeholder := deps.Placeholder
	if placeholder == "" {
		placeholder = DefaultPlaceholder
	}

	extractText := deps.TextExtractor
	if extractText == nil {
		extractText = documents.ExtractText
	}

	return &Service{
		store:       deps.Store,
		messenger:   deps.Messenger,
		dialogue:    deps.Dialogue,
		resumes:     deps.Resumes,
		media:       deps.Media,
		queue:       deps.Queue,
		extractText: extractText,
		placeholder: placeholder,
		logger:      logger.WithFields(log, zap.String("component", "intake")),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// HandleMessage processes one inbound webhook message. Turns for the same
// phone never run concurrently. Redelivered message ids are ignored.
func (s *Service) HandleMessage(ctx context.Context, msg whatsapp.InboundMessage) error {
	if msg.Phone == "" {
		return errors.New("message without sender")
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	}

	log := logger.WithFields(s.logger, logger.CandidateFields(msg.Phone, msg.ID)...).With(zap.String("type", msg.Type))

	unlock := s.locks.Lock(msg.Phone)
	defer unlock()

	candidate, created, err := s.store.EnsureCandidate(ctx, msg.Phone, s.placeholder, msg.Timestamp)
	if err != nil {
		return fmt.Errorf("ensure candidate: %w", err)
	}
	if created {
		log.Info("new candidate")
	}

	switch msg.Type {
	case whatsapp.TypeText:
		return s.handleText(ctx, log, candidate, msg)
	case whatsapp.TypeDocument:
		return s.handleDocument(ctx, log, candidate, msg)
	default:
		return s.handleUnsupported(ctx, log, candidate, msg)
	}
}

// record appends an inbound message. It reports false for a redelivery.
func (s *Service) record(ctx context.Context, log *zap.Logger, msg whatsapp.InboundMessage, text string) (bool, error) {
	inserted, err := s.store.AddMessage(ctx, &models.Message{
		ID:             msg.ID,
		CandidatePhone: msg.Phone,
		Sender:         models.SenderCandidate,
		Text:           text,
		Timestamp:      msg.Timestamp,
	})
	if err != nil {
		return false, fmt.Errorf("record inbound message: %w", err)
	}
	if !inserted {
		log.Info("duplicate delivery, skipping")
	}
	return inserted, nil
}

func (s *Service) handleText(ctx context.Context, log *zap.Logger, candidate *models.Candidate, msg whatsapp.InboundMessage) error {
	inserted, err := s.record(ctx, log, msg, msg.Text)
	if err != nil || !inserted {
		return err
	}

	if !candidate.IsBotActive() {
		log.Info("bot inactive, message stored only")
		return nil
	}

	turn := s.dialogue.HandleInboundText(ctx, orchestrator.Inbound{
		Phone:       msg.Phone,
		Text:        msg.Text,
		DisplayName: msg.DisplayName,
		MessageID:   msg.ID,
	})

	// A recruiter may have taken over while the reply was generated.
	if !turn.HandedOff && s.takenOver(ctx, log, msg.Phone) {
		log.Info("recruiter took over during the turn, dropping bot reply")
		return nil
	}

	return s.reply(ctx, msg.Phone, turn.Reply)
}

func (s *Service) handleDocument(ctx context.Context, log *zap.Logger, candidate *models.Candidate, msg whatsapp.InboundMessage) error {
	doc := msg.Document
	if doc == nil {
		doc = &whatsapp.Document{}
	}
	log = log.With(zap.String("filename", doc.Filename), zap.String("mime_type", doc.MimeType))

	if !documents.Allowed(doc.MimeType) {
		inserted, err := s.record(ctx, log, msg, rejectedDocumentText(doc.Filename, doc.MimeType))
		if err != nil || !inserted {
			return err
		}
		log.Info("rejecting document", zap.Error(ErrUnsupportedDocument))

		if !candidate.IsBotActive() {
			return nil
		}
		return s.reply(ctx, msg.Phone, MsgUnsupportedDoc)
	}

	inserted, err := s.record(ctx, log, msg, acceptedDocumentText(doc.Filename))
	if err != nil || !inserted {
		return err
	}

	if !candidate.IsBotActive() {
		log.Info("bot inactive, resume stored only")
		return nil
	}

	if err := s.reply(ctx, msg.Phone, MsgResumeAck); err != nil {
		log.Warn("acknowledging resume", zap.Error(err))
	}

	task := queue.ResumeTask{
		Phone:      msg.Phone,
		MessageID:  msg.ID,
		MediaID:    doc.ID,
		Filename:   doc.Filename,
		MimeType:   doc.MimeType,
		EnqueuedAt: s.now(),
	}

	if err := s.queue.Enqueue(ctx, task); err != nil {
		log.Error("enqueueing resume", zap.Error(err))
		return errors.Join(fmt.Errorf("enqueue resume: %w", err), s.reply(ctx, msg.Phone, MsgResumeFailed))
	}

	log.Info("resume queued")
	return nil
}

func (s *Service) handleUnsupported(ctx context.Context, log *zap.Logger, candidate *models.Candidate, msg whatsapp.InboundMessage) error {
	inserted, err := s.record(ctx, log, msg, unsupportedTypeText(msg.Type))
	if err != nil || !inserted {
		return err
	}

	if !candidate.IsBotActive() {
		return nil
	}
	return s.reply(ctx, msg.Phone, MsgUnsupportedType)
}

// takenOver re-reads the bot status. A failed lookup keeps the bot talking.
func (s *Service) takenOver(ctx context.Context, log *zap.Logger, phone string) bool {
	current, err := s.store.GetCandidate(ctx, phone)
	if err != nil {
		log.Warn("re-reading bot status", zap.Error(err))
		return false
	}
	return !current.IsBotActive()
}

func (s *Service) reply(ctx context.Context, phone, body string) error {
	_, err := s.messenger.Send(ctx, phone, body, models.SenderBot)
	return err
}

// ProcessResume is the queue handler for résumé tasks. The candidate always
// receives a next step: a summary, a request to continue with questions or a
// retry message.
func (s *Service) ProcessResume(ctx context.Context, task queue.ResumeTask) error {
	log := logger.WithFields(s.logger, logger.CandidateFields(task.Phone, task.MessageID)...).With(zap.String("filename", task.Filename))

	unlock := s.locks.Lock(task.Phone)
	defer unlock()

	candidate, err := s.store.GetCandidate(ctx, task.Phone)
	if err != nil {
		return fmt.Errorf("get candidate: %w", err)
	}
	if !candidate.IsBotActive() {
		log.Info("bot inactive, skipping resume")
		return nil
	}

	text, err := s.resumeText(ctx, task)
	if err != nil {
		return s.resumeFailed(ctx, log, task.Phone, err)
	}

	update, err := s.resumes.ExtractResume(ctx, text)
	switch {
	case errors.Is(err, extraction.ErrMalformedOutput):
		update = models.CandidateUpdate{}
	case err != nil:
		return s.resumeFailed(ctx, log, task.Phone, fmt.Errorf("extract resume: %w", err))
	}

	if update.IsEmpty() {
		log.Info("no fields found in resume")
		if s.takenOver(ctx, log, task.Phone) {
			log.Info("recruiter took over, skipping resume reply")
			return nil
		}
		return s.reply(ctx, task.Phone, MsgResumeNoFields)
	}

	merged, err := s.store.UpdateCandidate(ctx, task.Phone, update)
	if err != nil {
		return s.resumeFailed(ctx, log, task.Phone, fmt.Errorf("merge resume fields: %w", err))
	}

	log.Info("candidate updated from resume", zap.Strings("fields", update.Fields()))

	if !merged.IsBotActive() {
		log.Info("recruiter took over, skipping resume summary")
		return nil
	}

	if err := s.reply(ctx, task.Phone, fmt.Sprintf(resumeSummaryPattern, resumeSummary(update))); err != nil {
		return err
	}

	s.dialogue.Handoff(ctx, task.Phone, merged)
	return nil
}

func (s *Service) resumeText(ctx context.Context, task queue.ResumeTask) (string, error) {
	media, err := s.media.DownloadMedia(ctx, task.MediaID)
	if err != nil {
		return "", fmt.Errorf("download resume: %w", err)
	}

	mimeType := task.MimeType
	if mimeType == "" {
		mimeType = media.MimeType
	}

	text, err := s.extractText(media.Data, mimeType)
	if err != nil {
		return "", fmt.Errorf("extract resume text: %w", err)
	}
	return text, nil
}

func (s *Service) resumeFailed(ctx context.Context, log *zap.Logger, phone string, cause error) error {
	log.Warn("resume processing failed", zap.Error(cause))
	if s.takenOver(ctx, log, phone) {
		return cause
	}
	return errors.Join(cause, s.reply(ctx, phone, MsgResumeFailed))
}

// resumeSummary lists the extracted fields, one per line.
func resumeSummary(update models.CandidateUpdate) string {
	var c models.Candidate
	update.Apply(&c)

	summary := completion.Summary(&c)
	if c.Email != "" {
		summary = strings.TrimSpace(summary + "\n• E-mail: " + c.Email)
	}
	return summary
}
