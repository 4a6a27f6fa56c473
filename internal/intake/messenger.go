package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/recrutabot/internal/logger"
	"github.com/spigell/recrutabot/internal/models"
	"github.com/spigell/recrutabot/internal/whatsapp"
)

type Sender interface {
	SendText(ctx context.Context, to, body string) (string, error)
}

// Messenger delivers outbound messages and records them in the transcript.
type Messenger struct {
	store       Store
	transport   Sender
	logger      *zap.Logger
	placeholder string
	now         func() time.Time
}

func NewMessenger(store Store, transport Sender, placeholder string, log *zap.Logger) *Messenger {
	if placeholder == "" {
		placeholder = DefaultPlaceholder
	}

	return &Messenger{
		store:       store,
		transport:   transport,
		logger:      logger.WithFields(log, zap.String("component", "messenger")),
		placeholder: placeholder,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Send delivers body to phone. A recruiter send silences the bot before the
// transport is called, whatever the outcome of the delivery.
func (m *Messenger) Send(ctx context.Context, phone, body string, sender models.Sender) (*models.Message, error) {
	phone = whatsapp.NormalizePhone(phone)
	if phone == "" {
		return nil, errors.New("phone is required")
	}
	if strings.TrimSpace(body) == "" {
		return nil, errors.New("message is required")
	}

	log := logger.WithFields(m.logger, logger.CandidateFields(phone, "")...).With(zap.String("sender", string(sender)))
	now := m.now()

	if _, _, err := m.store.EnsureCandidate(ctx, phone, m.placeholder, now); err != nil {
		return nil, fmt.Errorf("ensure candidate: %w", err)
	}

	if sender == models.SenderRecruiter {
		if err := m.store.SetBotStatus(ctx, phone, models.BotInactive); err != nil {
			return nil, fmt.Errorf("deactivate bot: %w", err)
		}
		log.Info("recruiter took over, bot deactivated")
	}

	id, err := m.transport.SendText(ctx, phone, body)
	if err != nil {
		log.Error("sending message", zap.Error(err))
		return nil, fmt.Errorf("send message: %w", err)
	}
	if id == "" {
		id = uuid.NewString()
	}

	msg := &models.Message{
		ID:             id,
		CandidatePhone: phone,
		Sender:         sender,
		Text:           body,
		Timestamp:      now,
		IsRead:         true,
	}

	if _, err := m.store.AddMessage(ctx, msg); err != nil {
		log.Error("recording sent message", zap.Error(err), zap.String(logger.FieldMessageID, id))
		return msg, fmt.Errorf("record message: %w", err)
	}

	log.Debug("message sent", zap.String(logger.FieldMessageID, id))
	return msg, nil
}
