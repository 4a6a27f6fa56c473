package storage

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/spigell/recrutabot/internal/models"
)

// AddMessage appends to the transcript. A message whose id is already stored is
// ignored and reported as not inserted.
func (s *Store) AddMessage(ctx context.Context, msg *models.Message) (bool, error) {
	if msg == nil || strings.TrimSpace(msg.ID) == "" || strings.TrimSpace(msg.CandidatePhone) == "" {
		return false, fmt.Errorf("%w: message id and phone are required", ErrInvalid)
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	}

	inserted := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(msg)
		if res.Error != nil {
			return fmt.Errorf("insert message: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		inserted = true

		return tx.Model(&models.Candidate{}).
			Where("phone = ? AND last_message_at < ?", msg.CandidatePhone, msg.Timestamp).
			Update("last_message_at", msg.Timestamp).Error
	})

	return inserted, err
}

// ListMessages returns the transcript ordered by timestamp ascending.
func (s *Store) ListMessages(ctx context.Context, phone string) ([]models.Message, error) {
	var msgs []models.Message
	err := s.db.WithContext(ctx).
		Where("candidate_phone = ?", phone).
		Order("timestamp asc").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

// MarkAsRead flags unread candidate messages as read and returns how many changed.
func (s *Store) MarkAsRead(ctx context.Context, phone string) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("candidate_phone = ? AND sender = ? AND is_read = ?", phone, models.SenderCandidate, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, fmt.Errorf("mark as read: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ListConversations returns candidates by most recent activity with their transcripts.
func (s *Store) ListConversations(ctx context.Context) ([]models.Candidate, error) {
	var list []models.Candidate
	err := s.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("timestamp asc")
		}).
		Order("last_message_at desc").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return list, nil
}
