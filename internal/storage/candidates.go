package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/spigell/recrutabot/internal/models"
)

func (s *Store) GetCandidate(ctx context.Context, phone string) (*models.Candidate, error) {
	var c models.Candidate
	if err := s.db.WithContext(ctx).Where("phone = ?", phone).First(&c).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (s *Store) GetCandidateByID(ctx context.Context, id string) (*models.Candidate, error) {
	var c models.Candidate
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// ListCandidates returns candidates with the most recent conversations first.
func (s *Store) ListCandidates(ctx context.Context) ([]models.Candidate, error) {
	var list []models.Candidate
	if err := s.db.WithContext(ctx).Order("last_message_at desc").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	return list, nil
}

// EnsureCandidate returns the candidate for phone, creating it with name when absent.
// The boolean reports whether a record was created.
func (s *Store) EnsureCandidate(ctx context.Context, phone, name string, at time.Time) (*models.Candidate, bool, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, false, fmt.Errorf("%w: phone is required", ErrInvalid)
	}
	if at.IsZero() {
		at = s.now()
	}

	c := models.Candidate{
		ID:            uuid.NewString(),
		Phone:         phone,
		Name:          name,
		Status:        models.StatusNew,
		BotStatus:     models.BotActive,
		LastMessageAt: at,
	}

	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "phone"}}, DoNothing: true}).
		Create(&c)
	if res.Error != nil {
		return nil, false, fmt.Errorf("create candidate: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return &c, true, nil
	}

	existing, err := s.GetCandidate(ctx, phone)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// UpdateCandidate merges a partial update and returns the stored record.
func (s *Store) UpdateCandidate(ctx context.Context, phone string, update models.CandidateUpdate) (*models.Candidate, error) {
	if update.Status != nil && !update.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalid, *update.Status)
	}
	if update.BotStatus != nil && !update.BotStatus.Valid() {
		return nil, fmt.Errorf("%w: unknown bot status %q", ErrInvalid, *update.BotStatus)
	}
	if update.YearsOfExperience != nil && *update.YearsOfExperience < 0 {
		return nil, fmt.Errorf("%w: years of experience must not be negative", ErrInvalid)
	}

	columns := update.Columns()
	if len(columns) > 0 {
		res := s.db.WithContext(ctx).Model(&models.Candidate{}).Where("phone = ?", phone).Updates(columns)
		if res.Error != nil {
			return nil, fmt.Errorf("update candidate: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}

	return s.GetCandidate(ctx, phone)
}

func (s *Store) SetBotStatus(ctx context.Context, phone string, status models.BotStatus) error {
	_, err := s.UpdateCandidate(ctx, phone, models.CandidateUpdate{BotStatus: &status})
	return err
}

func (s *Store) SaveScore(ctx context.Context, id string, score int, justification string) error {
	res := s.db.WithContext(ctx).Model(&models.Candidate{}).Where("id = ?", id).Updates(map[string]any{
		"score":               score,
		"score_justification": justification,
	})
	if res.Error != nil {
		return fmt.Errorf("save score: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCandidate removes the candidate and its whole transcript in one transaction.
func (s *Store) DeleteCandidate(ctx context.Context, phone string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("candidate_phone = ?", phone).Delete(&models.Message{}).Error; err != nil {
			return fmt.Errorf("delete messages: %w", err)
		}

		res := tx.Where("phone = ?", phone).Delete(&models.Candidate{})
		if res.Error != nil {
			return fmt.Errorf("delete candidate: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
