package storage

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/spigell/recrutabot/internal/models"
)

// ActivePrompt returns the active system prompt or ErrNotFound.
func (s *Store) ActivePrompt(ctx context.Context) (*models.SystemPrompt, error) {
	var p models.SystemPrompt
	err := s.db.WithContext(ctx).Where("is_active = ?", true).Order("id desc").First(&p).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// SetPrompt deactivates every prompt and inserts content as the new active one
// inside a single transaction, so readers never observe zero or two active rows.
func (s *Store) SetPrompt(ctx context.Context, content, updatedBy string) (*models.SystemPrompt, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: prompt content is required", ErrInvalid)
	}

	p := &models.SystemPrompt{Content: content, UpdatedBy: strings.TrimSpace(updatedBy), IsActive: true}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.SystemPrompt{}).Where("is_active = ?", true).Update("is_active", false).Error; err != nil {
			return fmt.Errorf("deactivate prompts: %w", err)
		}
		if err := tx.Create(p).Error; err != nil {
			return fmt.Errorf("insert prompt: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return p, nil
}

// PromptHistory returns up to limit prompts, newest first.
func (s *Store) PromptHistory(ctx context.Context, limit int) ([]models.SystemPrompt, error) {
	if limit <= 0 {
		limit = 20
	}

	var list []models.SystemPrompt
	if err := s.db.WithContext(ctx).Order("id desc").Limit(limit).Find(&list).Error; err != nil {
		return nil, fmt.Errorf("prompt history: %w", err)
	}
	return list, nil
}
