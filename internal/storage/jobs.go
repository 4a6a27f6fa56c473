package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/spigell/recrutabot/internal/models"
)

// ListJobs returns jobs newest first. An empty status lists every job.
func (s *Store) ListJobs(ctx context.Context, status models.JobStatus) ([]models.Job, error) {
	q := s.db.WithContext(ctx).Order("created_at desc")
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var jobs []models.Job
	if err := q.Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

func (s *Store) GetJob(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		return nil, notFound(err)
	}
	return &job, nil
}

func (s *Store) CreateJob(ctx context.Context, job *models.Job) error {
	if job == nil || strings.TrimSpace(job.Title) == "" {
		return fmt.Errorf("%w: job title is required", ErrInvalid)
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.JobOpen
	}
	if !job.Status.Valid() {
		return fmt.Errorf("%w: unknown job status %q", ErrInvalid, job.Status)
	}
	if job.Status == models.JobClosed && job.ClosedAt == nil {
		now := s.now()
		job.ClosedAt = &now
	}

	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (s *Store) UpdateJob(ctx context.Context, id string, update models.JobUpdate) (*models.Job, error) {
	if update.Status != nil && !update.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown job status %q", ErrInvalid, *update.Status)
	}

	columns := update.Columns(s.now())
	if len(columns) > 0 {
		res := s.db.WithContext(ctx).Model(&models.Job{}).Where("id = ?", id).Updates(columns)
		if res.Error != nil {
			return nil, fmt.Errorf("update job: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}

	return s.GetJob(ctx, id)
}

// DeleteJob removes a job and detaches the candidates linked to it.
func (s *Store) DeleteJob(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Candidate{}).Where("job_id = ?", id).Update("job_id", gorm.Expr("NULL")).Error; err != nil {
			return fmt.Errorf("detach candidates: %w", err)
		}

		res := tx.Where("id = ?", id).Delete(&models.Job{})
		if res.Error != nil {
			return fmt.Errorf("delete job: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
