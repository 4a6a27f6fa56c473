package models

import (
	"time"

	"gorm.io/datatypes"
)

type JobStatus string

const (
	JobOpen   JobStatus = "open"
	JobClosed JobStatus = "closed"
)

func (s JobStatus) Valid() bool {
	return s == JobOpen || s == JobClosed
}

// Job is an open or closed position candidates can be matched against.
type Job struct {
	ID             string                      `gorm:"primaryKey;size:64" json:"id"`
	Title          string                      `gorm:"size:255;not null" json:"title"`
	Description    string                      `gorm:"type:text" json:"description"`
	Seniority      string                      `gorm:"size:32" json:"seniority"`
	Location       string                      `gorm:"size:255" json:"location"`
	RequiredSkills datatypes.JSONSlice[string] `json:"requiredSkills"`
	Status         JobStatus                   `gorm:"size:16;default:open;index" json:"status"`
	ClosedAt       *time.Time                  `json:"closedAt,omitempty"`
	CreatedAt      time.Time                   `json:"createdAt"`
	UpdatedAt      time.Time                   `json:"updatedAt"`
}

// SystemPrompt rows are append-only; exactly one row is active at a time.
type SystemPrompt struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	UpdatedBy string    `gorm:"size:255" json:"updatedBy"`
	IsActive  bool      `gorm:"index" json:"isActive"`
	CreatedAt time.Time `json:"updatedAt"`
}

// JobUpdate is a partial job update. Closing a job stamps ClosedAt, reopening clears it.
type JobUpdate struct {
	Title          *string    `json:"title,omitempty"`
	Description    *string    `json:"description,omitempty"`
	Seniority      *string    `json:"seniority,omitempty"`
	Location       *string    `json:"location,omitempty"`
	RequiredSkills *[]string  `json:"requiredSkills,omitempty"`
	Status         *JobStatus `json:"status,omitempty"`
}

func (u JobUpdate) Columns(now time.Time) map[string]any {
	columns := make(map[string]any)
	if u.Title != nil {
		columns["title"] = *u.Title
	}
	if u.Description != nil {
		columns["description"] = *u.Description
	}
	if u.Seniority != nil {
		columns["seniority"] = *u.Seniority
	}
	if u.Location != nil {
		columns["location"] = *u.Location
	}
	if u.RequiredSkills != nil {
		columns["required_skills"] = datatypes.NewJSONSlice(*u.RequiredSkills)
	}
	if u.Status != nil {
		columns["status"] = string(*u.Status)
		switch *u.Status {
		case JobClosed:
			columns["closed_at"] = now
		case JobOpen:
			columns["closed_at"] = nil
		}
	}
	return columns
}
