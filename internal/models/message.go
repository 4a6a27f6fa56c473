package models

import "time"

type Sender string

const (
	SenderCandidate Sender = "candidate"
	SenderBot       Sender = "bot"
	SenderRecruiter Sender = "recruiter"
)

// Message is one transcript entry. ID is the provider message id when known,
// which makes redelivered webhooks collapse into a single row.
type Message struct {
	ID             string    `gorm:"primaryKey;size:128" json:"id"`
	CandidatePhone string    `gorm:"size:32;index;not null" json:"candidatePhone"`
	Sender         Sender    `gorm:"size:16;not null" json:"sender"`
	Text           string    `gorm:"type:text" json:"text"`
	Timestamp      time.Time `gorm:"index" json:"timestamp"`
	IsRead         bool      `gorm:"default:false" json:"is_read"`
}
