package models

import (
	"strings"
	"time"
)

type CandidateStatus string

const (
	StatusNew          CandidateStatus = "new"
	StatusQualified    CandidateStatus = "qualified"
	StatusInterviewing CandidateStatus = "interviewing"
	StatusOffer        CandidateStatus = "offer"
	StatusHired        CandidateStatus = "hired"
	StatusRejected     CandidateStatus = "rejected"
)

// Valid reports whether s belongs to the closed pipeline status set.
func (s CandidateStatus) Valid() bool {
	switch s {
	case StatusNew, StatusQualified, StatusInterviewing, StatusOffer, StatusHired, StatusRejected:
		return true
	}
	return false
}

// BotStatus controls whether automated replies are generated for a candidate.
type BotStatus string

const (
	BotActive   BotStatus = "active"
	BotInactive BotStatus = "inactive"
)

func (s BotStatus) Valid() bool {
	return s == BotActive || s == BotInactive
}

// Candidate is a person being recruited, identified by a normalized phone number.
type Candidate struct {
	ID                 string          `gorm:"primaryKey;size:64" json:"id"`
	Phone              string          `gorm:"size:32;uniqueIndex;not null" json:"phone"`
	Name               string          `gorm:"size:255" json:"name"`
	Email              string          `gorm:"size:255" json:"email,omitempty"`
	DesiredRole        string          `gorm:"size:255" json:"desiredRole,omitempty"`
	YearsOfExperience  float64         `json:"yearsOfExperience"`
	ExpectedSalary     string          `gorm:"size:255" json:"expectedSalary,omitempty"`
	Location           string          `gorm:"size:255" json:"location,omitempty"`
	LinkedInURL        string          `gorm:"column:linkedin_url;size:512" json:"linkedinUrl,omitempty"`
	Seniority          string          `gorm:"size:32" json:"seniority,omitempty"`
	Status             CandidateStatus `gorm:"size:32;default:new;index" json:"status"`
	JobID              *string         `gorm:"size:64;index" json:"jobId,omitempty"`
	Notes              string          `gorm:"type:text" json:"notes,omitempty"`
	Score              *int            `json:"score,omitempty"`
	ScoreJustification string          `gorm:"type:text" json:"score_justification,omitempty"`
	BotStatus          BotStatus       `gorm:"size:16;default:active" json:"bot_status"`
	LastMessageAt      time.Time       `gorm:"index" json:"lastMessageAt"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`

	Messages []Message `gorm:"foreignKey:CandidatePhone;references:Phone;constraint:OnDelete:CASCADE" json:"messages,omitempty"`
}

// IsBotActive treats an unset bot status as active, matching the column default.
func (c *Candidate) IsBotActive() bool {
	return c != nil && (c.BotStatus == "" || c.BotStatus == BotActive)
}

// CandidateUpdate is a partial update. Nil fields are left untouched.
type CandidateUpdate struct {
	Name              *string          `json:"name,omitempty"`
	Email             *string          `json:"email,omitempty"`
	DesiredRole       *string          `json:"desiredRole,omitempty"`
	YearsOfExperience *float64         `json:"yearsOfExperience,omitempty"`
	ExpectedSalary    *string          `json:"expectedSalary,omitempty"`
	Location          *string          `json:"location,omitempty"`
	LinkedInURL       *string          `json:"linkedinUrl,omitempty"`
	Seniority         *string          `json:"seniority,omitempty"`
	Status            *CandidateStatus `json:"status,omitempty"`
	JobID             *string          `json:"jobId,omitempty"`
	Notes             *string          `json:"notes,omitempty"`
	BotStatus         *BotStatus       `json:"bot_status,omitempty"`
}

// Normalize re-derives seniority whenever experience is present. A zero or
// negative value clears it.
func (u CandidateUpdate) Normalize() CandidateUpdate {
	if u.YearsOfExperience == nil {
		return u
	}

	seniority := ""
	if *u.YearsOfExperience > 0 {
		seniority = DeriveSeniority(*u.YearsOfExperience)
	}
	u.Seniority = &seniority
	return u
}

func (u CandidateUpdate) IsEmpty() bool {
	return len(u.Fields()) == 0
}

// Fields lists the json names of the fields carried by the update.
func (u CandidateUpdate) Fields() []string {
	var fields []string
	add := func(set bool, name string) {
		if set {
			fields = append(fields, name)
		}
	}
	add(u.Name != nil, "name")
	add(u.Email != nil, "email")
	add(u.DesiredRole != nil, "desiredRole")
	add(u.YearsOfExperience != nil, "yearsOfExperience")
	add(u.ExpectedSalary != nil, "expectedSalary")
	add(u.Location != nil, "location")
	add(u.LinkedInURL != nil, "linkedinUrl")
	add(u.Seniority != nil, "seniority")
	add(u.Status != nil, "status")
	add(u.JobID != nil, "jobId")
	add(u.Notes != nil, "notes")
	add(u.BotStatus != nil, "bot_status")
	return fields
}

// Apply merges the update into c in memory.
func (u CandidateUpdate) Apply(c *Candidate) {
	if c == nil {
		return
	}
	u = u.Normalize()

	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setString(&c.Name, u.Name)
	setString(&c.Email, u.Email)
	setString(&c.DesiredRole, u.DesiredRole)
	setString(&c.ExpectedSalary, u.ExpectedSalary)
	setString(&c.Location, u.Location)
	setString(&c.LinkedInURL, u.LinkedInURL)
	setString(&c.Seniority, u.Seniority)
	setString(&c.Notes, u.Notes)

	if u.YearsOfExperience != nil {
		c.YearsOfExperience = *u.YearsOfExperience
	}
	if u.Status != nil {
		c.Status = *u.Status
	}
	if u.BotStatus != nil {
		c.BotStatus = *u.BotStatus
	}
	if u.JobID != nil {
		c.JobID = jobRef(*u.JobID)
	}
}

// Columns renders the update as a column map for the store.
func (u CandidateUpdate) Columns() map[string]any {
	u = u.Normalize()

	columns := make(map[string]any)
	put := func(set bool, column string, value func() any) {
		if set {
			columns[column] = value()
		}
	}
	put(u.Name != nil, "name", func() any { return *u.Name })
	put(u.Email != nil, "email", func() any { return *u.Email })
	put(u.DesiredRole != nil, "desired_role", func() any { return *u.DesiredRole })
	put(u.YearsOfExperience != nil, "years_of_experience", func() any { return *u.YearsOfExperience })
	put(u.ExpectedSalary != nil, "expected_salary", func() any { return *u.ExpectedSalary })
	put(u.Location != nil, "location", func() any { return *u.Location })
	put(u.LinkedInURL != nil, "linkedin_url", func() any { return *u.LinkedInURL })
	put(u.Seniority != nil, "seniority", func() any { return *u.Seniority })
	put(u.Status != nil, "status", func() any { return string(*u.Status) })
	put(u.JobID != nil, "job_id", func() any { return jobRef(*u.JobID) })
	put(u.Notes != nil, "notes", func() any { return *u.Notes })
	put(u.BotStatus != nil, "bot_status", func() any { return string(*u.BotStatus) })
	return columns
}

// jobRef maps an empty job id to NULL so a candidate can be detached from a job.
func jobRef(id string) *string {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	return &id
}
