// Package completion decides which intake fields are still missing for a candidate.
package completion

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spigell/recrutabot/internal/models"
)

// Field identifies one of the required intake fields.
type Field string

const (
	FieldName              Field = "name"
	FieldDesiredRole       Field = "desiredRole"
	FieldYearsOfExperience Field = "yearsOfExperience"
	FieldExpectedSalary    Field = "expectedSalary"
	FieldLocation          Field = "location"
	FieldLinkedInURL       Field = "linkedinUrl"
)

// Required is the fixed, ordered set of fields an intake must collect.
var Required = []Field{
	FieldName,
	FieldDesiredRole,
	FieldYearsOfExperience,
	FieldExpectedSalary,
	FieldLocation,
	FieldLinkedInURL,
}

var labels = map[Field]string{
	FieldName:              "Nome completo",
	FieldDesiredRole:       "Cargo desejado",
	FieldYearsOfExperience: "Anos de experiência",
	FieldExpectedSalary:    "Pretensão salarial",
	FieldLocation:          "Localização",
	FieldLinkedInURL:       "LinkedIn",
}

// Label returns the human readable name of f used in prompts and candidate messages.
func (f Field) Label() string {
	if label, ok := labels[f]; ok {
		return label
	}
	return string(f)
}

// DefaultPlaceholders are names assigned to candidates before they introduce themselves.
var DefaultPlaceholders = []string{"Candidato", "Candidate"}

type Result struct {
	Collected []Field
	Missing   []Field
	Complete  bool
}

// Evaluator holds the placeholder names that do not count as a collected name.
type Evaluator struct {
	placeholders []string
}

func NewEvaluator(extra ...string) *Evaluator {
	placeholders := append([]string{}, DefaultPlaceholders...)
	for _, name := range extra {
		if name = strings.TrimSpace(name); name != "" {
			placeholders = append(placeholders, name)
		}
	}
	return &Evaluator{placeholders: placeholders}
}

// IsPlaceholder reports whether name is empty or one of the placeholder names.
func (e *Evaluator) IsPlaceholder(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return true
	}
	for _, p := range e.placeholders {
		if strings.EqualFold(name, p) {
			return true
		}
	}
	return false
}

// Evaluate partitions the required fields into collected and missing.
// A nil candidate has every field missing.
func (e *Evaluator) Evaluate(c *models.Candidate) Result {
	var res Result
	for _, f := range Required {
		if c != nil && e.collected(c, f) {
			res.Collected = append(res.Collected, f)
			continue
		}
		res.Missing = append(res.Missing, f)
	}
	res.Complete = len(res.Missing) == 0
	return res
}

func (e *Evaluator) collected(c *models.Candidate, f Field) bool {
	switch f {
	case FieldName:
		return !e.IsPlaceholder(c.Name)
	case FieldDesiredRole:
		return strings.TrimSpace(c.DesiredRole) != ""
	case FieldYearsOfExperience:
		return c.YearsOfExperience > 0
	case FieldExpectedSalary:
		return strings.TrimSpace(c.ExpectedSalary) != ""
	case FieldLocation:
		return strings.TrimSpace(c.Location) != ""
	case FieldLinkedInURL:
		return strings.TrimSpace(c.LinkedInURL) != ""
	}
	return false
}

// Evaluate uses the default placeholder set.
func Evaluate(c *models.Candidate) Result {
	return NewEvaluator().Evaluate(c)
}

// Value renders the collected value of f for display.
func Value(c *models.Candidate, f Field) string {
	if c == nil {
		return ""
	}
	switch f {
	case FieldName:
		return c.Name
	case FieldDesiredRole:
		return c.DesiredRole
	case FieldYearsOfExperience:
		if c.Seniority != "" {
			return fmt.Sprintf("%s anos (%s)", formatYears(c.YearsOfExperience), c.Seniority)
		}
		return fmt.Sprintf("%s anos", formatYears(c.YearsOfExperience))
	case FieldExpectedSalary:
		return c.ExpectedSalary
	case FieldLocation:
		return c.Location
	case FieldLinkedInURL:
		return c.LinkedInURL
	}
	return ""
}

func formatYears(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)
}
