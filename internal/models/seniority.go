package models

const (
	SeniorityJunior = "Junior"
	SeniorityMid    = "Mid"
	SenioritySenior = "Senior"
)

// DeriveSeniority maps years of experience to a seniority band:
// below 3 is Junior, below 6 is Mid, anything else is Senior.
func DeriveSeniority(years float64) string {
	switch {
	case years < 3:
		return SeniorityJunior
	case years < 6:
		return SeniorityMid
	default:
		return SenioritySenior
	}
}
