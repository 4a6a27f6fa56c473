package whatsapp

import "strings"

// NormalizePhone strips every non-digit and restores the mobile "9" prefix that
// Brazilian numbers lose in some webhook payloads: a 12 digit number starting
// with country code 55 gets a 9 inserted right after the two digit area code.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}

	digits := b.String()
	if strings.HasPrefix(digits, "55") && len(digits) == 12 {
		return digits[:4] + "9" + digits[4:]
	}
	return digits
}
