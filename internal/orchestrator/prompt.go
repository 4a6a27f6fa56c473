package orchestrator

import (
	"fmt"
	"strings"

	_ "embed"

	"github.com/spigell/recrutabot/internal/models"
)

//go:embed default_prompt.md
var defaultSystemPrompt string

//go:embed instructions.md
var instructions string

// FallbackReply is sent whenever a reply could not be generated.
const FallbackReply = "Desculpe, estou com dificuldades técnicas no momento. Você poderia repetir sua mensagem?"

// DefaultSystemPrompt is used when no prompt is active or the store is unreachable.
func DefaultSystemPrompt() string {
	return strings.TrimSpace(defaultSystemPrompt)
}

func speaker(s models.Sender) string {
	switch s {
	case models.SenderCandidate:
		return "Candidato"
	case models.SenderRecruiter:
		return "Recrutador"
	default:
		return "Assistente"
	}
}

// Transcript renders messages in order, one tagged line per message.
func Transcript(messages []models.Message) string {
	lines := make([]string, 0, len(messages))
	for i, m := range messages {
		lines = append(lines, fmt.Sprintf("[Mensagem %d] %s: %s", i+1, speaker(m.Sender), m.Text))
	}
	return strings.Join(lines, "\n")
}

// JobsSummary lists open jobs for the dialogue prompt. No jobs renders as "".
func JobsSummary(jobs []models.Job) string {
	var b strings.Builder
	for _, job := range jobs {
		if job.Status != "" && job.Status != models.JobOpen {
			continue
		}
		if b.Len() == 0 {
			b.WriteString("VAGAS ABERTAS:\n")
		}

		b.WriteString("- ")
		b.WriteString(job.Title)

		var details []string
		if job.Seniority != "" {
			details = append(details, job.Seniority)
		}
		if job.Location != "" {
			details = append(details, job.Location)
		}
		if len(details) > 0 {
			b.WriteString(" (" + strings.Join(details, ", ") + ")")
		}
		if len(job.RequiredSkills) > 0 {
			b.WriteString(": " + strings.Join(job.RequiredSkills, ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

type promptParts struct {
	jobs        string
	status      string
	transcript  string
	displayName string
	message     string
}

// build concatenates the sections in a fixed order: jobs, status, history, new message, instructions.
func (p promptParts) build() string {
	var b strings.Builder

	if jobs := strings.TrimSpace(p.jobs); jobs != "" {
		b.WriteString(jobs)
		b.WriteString("\n\n")
	}

	b.WriteString(strings.TrimSpace(p.status))
	b.WriteString("\n\n")

	b.WriteString("HISTÓRICO COMPLETO DA CONVERSA:\n")
	if t := strings.TrimSpace(p.transcript); t != "" {
		b.WriteString(t)
	} else {
		b.WriteString("(nenhuma mensagem anterior)")
	}
	b.WriteString("\n\n")

	b.WriteString("NOVA MENSAGEM DO CANDIDATO")
	if p.displayName != "" {
		fmt.Fprintf(&b, " (nome no perfil do WhatsApp: %s)", p.displayName)
	}
	b.WriteString(":\n")
	b.WriteString(strings.TrimSpace(p.message))
	b.WriteString("\n\n")

	b.WriteString(strings.TrimSpace(instructions))

	return b.String()
}

// extractionInput is the prior transcript followed by the new message.
func extractionInput(transcript, message string) string {
	line := "[Nova] Candidato: " + strings.TrimSpace(message)
	if strings.TrimSpace(transcript) == "" {
		return line
	}
	return transcript + "\n" + line
}
