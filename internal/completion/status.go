package completion

import (
	"strings"

	"github.com/spigell/recrutabot/internal/models"
)

// StatusBlock renders the collected/missing summary injected into the dialogue prompt.
func StatusBlock(c *models.Candidate, res Result) string {
	var b strings.Builder

	b.WriteString("STATUS DA TRIAGEM:\n")

	if len(res.Collected) == 0 {
		b.WriteString("Nenhuma informação coletada ainda.\n")
	} else {
		b.WriteString("Informações já coletadas (NÃO pergunte novamente):\n")
		for _, f := range res.Collected {
			b.WriteString("- ")
			b.WriteString(f.Label())
			b.WriteString(": ")
			b.WriteString(Value(c, f))
			b.WriteString("\n")
		}
	}

	if res.Complete {
		b.WriteString("Todas as informações obrigatórias foram coletadas. Agradeça e informe que um recrutador entrará em contato.\n")
		return b.String()
	}

	b.WriteString("Informações faltantes (priorize a próxima da lista):\n")
	for _, f := range res.Missing {
		b.WriteString("- ")
		b.WriteString(f.Label())
		b.WriteString("\n")
	}

	return b.String()
}

// Summary lists the non-empty required fields of c, one per line.
func Summary(c *models.Candidate) string {
	res := Evaluate(c)
	lines := make([]string, 0, len(res.Collected))
	for _, f := range res.Collected {
		lines = append(lines, "• "+f.Label()+": "+Value(c, f))
	}
	return strings.Join(lines, "\n")
}
