// Package export writes candidate lists to spreadsheets.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/spigell/recrutabot/internal/completion"
	"github.com/spigell/recrutabot/internal/models"
)

const (
	candidatesSheet = "Candidatos"
	summarySheet    = "Resumo"
	timeLayout      = "2006-01-02 15:04"
)

var headers = []string{
	"Nome", "Telefone", "E-mail", "Cargo desejado", "Anos de experiência", "Senioridade",
	"Pretensão salarial", "Localização", "LinkedIn", "Status", "Vaga", "Bot", "Nota",
	"Justificativa", "Triagem completa", "Última mensagem",
}

var border = []excelize.Border{
	{Type: "left", Color: "000000", Style: 1},
	{Type: "right", Color: "000000", Style: 1},
	{Type: "top", Color: "000000", Style: 1},
	{Type: "bottom", Color: "000000", Style: 1},
}

// Candidates writes the workbook to w. jobTitles maps job ids to titles.
func Candidates(w io.Writer, candidates []models.Candidate, jobTitles map[string]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", candidatesSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}

	if err := writeCandidates(f, candidates, jobTitles); err != nil {
		return fmt.Errorf("failed to create candidates sheet: %w", err)
	}
	if err := writeSummary(f, candidates); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	return f.Write(w)
}

// CandidatesToFile writes the workbook to path, adding the .xlsx extension when missing.
func CandidatesToFile(path string, candidates []models.Candidate, jobTitles map[string]string) (string, error) {
	if !strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		path += ".xlsx"
	}
	path = filepath.Clean(path)

	out, err := os.Create(path)
	if err != nil {
		return "", err
	}

	if err := Candidates(out, candidates, jobTitles); err != nil {
		out.Close()
		return "", err
	}

	return path, out.Close()
}

func writeCandidates(f *excelize.File, candidates []models.Candidate, jobTitles map[string]string) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	})
	if err != nil {
		return err
	}

	scoreStyles := map[string]int{}
	for name, color := range map[string]string{"high": "C6EFCE", "mid": "FFEB9C", "low": "FFC7CE"} {
		style, err := f.NewStyle(&excelize.Style{
			Fill:   excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
			Border: border,
		})
		if err != nil {
			return err
		}
		scoreStyles[name] = style
	}

	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(candidatesSheet, cell, header); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(candidatesSheet, "A1", last, headerStyle); err != nil {
		return err
	}
	if err := f.SetColWidth(candidatesSheet, "A", "P", 18); err != nil {
		return err
	}

	for i := range candidates {
		c := &candidates[i]
		row := i + 2

		job := ""
		if c.JobID != nil {
			job = jobTitles[*c.JobID]
			if job == "" {
				job = *c.JobID
			}
		}

		var score any
		if c.Score != nil {
			score = *c.Score
		}

		bot := string(models.BotActive)
		if !c.IsBotActive() {
			bot = string(models.BotInactive)
		}

		complete := "não"
		if completion.Evaluate(c).Complete {
			complete = "sim"
		}

		lastMessage := ""
		if !c.LastMessageAt.IsZero() {
			lastMessage = c.LastMessageAt.UTC().Format(timeLayout)
		}

		values := []any{
			c.Name, c.Phone, c.Email, c.DesiredRole, c.YearsOfExperience, c.Seniority,
			c.ExpectedSalary, c.Location, c.LinkedInURL, string(c.Status), job, bot, score,
			c.ScoreJustification, complete, lastMessage,
		}

		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(candidatesSheet, cell, &values); err != nil {
			return err
		}

		if c.LinkedInURL != "" {
			link, _ := excelize.CoordinatesToCellName(9, row)
			if err := f.SetCellHyperLink(candidatesSheet, link, c.LinkedInURL, "External"); err != nil {
				return err
			}
		}

		if c.Score != nil {
			scoreCell, _ := excelize.CoordinatesToCellName(13, row)
			if err := f.SetCellStyle(candidatesSheet, scoreCell, scoreCell, scoreStyles[scoreBand(*c.Score)]); err != nil {
				return err
			}
		}
	}

	return nil
}

func scoreBand(score int) string {
	switch {
	case score >= 8:
		return "high"
	case score >= 5:
		return "mid"
	default:
		return "low"
	}
}

func writeSummary(f *excelize.File, candidates []models.Candidate) error {
	counts := map[models.CandidateStatus]int{}
	complete := 0
	for i := range candidates {
		status := candidates[i].Status
		if status == "" {
			status = models.StatusNew
		}
		counts[status]++
		if completion.Evaluate(&candidates[i]).Complete {
			complete++
		}
	}

	rows := [][]any{
		{"Total de candidatos", len(candidates)},
		{"Triagens completas", complete},
	}
	for _, status := range []models.CandidateStatus{
		models.StatusNew, models.StatusQualified, models.StatusInterviewing,
		models.StatusOffer, models.StatusHired, models.StatusRejected,
	} {
		rows = append(rows, []any{"Status: " + string(status), counts[status]})
	}

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return err
		}
	}

	return f.SetColWidth(summarySheet, "A", "A", 28)
}
