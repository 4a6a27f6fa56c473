// Package documents turns résumé attachments into plain text.
package documents

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"code.sajari.com/docconv"
	"github.com/xuri/excelize/v2"
)

const (
	MimePDF  = "application/pdf"
	MimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MimeCSV  = "text/csv"
)

var (
	ErrUnsupported = errors.New("unsupported document type")
	ErrEmpty       = errors.New("document has no text")
)

var allowed = map[string]struct{}{
	MimePDF:  {},
	MimeXLSX: {},
	MimeCSV:  {},
}

// Allowed reports whether résumés of this MIME type are accepted.
// Parameters such as "; charset=utf-8" are ignored.
func Allowed(mimeType string) bool {
	_, ok := allowed[baseType(mimeType)]
	return ok
}

func baseType(mimeType string) string {
	base, _, _ := strings.Cut(mimeType, ";")
	return strings.ToLower(strings.TrimSpace(base))
}

// ExtractText converts the document into text suitable for the extraction prompt.
// Spreadsheet rows become comma separated lines, one per row and sheet.
func ExtractText(data []byte, mimeType string) (string, error) {
	var (
		text string
		err  error
	)

	switch baseType(mimeType) {
	case MimePDF:
		text, err = pdfText(data)
	case MimeXLSX:
		text, err = xlsxText(data)
	case MimeCSV:
		text, err = csvText(bytes.NewReader(data))
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, mimeType)
	}
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmpty
	}
	return text, nil
}

func pdfText(data []byte) (string, error) {
	res, err := docconv.Convert(bytes.NewReader(data), MimePDF, false)
	if err != nil {
		return "", fmt.Errorf("failed to parse pdf: %w", err)
	}
	return res.Body, nil
}

func xlsxText(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}
		writeRows(&b, rows)
	}

	return b.String(), nil
}

func csvText(r io.Reader) (string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return "", fmt.Errorf("failed to parse csv: %w", err)
	}

	var b strings.Builder
	writeRows(&b, rows)
	return b.String(), nil
}

func writeRows(b *strings.Builder, rows [][]string) {
	for _, row := range rows {
		cells := make([]string, 0, len(row))
		for _, cell := range row {
			if cell = strings.TrimSpace(cell); cell != "" {
				cells = append(cells, cell)
			}
		}
		if len(cells) == 0 {
			continue
		}
		b.WriteString(strings.Join(cells, ", "))
		b.WriteByte('\n')
	}
}
