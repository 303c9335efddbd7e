// File: internal/usecase/export.go
package usecase

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"openkeywords/internal/domain"
	"openkeywords/internal/domain/model"
)

type ExportFormat string

const (
	FormatJSON ExportFormat = "json"
	FormatCSV  ExportFormat = "csv"
	FormatXLSX ExportFormat = "xlsx"
)

// ParseExportFormat accepts json, csv or xlsx in any case.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch f := ExportFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatCSV, FormatXLSX:
		return f, nil
	}
	return "", fmt.Errorf("%w: unsupported export format %q", domain.ErrInvalidArgument, s)
}

func (f ExportFormat) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/json"
}

// Filename is the attachment name for a job export.
func (f ExportFormat) Filename(jobID string) string {
	if len(jobID) > 8 {
		jobID = jobID[:8]
	}
	return fmt.Sprintf("keywords_%s.%s", jobID, f)
}

var exportHeaders = []string{"keyword", "intent", "score", "cluster", "is_question", "volume", "difficulty", "source"}

// Export writes result in format f.
func Export(w io.Writer, f ExportFormat, result *model.GenerationResult) error {
	if result == nil {
		return domain.ErrNotCompleted
	}
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case FormatCSV:
		return exportCSV(w, result)
	case FormatXLSX:
		return exportXLSX(w, result)
	}
	return fmt.Errorf("%w: unsupported export format %q", domain.ErrInvalidArgument, f)
}

func exportCSV(w io.Writer, result *model.GenerationResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeaders); err != nil {
		return err
	}
	for _, kw := range result.Keywords {
		if err := cw.Write([]string{
			SanitizeCell(kw.Text),
			SanitizeCell(string(kw.IntentOrDefault())),
			strconv.Itoa(kw.Score),
			SanitizeCell(kw.ClusterName),
			strconv.FormatBool(kw.IsQuestion),
			strconv.Itoa(kw.Volume),
			strconv.Itoa(kw.Difficulty),
			SanitizeCell(kw.Source),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func exportXLSX(w io.Writer, result *model.GenerationResult) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Keywords"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	for r, kw := range result.Keywords {
		row := r + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, SanitizeCell(kw.Text))
		write(2, string(kw.IntentOrDefault()))
		write(3, kw.Score)
		write(4, SanitizeCell(kw.ClusterName))
		write(5, kw.IsQuestion)
		write(6, kw.Volume)
		write(7, kw.Difficulty)
		write(8, kw.Source)
	}
	_ = f.SetColWidth(sheet, "A", "A", 48)
	_ = f.SetColWidth(sheet, "D", "D", 28)

	const clusters = "Clusters"
	if _, err := f.NewSheet(clusters); err != nil {
		return err
	}
	_ = f.SetCellValue(clusters, "A1", "cluster")
	_ = f.SetCellValue(clusters, "B1", "count")
	_ = f.SetCellValue(clusters, "C1", "keywords")
	for r, c := range result.Clusters {
		row := strconv.Itoa(r + 2)
		_ = f.SetCellValue(clusters, "A"+row, SanitizeCell(c.Name))
		_ = f.SetCellValue(clusters, "B"+row, c.Count)
		_ = f.SetCellValue(clusters, "C"+row, SanitizeCell(strings.Join(c.Keywords, ", ")))
	}
	_ = f.SetColWidth(clusters, "A", "A", 28)
	_ = f.SetColWidth(clusters, "C", "C", 80)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

// SanitizeCell prefixes values that a spreadsheet would treat as a formula.
func SanitizeCell(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}
