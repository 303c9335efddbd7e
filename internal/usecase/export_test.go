//go:build !integration

package usecase_test

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"openkeywords/internal/domain"
	"openkeywords/internal/domain/model"
	"openkeywords/internal/usecase"
)

func sampleResult() *model.GenerationResult {
	return &model.GenerationResult{
		Keywords: []model.KeywordCandidate{
			{Text: "=HYPERLINK(\"x\")", Intent: model.IntentCommercial, Score: 80, Source: model.SourceAIGenerated, ClusterName: "Risky", Difficulty: 50},
			{Text: "crm for agencies", Score: 60, Source: model.SourceResearchReddit, ClusterName: "Niche", Volume: 90, Difficulty: 30, IsQuestion: false},
		},
		Clusters: []model.Cluster{{Name: "Risky", Keywords: []string{"=HYPERLINK(\"x\")"}, Count: 1}, {Name: "Niche", Keywords: []string{"crm for agencies"}, Count: 1}},
	}
}

func TestSanitizeCell(t *testing.T) {
	for _, in := range []string{"=1+1", "+1", "-1", "@SUM", "\tx", "\rx"} {
		assert.Equal(t, "'"+in, usecase.SanitizeCell(in))
	}
	assert.Equal(t, "plain", usecase.SanitizeCell("plain"))
	assert.Equal(t, "", usecase.SanitizeCell(""))
}

func TestParseExportFormat(t *testing.T) {
	f, err := usecase.ParseExportFormat("XLSX")
	require.NoError(t, err)
	assert.Equal(t, usecase.FormatXLSX, f)
	assert.Equal(t, "keywords_12345678.xlsx", f.Filename("12345678-aaaa"))

	_, err = usecase.ParseExportFormat("pdf")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestExportCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, usecase.Export(&buf, usecase.FormatCSV, sampleResult()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"keyword", "intent", "score", "cluster", "is_question", "volume", "difficulty", "source"}, rows[0])
	assert.Equal(t, "'=HYPERLINK(\"x\")", rows[1][0])
	assert.Equal(t, []string{"crm for agencies", "informational", "60", "Niche", "false", "90", "30", "research_reddit"}, rows[2])
}

func TestExportJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, usecase.Export(&buf, usecase.FormatJSON, sampleResult()))
	var got model.GenerationResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Len(t, got.Keywords, 2)
	assert.Equal(t, "=HYPERLINK(\"x\")", got.Keywords[0].Text)
}

func TestExportXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, usecase.Export(&buf, usecase.FormatXLSX, sampleResult()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	v, err := f.GetCellValue("Keywords", "A2")
	require.NoError(t, err)
	assert.Equal(t, "'=HYPERLINK(\"x\")", v)
	v, err = f.GetCellValue("Clusters", "A3")
	require.NoError(t, err)
	assert.Equal(t, "Niche", v)
}

func TestExportWithoutResult(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, usecase.Export(&buf, usecase.FormatJSON, nil), domain.ErrNotCompleted)
}
