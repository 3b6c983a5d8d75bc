// Package prompts holds the embedded prompt templates for batch
// legend extraction.
package prompts

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"text/template"

	"github.com/voltread/voltread/internal/legend"
)

//go:embed system.tmpl
var systemPrompt string

//go:embed user.tmpl
var userPromptTmpl string

var userTemplate = template.Must(template.New("user").Parse(userPromptTmpl))

// BatchData carries the values interpolated into the user prompt.
type BatchData struct {
	BatchID    string
	StartPage  int
	EndPage    int
	PageCount  int
	LegendJSON string
}

// System returns the system prompt for legend extraction.
func System() string {
	return systemPrompt
}

// Batch builds the user prompt for one page batch, embedding the
// running legend as JSON so the model revises rather than restarts.
func Batch(batchID string, startPage, endPage, pageCount int, current legend.Legend) (string, error) {
	legendJSON, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	data := BatchData{
		BatchID:    batchID,
		StartPage:  startPage,
		EndPage:    endPage,
		PageCount:  pageCount,
		LegendJSON: string(legendJSON),
	}
	if err := userTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
