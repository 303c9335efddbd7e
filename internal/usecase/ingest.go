package usecase

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"openkeywords/internal/domain"
)

// Schemas for model output. They are deliberately loose about optional
// fields: a missing keyword text is dropped later, not rejected here.
var (
	keywordListSchema = jsonschema.MustCompileString("keywords.json", `{
		"type": "object",
		"required": ["keywords"],
		"properties": {
			"keywords": {
				"type": "array",
				"items": {
					"type": "object",
					"properties": {
						"keyword": {"type": "string"},
						"intent": {"type": "string"},
						"is_question": {"type": "boolean"},
						"source": {"type": "string"}
					}
				}
			}
		}
	}`)

	scoresSchema = jsonschema.MustCompileString("scores.json", `{
		"type": "object",
		"required": ["scores"],
		"properties": {
			"scores": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["keyword"],
					"properties": {
						"keyword": {"type": "string"},
						"score": {"type": "number"}
					}
				}
			}
		}
	}`)

	clustersSchema = jsonschema.MustCompileString("clusters.json", `{
		"type": "object",
		"required": ["clusters"],
		"properties": {
			"clusters": {
				"type": "array",
				"items": {
					"type": "object",
					"properties": {
						"cluster_name": {"type": "string"},
						"keywords": {"type": "array", "items": {"type": "string"}}
					}
				}
			}
		}
	}`)

	companySchema = jsonschema.MustCompileString("company.json", `{
		"type": "object",
		"properties": {
			"industry": {"type": "string"},
			"description": {"type": "string"},
			"products": {"type": "array", "items": {"type": "string"}},
			"services": {"type": "array", "items": {"type": "string"}},
			"pain_points": {"type": "array", "items": {"type": "string"}},
			"value_propositions": {"type": "array", "items": {"type": "string"}},
			"differentiators": {"type": "array", "items": {"type": "string"}}
		}
	}`)
)

type keywordEntry struct {
	Keyword    string `json:"keyword"`
	Intent     string `json:"intent"`
	IsQuestion bool   `json:"is_question"`
	Source     string `json:"source"`
}

type keywordList struct {
	Keywords []keywordEntry `json:"keywords"`
}

type scoreList struct {
	Scores []struct {
		Keyword string   `json:"keyword"`
		Score   *float64 `json:"score"`
	} `json:"scores"`
}

type clusterList struct {
	Clusters []struct {
		Name     string   `json:"cluster_name"`
		Keywords []string `json:"keywords"`
	} `json:"clusters"`
}

type companyProfile struct {
	Industry          string   `json:"industry"`
	Description       string   `json:"description"`
	Products          []string `json:"products"`
	Services          []string `json:"services"`
	PainPoints        []string `json:"pain_points"`
	ValuePropositions []string `json:"value_propositions"`
	Differentiators   []string `json:"differentiators"`
}

// stripCodeFence returns the body of the first ```json (or bare ```) block,
// or the trimmed text when there is none.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	for _, open := range []string{"```json", "```"} {
		if i := strings.Index(text, open); i >= 0 {
			rest := text[i+len(open):]
			if j := strings.Index(rest, "```"); j >= 0 {
				rest = rest[:j]
			}
			return strings.TrimSpace(rest)
		}
	}
	return text
}

// decodeModelJSON validates raw model output against schema and decodes it into out.
func decodeModelJSON(raw string, schema *jsonschema.Schema, out any) error {
	body := stripCodeFence(raw)
	if body == "" {
		return domain.ErrEmptyResponse
	}
	var v any
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		return fmt.Errorf("parse model json: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("model json does not match schema: %w", err)
	}
	return json.Unmarshal([]byte(body), out)
}
