package model

import "strings"

type Intent string

const (
	IntentTransactional Intent = "transactional"
	IntentCommercial    Intent = "commercial"
	IntentComparison    Intent = "comparison"
	IntentInformational Intent = "informational"
	IntentQuestion      Intent = "question"
)

// Intents lists every valid intent in reporting order.
var Intents = []Intent{
	IntentTransactional,
	IntentCommercial,
	IntentComparison,
	IntentInformational,
	IntentQuestion,
}

// ParseIntent accepts any casing and surrounding whitespace.
func ParseIntent(s string) (Intent, bool) {
	in := Intent(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range Intents {
		if in == v {
			return in, true
		}
	}
	return "", false
}

// Keyword provenance tags.
const (
	SourceAIGenerated    = "ai_generated"
	SourceResearchReddit = "research_reddit"
	SourceResearchQuora  = "research_quora"
	SourceResearchForum  = "research_forum"
	SourceGapAnalysis    = "gap_analysis"
)

// Cluster fallback names.
const (
	ClusterUncategorized = "Uncategorized"
	ClusterOther         = "Other"
	ClusterGeneral       = "General"
)

const (
	DefaultScore      = 50
	DefaultDifficulty = 50
)

// KeywordCandidate is a single proposed keyword and everything the pipeline
// learned about it. Text identity is case-insensitive and whitespace-trimmed.
type KeywordCandidate struct {
	Text        string `json:"keyword"`
	Intent      Intent `json:"intent"`
	IsQuestion  bool   `json:"is_question"`
	Score       int    `json:"score"`
	Source      string `json:"source"`
	ClusterName string `json:"cluster_name,omitempty"`
	Volume      int    `json:"volume"`
	Difficulty  int    `json:"difficulty"`
}

// NormalizedText is the identity key used for exact-match comparison.
func (k KeywordCandidate) NormalizedText() string {
	return strings.ToLower(strings.TrimSpace(k.Text))
}

// IntentOrDefault returns informational when no intent is set.
func (k KeywordCandidate) IntentOrDefault() Intent {
	if k.Intent == "" {
		return IntentInformational
	}
	return k.Intent
}

// WordCount counts whitespace-separated tokens.
func (k KeywordCandidate) WordCount() int {
	return len(strings.Fields(k.Text))
}

type Cluster struct {
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
	Count    int      `json:"count"`
}

type Statistics struct {
	Total                  int            `json:"total"`
	AvgScore               float64        `json:"avg_score"`
	IntentBreakdown        map[string]int `json:"intent_breakdown"`
	SourceBreakdown        map[string]int `json:"source_breakdown"`
	WordLengthDistribution map[string]int `json:"word_length_distribution"`
	DuplicateCount         int            `json:"duplicate_count"`
}

type GenerationResult struct {
	Keywords              []KeywordCandidate `json:"keywords"`
	Clusters              []Cluster          `json:"clusters"`
	Statistics            Statistics         `json:"statistics"`
	ProcessingTimeSeconds float64            `json:"processing_time_seconds"`
}

// Clone returns a deep copy so callers never share slices or maps with the registry.
func (r *GenerationResult) Clone() *GenerationResult {
	if r == nil {
		return nil
	}
	out := &GenerationResult{
		Keywords:              append([]KeywordCandidate(nil), r.Keywords...),
		Clusters:              make([]Cluster, len(r.Clusters)),
		Statistics:            r.Statistics,
		ProcessingTimeSeconds: r.ProcessingTimeSeconds,
	}
	for i, c := range r.Clusters {
		out.Clusters[i] = Cluster{Name: c.Name, Keywords: append([]string(nil), c.Keywords...), Count: c.Count}
	}
	out.Statistics.IntentBreakdown = cloneCounts(r.Statistics.IntentBreakdown)
	out.Statistics.SourceBreakdown = cloneCounts(r.Statistics.SourceBreakdown)
	out.Statistics.WordLengthDistribution = cloneCounts(r.Statistics.WordLengthDistribution)
	return out
}

func cloneCounts(m map[string]int) map[string]int {
	if m == nil {
		return nil
	}
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
