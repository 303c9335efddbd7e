package keyword

import "openkeywords/internal/domain/model"

// Word length buckets.
const (
	LengthShort  = "short"  // 1-3 words
	LengthMedium = "medium" // 4-5 words
	LengthLong   = "long"   // 6+ words
)

// AggregateStatistics summarises candidates without modifying them.
func AggregateStatistics(candidates []model.KeywordCandidate, duplicateCount int) model.Statistics {
	st := model.Statistics{
		Total:                  len(candidates),
		IntentBreakdown:        map[string]int{},
		SourceBreakdown:        map[string]int{},
		WordLengthDistribution: map[string]int{LengthShort: 0, LengthMedium: 0, LengthLong: 0},
		DuplicateCount:         duplicateCount,
	}
	if len(candidates) == 0 {
		return st
	}

	sum := 0
	for _, c := range candidates {
		sum += c.Score
		st.IntentBreakdown[string(c.IntentOrDefault())]++
		src := c.Source
		if src == "" {
			src = model.SourceAIGenerated
		}
		st.SourceBreakdown[src]++
		switch n := c.WordCount(); {
		case n <= 3:
			st.WordLengthDistribution[LengthShort]++
		case n <= 5:
			st.WordLengthDistribution[LengthMedium]++
		default:
			st.WordLengthDistribution[LengthLong]++
		}
	}
	st.AvgScore = float64(sum) / float64(len(candidates))
	return st
}

// BuildClusters groups keyword texts by cluster name in first-seen order.
// Keywords without a cluster name are skipped.
func BuildClusters(candidates []model.KeywordCandidate) []model.Cluster {
	idx := map[string]int{}
	var out []model.Cluster
	for _, c := range candidates {
		if c.ClusterName == "" {
			continue
		}
		i, ok := idx[c.ClusterName]
		if !ok {
			i = len(out)
			idx[c.ClusterName] = i
			out = append(out, model.Cluster{Name: c.ClusterName})
		}
		out[i].Keywords = append(out[i].Keywords, c.Text)
		out[i].Count++
	}
	return out
}
