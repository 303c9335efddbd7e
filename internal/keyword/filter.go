package keyword

import (
	"regexp"
	"sort"

	"openkeywords/internal/domain/model"
)

// RankByScore returns a copy sorted by descending score; ties keep input order.
func RankByScore(candidates []model.KeywordCandidate) []model.KeywordCandidate {
	out := append([]model.KeywordCandidate(nil), candidates...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// FilterByMinScore keeps candidates with Score >= threshold and reports how many were dropped.
func FilterByMinScore(candidates []model.KeywordCandidate, threshold int) ([]model.KeywordCandidate, int) {
	return filter(candidates, func(c model.KeywordCandidate) bool { return c.Score >= threshold })
}

// FilterByMinWordCount keeps candidates with at least minWords tokens.
func FilterByMinWordCount(candidates []model.KeywordCandidate, minWords int) ([]model.KeywordCandidate, int) {
	return filter(candidates, func(c model.KeywordCandidate) bool { return c.WordCount() >= minWords })
}

var broadPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^what is \w+$`),
	regexp.MustCompile(`^\w+ vs \w+$`),
	regexp.MustCompile(`^best \w+$`),
	regexp.MustCompile(`^top \w+$`),
	regexp.MustCompile(`^\w+ guide$`),
	regexp.MustCompile(`^\w+ definition$`),
	regexp.MustCompile(`^\w+ meaning$`),
}

// FilterBroad drops generic head terms such as "best tools" or "what is seo".
func FilterBroad(candidates []model.KeywordCandidate) ([]model.KeywordCandidate, int) {
	return filter(candidates, func(c model.KeywordCandidate) bool {
		n := c.NormalizedText()
		for _, p := range broadPatterns {
			if p.MatchString(n) {
				return false
			}
		}
		return true
	})
}

func filter(candidates []model.KeywordCandidate, keep func(model.KeywordCandidate) bool) ([]model.KeywordCandidate, int) {
	out := make([]model.KeywordCandidate, 0, len(candidates))
	for _, c := range candidates {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out, len(candidates) - len(out)
}
