// Package keyword holds the deterministic, CPU-only keyword post-processing:
// deduplication, ranking, filtering and statistics.
package keyword

import (
	"sort"
	"strings"

	"openkeywords/internal/domain/model"
)

// DeduplicationResult is the output of Deduplicate.
// Removed counts duplicates only; Invalid counts blank candidates that were
// dropped without being treated as duplicates.
type DeduplicationResult struct {
	Keywords []model.KeywordCandidate
	Removed  int
	Invalid  int
}

// Deduplicate collapses exact (case/whitespace-insensitive) duplicates, keeping
// the first occurrence, then collapses candidates whose sorted token multiset
// collides, keeping the highest score (first seen on ties). Output preserves the
// order of the exact-match survivors. The input slice is never modified.
func Deduplicate(candidates []model.KeywordCandidate) DeduplicationResult {
	var res DeduplicationResult
	if len(candidates) == 0 {
		return res
	}

	seen := make(map[string]struct{}, len(candidates))
	phase1 := make([]model.KeywordCandidate, 0, len(candidates))
	norms := make([]string, 0, len(candidates))
	for _, c := range candidates {
		n := c.NormalizedText()
		if n == "" {
			res.Invalid++
			continue
		}
		if _, dup := seen[n]; dup {
			res.Removed++
			continue
		}
		seen[n] = struct{}{}
		phase1 = append(phase1, c)
		norms = append(norms, n)
	}

	// winner maps a token signature to the index in phase1 of its best member.
	winner := make(map[string]int, len(phase1))
	sigs := make([]string, len(phase1))
	for i, n := range norms {
		sig := Signature(n)
		sigs[i] = sig
		best, ok := winner[sig]
		if !ok {
			winner[sig] = i
			continue
		}
		res.Removed++
		if phase1[i].Score > phase1[best].Score {
			winner[sig] = i
		}
	}

	res.Keywords = make([]model.KeywordCandidate, 0, len(winner))
	for i, c := range phase1 {
		if winner[sigs[i]] == i {
			res.Keywords = append(res.Keywords, c)
		}
	}
	return res
}

// Signature is the sorted multiset of whitespace tokens of the normalized text.
func Signature(text string) string {
	tokens := strings.Fields(strings.ToLower(strings.TrimSpace(text)))
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
