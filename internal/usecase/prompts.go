package usecase

import (
	"fmt"
	"strings"

	"openkeywords/internal/domain/model"
)

// companyContext renders the request (plus optional analysis) as prompt lines.
func companyContext(req model.KeywordRequest, profile *companyProfile) string {
	var b strings.Builder
	line := func(label, v string) {
		if v != "" {
			fmt.Fprintf(&b, "%s: %s\n", label, v)
		}
	}
	list := func(label string, vs []string) {
		if len(vs) > 0 {
			line(label, strings.Join(vs, ", "))
		}
	}

	line("Company", req.CompanyName)
	line("Website", req.CompanyURL)
	line("Industry", req.Industry)
	line("Description", req.Description)
	list("Services", req.Services)
	list("Products", req.Products)
	line("Target Audience", req.TargetAudience)
	line("Location", req.TargetLocation)
	if profile != nil {
		list("Customer Pain Points", profile.PainPoints)
		list("Value Propositions", profile.ValuePropositions)
		list("Differentiators", profile.Differentiators)
	}
	return strings.TrimSpace(b.String())
}

func companyAnalysisPrompt(req model.KeywordRequest) string {
	return fmt.Sprintf(`Analyze the company %q at %s.

Describe what it sells and who buys it. Return ONLY a JSON object:
{"industry": "...", "description": "2-3 sentences", "products": ["..."], "services": ["..."],
 "pain_points": ["..."], "value_propositions": ["..."], "differentiators": ["..."]}`,
		req.CompanyName, req.CompanyURL)
}

func researchPrompt(req model.KeywordRequest, brief string, count int) string {
	return fmt.Sprintf(`Research what real people ask on Reddit, Quora and niche forums about this business.

%s

Find %d long-tail keywords and questions in %s for the %s market.
Prefer exact phrasing from discussions, pain points, comparisons and "how to" queries.

Return ONLY a JSON object:
{"keywords": [{"keyword": "...", "intent": "question|transactional|comparison|commercial|informational",
 "is_question": true, "source": "research_reddit|research_quora|research_forum"}]}`,
		brief, count, strings.ToUpper(req.Language), strings.ToUpper(req.Region))
}

func generationPrompt(req model.KeywordRequest, brief string, count int) string {
	questionMin := max(3, count*25/100)
	commercialMin := max(3, count*25/100)
	transactionalMin := max(2, count*15/100)
	comparisonMin := max(1, count*10/100)

	return fmt.Sprintf(`Generate %d SEO keywords in %s for the %s market.

%s

INTENT TYPES (minimum counts):
- %d+ QUESTION: start with how/what/why/when/where/which
- %d+ TRANSACTIONAL: book, buy, order, get quote, sign up
- %d+ COMPARISON: vs, alternative, difference, compared to
- %d+ COMMERCIAL: best, top, review, pricing, cost
- Rest INFORMATIONAL (max 25%%): guides, benefits, tips

RULES:
- 2 to 7 words per keyword, no single words
- Specific to the company's offerings

Return ONLY a JSON object:
{"keywords": [{"keyword": "...", "intent": "question|transactional|comparison|commercial|informational", "is_question": false}]}`,
		count, strings.ToUpper(req.Language), strings.ToUpper(req.Region), brief,
		questionMin, transactionalMin, comparisonMin, commercialMin)
}

func scoringPrompt(brief string, batch []model.KeywordCandidate) string {
	return fmt.Sprintf(`Score these keywords for company fit on a 1-100 scale.

%s

Keywords to score:
%s

Scoring criteria:
- Product/service relevance (0-40 points)
- Search intent match (0-30 points)
- Business value potential (0-30 points)

Return ONLY a JSON object:
{"scores": [{"keyword": "exact keyword", "score": 75}]}`, brief, bulletList(batch))
}

func clusteringPrompt(companyName string, clusterCount int, candidates []model.KeywordCandidate) string {
	return fmt.Sprintf(`Group these keywords into %d semantic clusters for %s.

Keywords:
%s

Each cluster needs a descriptive name of 2-4 words and every keyword belongs to exactly one cluster.

Return ONLY a JSON object:
{"clusters": [{"cluster_name": "Product Features", "keywords": ["keyword1", "keyword2"]}]}`,
		clusterCount, companyName, bulletList(candidates))
}

func bulletList(candidates []model.KeywordCandidate) string {
	var b strings.Builder
	for _, c := range candidates {
		b.WriteString("- ")
		b.WriteString(c.Text)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}
