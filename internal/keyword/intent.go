package keyword

import (
	"strings"

	"openkeywords/internal/domain/model"
)

var questionStarters = map[string][]string{
	"de": {"wie", "was", "warum", "wann", "wo", "welch", "wer", "woher", "wohin", "weshalb"},
	"en": {"how", "what", "why", "when", "where", "which", "who", "can", "should", "is", "are"},
	"fr": {"comment", "quoi", "pourquoi", "quand", "où", "quel", "qui"},
	"es": {"cómo", "qué", "por qué", "cuándo", "dónde", "cuál", "quién"},
	"it": {"come", "cosa", "perché", "quando", "dove", "quale", "chi"},
	"nl": {"hoe", "wat", "waarom", "wanneer", "waar", "welke", "wie"},
}

type intentPatterns struct {
	comparison    []string
	transactional []string
	commercial    []string
}

var patternsByLang = map[string]intentPatterns{
	"de": {
		comparison:    []string{"vs", "versus", "alternative", "unterschied", "vergleich", "oder"},
		transactional: []string{"buchen", "kaufen", "bestellen", "termin", "anfragen", "vereinbaren"},
		commercial:    []string{"beste", "bester", "top", "kosten", "preis", "bewertung", "erfahrungen"},
	},
	"en": {
		comparison:    []string{"vs", "versus", "alternative", "difference", "compared", "comparison"},
		transactional: []string{"book", "buy", "purchase", "order", "get", "hire", "sign up"},
		commercial:    []string{"best", "top", "review", "pricing", "cost", "price", "rated", "compare"},
	},
}

var defaultPatterns = intentPatterns{
	comparison:    []string{"vs", "versus", "alternative", "difference", "compared"},
	transactional: []string{"book", "buy", "purchase", "order", "get"},
	commercial:    []string{"best", "top", "review", "pricing", "cost"},
}

// IsQuestion reports whether text starts with a question word of lang.
// Unknown languages use the English list.
func IsQuestion(text, lang string) bool {
	starters, ok := questionStarters[lang]
	if !ok {
		starters = questionStarters["en"]
	}
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, q := range starters {
		if strings.HasPrefix(lower, q) {
			return true
		}
	}
	return false
}

// ClassifyIntent trusts a valid model-supplied intent, otherwise falls back to
// substring patterns for lang.
func ClassifyIntent(text, aiIntent, lang string) model.Intent {
	if in, ok := model.ParseIntent(aiIntent); ok {
		return in
	}
	if IsQuestion(text, lang) {
		return model.IntentQuestion
	}
	p, ok := patternsByLang[lang]
	if !ok {
		p = defaultPatterns
	}
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, p.comparison):
		return model.IntentComparison
	case containsAny(lower, p.transactional):
		return model.IntentTransactional
	case containsAny(lower, p.commercial):
		return model.IntentCommercial
	}
	return model.IntentInformational
}

// NewCandidate builds a validated candidate from raw model output. ok is false
// when the text is blank. Question detection overrides the intent.
func NewCandidate(text, aiIntent string, isQuestion bool, source, lang string) (model.KeywordCandidate, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.KeywordCandidate{}, false
	}
	intent := ClassifyIntent(text, aiIntent, lang)
	if !isQuestion {
		isQuestion = IsQuestion(text, lang)
	}
	if isQuestion {
		intent = model.IntentQuestion
	}
	if source == "" {
		source = model.SourceAIGenerated
	}
	return model.KeywordCandidate{
		Text:       text,
		Intent:     intent,
		IsQuestion: isQuestion,
		Source:     source,
		Difficulty: model.DefaultDifficulty,
	}, true
}

// ClampScore bounds a model-supplied score to 0..100.
func ClampScore(s int) int {
	switch {
	case s < 0:
		return 0
	case s > 100:
		return 100
	}
	return s
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
