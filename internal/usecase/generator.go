// File: internal/usecase/generator.go
package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"openkeywords/internal/domain"
	"openkeywords/internal/domain/model"
	"openkeywords/internal/domain/ports/adapter"
	"openkeywords/internal/infra/logging"
	"openkeywords/internal/infra/metrics"
	"openkeywords/internal/keyword"
)

// Compile-time check
var _ KeywordGenerator = (*Generator)(nil)

// KeywordGenerator runs one full generation pipeline.
type KeywordGenerator interface {
	Generate(ctx context.Context, req model.KeywordRequest) (*model.GenerationResult, error)
}

const (
	researchMinWords = 3

	stageCompany  = "company_analysis"
	stageResearch = "research"
	stageGenerate = "generate"
	stageScore    = "score"
	stageCluster  = "cluster"
)

// GeneratorOptions tune batch sizes and sampling.
type GeneratorOptions struct {
	Model             string
	BatchSize         int
	ScoringBatchSize  int
	OverGenerateRatio float64
	Temperature       float32
}

func (o GeneratorOptions) withDefaults() GeneratorOptions {
	if o.BatchSize <= 0 {
		o.BatchSize = 15
	}
	if o.ScoringBatchSize <= 0 {
		o.ScoringBatchSize = 25
	}
	if o.OverGenerateRatio <= 1 {
		o.OverGenerateRatio = 2.5
	}
	if o.Temperature <= 0 {
		o.Temperature = 0.8
	}
	return o
}

// Generator chains AI calls with the local keyword engine. volumes and gaps are optional.
type Generator struct {
	ai      adapter.AIServiceAdapter
	volumes adapter.VolumeLookup
	gaps    adapter.GapAnalyzer
	opts    GeneratorOptions
	logger  *zerolog.Logger
	now     func() time.Time
}

func NewGenerator(ai adapter.AIServiceAdapter, volumes adapter.VolumeLookup, gaps adapter.GapAnalyzer, opts GeneratorOptions, logger *zerolog.Logger) *Generator {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Generator{ai: ai, volumes: volumes, gaps: gaps, opts: opts.withDefaults(), logger: logger, now: time.Now}
}

// Generate never fails because of a single AI stage: stages degrade to
// defaults. Errors are returned only for invalid input, a missing provider
// or a cancelled context.
func (g *Generator) Generate(ctx context.Context, req model.KeywordRequest) (*model.GenerationResult, error) {
	start := g.now()
	req = req.Clone()
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if g.ai == nil {
		return nil, domain.ErrNoAIProvider
	}
	log := logging.With(ctx, g.logger)
	defer logging.TraceDuration(log, "Generator.Generate")()
	lang := req.LanguageCode()

	profile := g.analyzeCompany(ctx, log, req)
	if profile != nil {
		if req.Industry == "" {
			req.Industry = profile.Industry
		}
		if req.Description == "" {
			req.Description = profile.Description
		}
		if len(req.Products) == 0 {
			req.Products = profile.Products
		}
		if len(req.Services) == 0 {
			req.Services = profile.Services
		}
	}
	brief := companyContext(req, profile)

	var (
		wg        sync.WaitGroup
		research  []model.KeywordCandidate
		gapped    []model.KeywordCandidate
		generated []model.KeywordCandidate
	)
	if req.EnableResearch {
		wg.Add(1)
		go func() {
			defer wg.Done()
			research = g.research(ctx, log, req, brief, lang)
		}()
		if g.gaps != nil && req.CompanyURL != "" && len(req.Competitors) > 0 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				gapped = g.contentGap(ctx, log, req, lang)
			}()
		}
	}
	generated = g.generate(ctx, log, req, brief, lang)
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw := make([]model.KeywordCandidate, 0, len(research)+len(gapped)+len(generated))
	raw = append(raw, research...)
	raw = append(raw, gapped...)
	raw = append(raw, generated...)
	log.Info().Int("raw", len(raw)).Int("research", len(research)).Int("gap", len(gapped)).Msg("keywords collected")

	if len(raw) == 0 {
		return g.result(start, nil, 0), nil
	}

	dedup := keyword.Deduplicate(raw)
	metrics.AddDuplicates(dedup.Removed)
	log.Info().Int("kept", len(dedup.Keywords)).Int("removed", dedup.Removed).Msg("deduplicated")

	scored := g.score(ctx, log, brief, dedup.Keywords)
	ranked := keyword.RankByScore(scored)
	kept, n := keyword.FilterByMinScore(ranked, req.MinScoreOrDefault())
	metrics.AddFiltered("min_score", n)
	if req.ResearchFocus {
		kept, n = keyword.FilterByMinWordCount(kept, researchMinWords)
		metrics.AddFiltered("min_words", n)
		kept, n = keyword.FilterBroad(kept)
		metrics.AddFiltered("broad", n)
	}

	if req.EnableVolumeLookup && g.volumes != nil && len(kept) > 0 {
		g.applyVolumes(ctx, log, req.Region, kept)
	}
	if req.ClusteringEnabled() && len(kept) > 0 {
		g.cluster(ctx, log, req, kept)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(kept) > req.TargetCount {
		kept = kept[:req.TargetCount]
	}
	return g.result(start, kept, dedup.Removed), nil
}

func (g *Generator) result(start time.Time, kws []model.KeywordCandidate, duplicates int) *model.GenerationResult {
	if kws == nil {
		kws = []model.KeywordCandidate{}
	}
	metrics.ObserveKeywordsReturned(len(kws))
	return &model.GenerationResult{
		Keywords:              kws,
		Clusters:              keyword.BuildClusters(kws),
		Statistics:            keyword.AggregateStatistics(kws, duplicates),
		ProcessingTimeSeconds: g.now().Sub(start).Seconds(),
	}
}

func (g *Generator) call(ctx context.Context, stage, prompt string, temperature float32) (string, error) {
	text, _, err := g.ai.Generate(ctx, adapter.GenerateRequest{
		Model:       g.opts.Model,
		Prompt:      prompt,
		Temperature: temperature,
		JSON:        true,
		Stage:       stage,
	})
	return text, err
}

func (g *Generator) analyzeCompany(ctx context.Context, log *zerolog.Logger, req model.KeywordRequest) *companyProfile {
	if !req.AnalyzeCompanyFirst || req.CompanyURL == "" {
		return nil
	}
	defer logging.TraceDuration(log, "Generator.analyzeCompany")()
	raw, err := g.call(ctx, stageCompany, companyAnalysisPrompt(req), 0.2)
	if err != nil {
		log.Warn().Err(err).Msg("company analysis failed")
		metrics.IncBatchFailure(stageCompany)
		return nil
	}
	var p companyProfile
	if err := decodeModelJSON(raw, companySchema, &p); err != nil {
		log.Warn().Err(err).Msg("company analysis unreadable")
		metrics.IncBatchFailure(stageCompany)
		return nil
	}
	return &p
}

func (g *Generator) research(ctx context.Context, log *zerolog.Logger, req model.KeywordRequest, brief, lang string) []model.KeywordCandidate {
	defer logging.TraceDuration(log, "Generator.research")()
	raw, err := g.call(ctx, stageResearch, researchPrompt(req, brief, max(10, req.TargetCount/2)), 0.3)
	if err == nil {
		var list keywordList
		if err = decodeModelJSON(raw, keywordListSchema, &list); err == nil {
			return toCandidates(list.Keywords, model.SourceResearchForum, lang, researchSource)
		}
	}
	log.Warn().Err(err).Msg("research failed")
	metrics.IncBatchFailure(stageResearch)
	return nil
}

func researchSource(s string) string {
	switch s {
	case model.SourceResearchReddit, model.SourceResearchQuora, model.SourceResearchForum:
		return s
	}
	return ""
}

func (g *Generator) contentGap(ctx context.Context, log *zerolog.Logger, req model.KeywordRequest, lang string) []model.KeywordCandidate {
	gaps, err := g.gaps.ContentGap(ctx, hostOf(req.CompanyURL), req.Competitors, req.Region)
	if err != nil {
		log.Warn().Err(err).Msg("content gap analysis failed")
	}
	out := make([]model.KeywordCandidate, 0, len(gaps))
	for _, gk := range gaps {
		c, ok := keyword.NewCandidate(gk.Keyword, "", false, model.SourceGapAnalysis, lang)
		if !ok {
			continue
		}
		c.Volume = gk.Volume
		c.Difficulty = gk.Difficulty
		out = append(out, c)
	}
	return out
}

// generate fans out ceil(target*ratio/batch) generation calls. Each batch is
// independent; a failed batch contributes nothing.
func (g *Generator) generate(ctx context.Context, log *zerolog.Logger, req model.KeywordRequest, brief, lang string) []model.KeywordCandidate {
	defer logging.TraceDuration(log, "Generator.generate")()
	size := g.opts.BatchSize
	buffer := int(float64(req.TargetCount) * g.opts.OverGenerateRatio)
	batches := int(math.Ceil(float64(buffer) / float64(size)))
	prompt := generationPrompt(req, brief, size)

	results := make([][]model.KeywordCandidate, batches)
	errs := fanOut(ctx, batches, func(ctx context.Context, i int) error {
		raw, err := g.call(ctx, stageGenerate, prompt, g.opts.Temperature)
		if err != nil {
			return err
		}
		var list keywordList
		if err := decodeModelJSON(raw, keywordListSchema, &list); err != nil {
			return err
		}
		results[i] = toCandidates(list.Keywords, model.SourceAIGenerated, lang, nil)
		return nil
	})

	var out []model.KeywordCandidate
	for i, err := range errs {
		if err != nil {
			log.Error().Err(err).Int("batch", i+1).Int("of", batches).Msg("generation batch failed")
			metrics.IncBatchFailure(stageGenerate)
			continue
		}
		out = append(out, results[i]...)
	}
	return out
}

// score assigns a score to every candidate. Batches that fail keep their
// keywords at model.DefaultScore.
func (g *Generator) score(ctx context.Context, log *zerolog.Logger, brief string, candidates []model.KeywordCandidate) []model.KeywordCandidate {
	defer logging.TraceDuration(log, "Generator.score")()
	out := append([]model.KeywordCandidate(nil), candidates...)
	size := g.opts.ScoringBatchSize
	batches := (len(out) + size - 1) / size

	errs := fanOut(ctx, batches, func(ctx context.Context, i int) error {
		batch := out[i*size : min((i+1)*size, len(out))]
		raw, err := g.call(ctx, stageScore, scoringPrompt(brief, batch), 0.3)
		if err != nil {
			return err
		}
		var list scoreList
		if err := decodeModelJSON(raw, scoresSchema, &list); err != nil {
			return err
		}
		scores := make(map[string]int, len(list.Scores))
		for _, s := range list.Scores {
			v := model.DefaultScore
			if s.Score != nil {
				v = keyword.ClampScore(int(math.Round(*s.Score)))
			}
			scores[strings.ToLower(strings.TrimSpace(s.Keyword))] = v
		}
		for j := range batch {
			if v, ok := scores[batch[j].NormalizedText()]; ok {
				batch[j].Score = v
			} else {
				batch[j].Score = model.DefaultScore
			}
		}
		return nil
	})

	for i, err := range errs {
		if err == nil {
			continue
		}
		log.Error().Err(err).Int("batch", i+1).Int("of", batches).Msg("scoring batch failed, using default score")
		metrics.IncBatchFailure(stageScore)
		for j := i * size; j < min((i+1)*size, len(out)); j++ {
			out[j].Score = model.DefaultScore
		}
	}
	return out
}

func (g *Generator) applyVolumes(ctx context.Context, log *zerolog.Logger, region string, candidates []model.KeywordCandidate) {
	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Text
	}
	data, err := g.volumes.LookupVolumes(ctx, texts, region)
	if err != nil {
		log.Warn().Err(err).Msg("volume lookup failed")
	}
	for i := range candidates {
		if d, ok := data[candidates[i].NormalizedText()]; ok {
			candidates[i].Volume = d.Volume
			candidates[i].Difficulty = d.Difficulty
		}
	}
}

// cluster labels candidates in place. Keywords the model leaves out get
// ClusterOther; a failed call labels everything ClusterGeneral.
func (g *Generator) cluster(ctx context.Context, log *zerolog.Logger, req model.KeywordRequest, candidates []model.KeywordCandidate) {
	defer logging.TraceDuration(log, "Generator.cluster")()
	raw, err := g.call(ctx, stageCluster, clusteringPrompt(req.CompanyName, req.ClusterCount, candidates), 0.5)
	var list clusterList
	if err == nil {
		err = decodeModelJSON(raw, clustersSchema, &list)
	}
	if err != nil {
		log.Error().Err(err).Msg("clustering failed")
		metrics.IncBatchFailure(stageCluster)
		for i := range candidates {
			candidates[i].ClusterName = model.ClusterGeneral
		}
		return
	}

	names := map[string]string{}
	for _, c := range list.Clusters {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			name = model.ClusterUncategorized
		}
		for _, kw := range c.Keywords {
			names[strings.ToLower(strings.TrimSpace(kw))] = name
		}
	}
	for i := range candidates {
		if name, ok := names[candidates[i].NormalizedText()]; ok {
			candidates[i].ClusterName = name
		} else {
			candidates[i].ClusterName = model.ClusterOther
		}
	}
	log.Info().Int("keywords", len(candidates)).Int("clusters", len(list.Clusters)).Msg("clustered")
}

// fanOut runs fn for every index concurrently and waits for all of them.
// A panic in one call is reported as that index's error.
func fanOut(ctx context.Context, n int, fn func(ctx context.Context, i int) error) []error {
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errs[i] = panicError{r}
				}
			}()
			errs[i] = fn(ctx, i)
		}(i)
	}
	wg.Wait()
	return errs
}

func toCandidates(entries []keywordEntry, defaultSource, lang string, source func(string) string) []model.KeywordCandidate {
	out := make([]model.KeywordCandidate, 0, len(entries))
	for _, e := range entries {
		src := defaultSource
		if source != nil {
			if s := source(e.Source); s != "" {
				src = s
			}
		}
		if c, ok := keyword.NewCandidate(e.Keyword, e.Intent, e.IsQuestion, src, lang); ok {
			out = append(out, c)
		}
	}
	return out
}

func hostOf(rawURL string) string {
	s := strings.TrimPrefix(strings.TrimPrefix(rawURL, "https://"), "http://")
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimPrefix(s, "www.")
}

type panicError struct{ v any }

func (p panicError) Error() string { return fmt.Sprintf("panic: %v", p.v) }
