package model

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"openkeywords/internal/domain"
)

const (
	DefaultTargetCount  = 50
	DefaultClusterCount = 6
	DefaultMinScore     = 40
	DefaultLanguage     = "english"
	DefaultRegion       = "us"

	maxListItems   = 20
	maxCompetitors = 10
)

var regionPattern = regexp.MustCompile(`^[a-z]{2}$`)

// KeywordRequest carries everything a caller may ask of one generation run.
type KeywordRequest struct {
	CompanyName    string   `json:"company_name" yaml:"company_name"`
	CompanyURL     string   `json:"company_url,omitempty" yaml:"company_url"`
	Industry       string   `json:"industry,omitempty" yaml:"industry"`
	Description    string   `json:"description,omitempty" yaml:"description"`
	Services       []string `json:"services,omitempty" yaml:"services"`
	Products       []string `json:"products,omitempty" yaml:"products"`
	TargetAudience string   `json:"target_audience,omitempty" yaml:"target_audience"`
	TargetLocation string   `json:"target_location,omitempty" yaml:"target_location"`
	Competitors    []string `json:"competitors,omitempty" yaml:"competitors"`

	TargetCount  int    `json:"target_count" yaml:"target_count"`
	ClusterCount int    `json:"cluster_count" yaml:"cluster_count"`
	MinScore     *int   `json:"min_score,omitempty" yaml:"min_score"`
	Language     string `json:"language" yaml:"language"`
	Region       string `json:"region" yaml:"region"`

	EnableResearch      bool  `json:"enable_research" yaml:"enable_research"`
	ResearchFocus       bool  `json:"research_focus" yaml:"research_focus"`
	EnableVolumeLookup  bool  `json:"enable_volume_lookup" yaml:"enable_volume_lookup"`
	EnableClustering    *bool `json:"enable_clustering,omitempty" yaml:"enable_clustering"`
	AnalyzeCompanyFirst bool  `json:"analyze_company_first" yaml:"analyze_company_first"`
}

// Normalize trims inputs and fills defaults. It is idempotent.
func (r *KeywordRequest) Normalize() {
	r.CompanyName = strings.TrimSpace(r.CompanyName)
	r.CompanyURL = strings.TrimSpace(r.CompanyURL)
	r.Industry = strings.TrimSpace(r.Industry)
	r.Description = strings.TrimSpace(r.Description)
	r.TargetAudience = strings.TrimSpace(r.TargetAudience)
	r.TargetLocation = strings.TrimSpace(r.TargetLocation)
	r.Services = compactList(r.Services)
	r.Products = compactList(r.Products)

	competitors := make([]string, 0, len(r.Competitors))
	for _, c := range compactList(r.Competitors) {
		if !strings.HasPrefix(c, "http://") && !strings.HasPrefix(c, "https://") {
			c = "https://" + c
		}
		competitors = append(competitors, c)
	}
	if len(competitors) > maxCompetitors {
		competitors = competitors[:maxCompetitors]
	}
	r.Competitors = competitors

	if r.TargetCount == 0 {
		r.TargetCount = DefaultTargetCount
	}
	if r.ClusterCount == 0 {
		r.ClusterCount = DefaultClusterCount
	}
	if r.MinScore == nil {
		v := DefaultMinScore
		r.MinScore = &v
	}
	r.Language = strings.ToLower(strings.TrimSpace(r.Language))
	if r.Language == "" {
		r.Language = DefaultLanguage
	}
	r.Region = strings.ToLower(strings.TrimSpace(r.Region))
	if r.Region == "" {
		r.Region = DefaultRegion
	}
	if r.ResearchFocus {
		r.EnableResearch = true
	}
	if r.EnableClustering == nil {
		on := true
		r.EnableClustering = &on
	}
}

// Validate reports the first offending field wrapped in domain.ErrInvalidArgument.
func (r *KeywordRequest) Validate() error {
	switch {
	case r.CompanyName == "" || len(r.CompanyName) > 200:
		return invalid("company_name must be 1-200 characters")
	case len(r.Industry) > 100:
		return invalid("industry must be at most 100 characters")
	case len(r.Description) > 2000:
		return invalid("description must be at most 2000 characters")
	case len(r.TargetAudience) > 500:
		return invalid("target_audience must be at most 500 characters")
	case len(r.TargetLocation) > 100:
		return invalid("target_location must be at most 100 characters")
	case len(r.Services) > maxListItems:
		return invalid("services accepts at most 20 items")
	case len(r.Products) > maxListItems:
		return invalid("products accepts at most 20 items")
	case r.TargetCount < 10 || r.TargetCount > 500:
		return invalid("target_count must be between 10 and 500")
	case r.ClusterCount < 1 || r.ClusterCount > 20:
		return invalid("cluster_count must be between 1 and 20")
	case r.MinScore != nil && (*r.MinScore < 0 || *r.MinScore > 100):
		return invalid("min_score must be between 0 and 100")
	case len(r.Language) > 50:
		return invalid("language must be at most 50 characters")
	case !regionPattern.MatchString(r.Region):
		return invalid("region must be a two-letter ISO 3166-1 code")
	}
	if r.CompanyURL != "" {
		u, err := url.Parse(r.CompanyURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return invalid("company_url must be an absolute http(s) URL")
		}
	}
	return nil
}

// MinScoreOrDefault dereferences MinScore.
func (r *KeywordRequest) MinScoreOrDefault() int {
	if r.MinScore == nil {
		return DefaultMinScore
	}
	return *r.MinScore
}

// ClusteringEnabled defaults to true.
func (r *KeywordRequest) ClusteringEnabled() bool {
	return r.EnableClustering == nil || *r.EnableClustering
}

// LanguageCode is the two-letter prefix used for pattern lookups.
func (r *KeywordRequest) LanguageCode() string {
	if len(r.Language) < 2 {
		return "en"
	}
	return r.Language[:2]
}

// Clone copies the slice fields.
func (r KeywordRequest) Clone() KeywordRequest {
	out := r
	out.Services = append([]string(nil), r.Services...)
	out.Products = append([]string(nil), r.Products...)
	out.Competitors = append([]string(nil), r.Competitors...)
	if r.MinScore != nil {
		v := *r.MinScore
		out.MinScore = &v
	}
	if r.EnableClustering != nil {
		v := *r.EnableClustering
		out.EnableClustering = &v
	}
	return out
}

func compactList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidArgument, msg)
}
