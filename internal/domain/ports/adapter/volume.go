package adapter

import "context"

// VolumeData is search volume and ranking difficulty for one keyword.
type VolumeData struct {
	Volume     int
	Difficulty int
}

// VolumeLookup fetches keyword metrics from a third-party SEO service.
// Results are keyed by lowercase keyword.
type VolumeLookup interface {
	LookupVolumes(ctx context.Context, keywords []string, region string) (map[string]VolumeData, error)
}

// GapKeyword is a keyword a competitor ranks for and the company does not.
type GapKeyword struct {
	Keyword    string
	Volume     int
	Difficulty int
	Competitor string
}

// GapAnalyzer finds competitor content-gap keywords.
type GapAnalyzer interface {
	ContentGap(ctx context.Context, domain string, competitors []string, region string) ([]GapKeyword, error)
}
