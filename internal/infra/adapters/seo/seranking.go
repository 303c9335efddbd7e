package seo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"openkeywords/internal/domain/model"
	"openkeywords/internal/domain/ports/adapter"
)

var (
	_ adapter.VolumeLookup = (*SERankingClient)(nil)
	_ adapter.GapAnalyzer  = (*SERankingClient)(nil)
)

const (
	defaultSERankingBase = "https://api.seranking.com/v1"
	volumeBatchSize      = 100
	maxGapCompetitors    = 3
	defaultRegionID      = 2840 // United States
)

var regionIDs = map[string]int{
	"us": 2840,
	"uk": 2826,
	"de": 2276,
	"fr": 2250,
	"es": 2724,
	"it": 2380,
	"nl": 2528,
	"au": 2036,
	"ca": 2124,
	"br": 2076,
	"in": 2356,
	"jp": 2392,
}

// SERankingClient implements keyword volume lookup and content-gap analysis
// against the SE Ranking REST API.
type SERankingClient struct {
	apiKey string
	base   string
	client *http.Client
	pause  time.Duration // between batch requests, keeps us under the rate limit
	log    *zerolog.Logger
}

func NewSERankingClient(apiKey, baseURL string, log *zerolog.Logger) (*SERankingClient, error) {
	if apiKey == "" {
		return nil, errors.New("seranking api key empty")
	}
	if baseURL == "" {
		baseURL = defaultSERankingBase
	}
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &SERankingClient{
		apiKey: apiKey,
		base:   strings.TrimRight(baseURL, "/"),
		client: &http.Client{Timeout: 30 * time.Second},
		pause:  500 * time.Millisecond,
		log:    log,
	}, nil
}

// RegionID maps an ISO region code to SE Ranking's numeric id, defaulting to US.
func RegionID(region string) int {
	if id, ok := regionIDs[strings.ToLower(region)]; ok {
		return id
	}
	return defaultRegionID
}

// LookupVolumes queries in batches of 100. A failing batch is logged and skipped,
// so the result may cover only part of the input.
func (s *SERankingClient) LookupVolumes(ctx context.Context, keywords []string, region string) (map[string]adapter.VolumeData, error) {
	out := make(map[string]adapter.VolumeData, len(keywords))
	if len(keywords) == 0 {
		return out, nil
	}
	regionID := RegionID(region)

	for start := 0; start < len(keywords); start += volumeBatchSize {
		end := start + volumeBatchSize
		if end > len(keywords) {
			end = len(keywords)
		}
		var resp struct {
			Data []struct {
				Keyword      string `json:"keyword"`
				SearchVolume *int   `json:"search_volume"`
				Difficulty   *int   `json:"difficulty"`
			} `json:"data"`
		}
		err := s.post(ctx, "/keywords/volume/batch", map[string]any{
			"keywords":  keywords[start:end],
			"region_id": regionID,
		}, &resp)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			s.log.Warn().Err(err).Int("batch_start", start).Msg("seranking volume batch failed")
		} else {
			for _, item := range resp.Data {
				out[strings.ToLower(item.Keyword)] = adapter.VolumeData{
					Volume:     intOr(item.SearchVolume, 0),
					Difficulty: intOr(item.Difficulty, model.DefaultDifficulty),
				}
			}
		}
		if end < len(keywords) {
			if err := wait(ctx, s.pause); err != nil {
				return out, err
			}
		}
	}
	s.log.Info().Int("found", len(out)).Int("requested", len(keywords)).Msg("seranking volume lookup finished")
	return out, nil
}

// ContentGap inspects at most three competitors.
func (s *SERankingClient) ContentGap(ctx context.Context, domain string, competitors []string, region string) ([]adapter.GapKeyword, error) {
	if len(competitors) > maxGapCompetitors {
		competitors = competitors[:maxGapCompetitors]
	}
	regionID := RegionID(region)

	var out []adapter.GapKeyword
	for i, competitor := range competitors {
		var resp struct {
			Keywords []struct {
				Keyword      string `json:"keyword"`
				SearchVolume *int   `json:"search_volume"`
				Difficulty   *int   `json:"difficulty"`
			} `json:"keywords"`
		}
		err := s.post(ctx, "/domain/competitors/content-gap", map[string]any{
			"domain":     domain,
			"competitor": competitor,
			"region_id":  regionID,
		}, &resp)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			s.log.Warn().Err(err).Str("competitor", competitor).Msg("seranking gap analysis failed")
		} else {
			for _, item := range resp.Keywords {
				out = append(out, adapter.GapKeyword{
					Keyword:    item.Keyword,
					Volume:     intOr(item.SearchVolume, 0),
					Difficulty: intOr(item.Difficulty, model.DefaultDifficulty),
					Competitor: competitor,
				})
			}
		}
		if i < len(competitors)-1 {
			if err := wait(ctx, 2*s.pause); err != nil {
				return out, err
			}
		}
	}
	return out, nil
}

func (s *SERankingClient) post(ctx context.Context, path string, payload any, out any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.base+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("seranking http %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
