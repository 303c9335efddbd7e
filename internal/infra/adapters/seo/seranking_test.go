package seo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openkeywords/internal/domain/ports/adapter"
)

func TestRegionID(t *testing.T) {
	assert.Equal(t, 2276, RegionID("DE"))
	assert.Equal(t, 2840, RegionID("zz"))
}

func TestLookupVolumesBatchesAndSkipsFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/keywords/volume/batch", r.URL.Path)
		assert.Equal(t, "Token key", r.Header.Get("Authorization"))
		n := atomic.AddInt32(&calls, 1)
		if n == 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		var body struct {
			Keywords []string `json:"keywords"`
			RegionID int      `json:"region_id"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 2826, body.RegionID)
		type item struct {
			Keyword      string `json:"keyword"`
			SearchVolume int    `json:"search_volume"`
		}
		var data []item
		for _, k := range body.Keywords {
			data = append(data, item{Keyword: k, SearchVolume: 10})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
	defer srv.Close()

	c, err := NewSERankingClient("key", srv.URL, nil)
	require.NoError(t, err)
	c.pause = 0

	var kws []string
	for i := 0; i < 250; i++ {
		kws = append(kws, fmt.Sprintf("Keyword %d", i))
	}
	got, err := c.LookupVolumes(context.Background(), kws, "uk")
	require.NoError(t, err)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
	assert.Len(t, got, 150) // second batch failed
	assert.Equal(t, adapter.VolumeData{Volume: 10, Difficulty: 50}, got["keyword 0"])
	_, ok := got["keyword 150"]
	assert.False(t, ok)
}

func TestContentGapLimitsCompetitors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"keywords":[{"keyword":"crm migration","search_volume":90,"difficulty":30}]}`))
	}))
	defer srv.Close()

	c, err := NewSERankingClient("key", srv.URL, nil)
	require.NoError(t, err)
	c.pause = 0

	gaps, err := c.ContentGap(context.Background(), "acme.com", []string{"a.com", "b.com", "c.com", "d.com"}, "us")
	require.NoError(t, err)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
	require.Len(t, gaps, 3)
	assert.Equal(t, adapter.GapKeyword{Keyword: "crm migration", Volume: 90, Difficulty: 30, Competitor: "a.com"}, gaps[0])
}
