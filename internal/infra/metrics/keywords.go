package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(keywordsDuplicates, keywordsFiltered, batchFailures, keywordsReturned) }

var (
	keywordsDuplicates = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "keywords_duplicates_removed_total",
			Help: "Candidates collapsed by deduplication.",
		},
	)

	keywordsFiltered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keywords_filtered_total",
			Help: "Candidates dropped by post-processing filters.",
		},
		[]string{"filter"}, // 'min_score', 'min_words', 'broad'
	)

	batchFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keyword_batch_failures_total",
			Help: "Failed AI batches that contributed no data, per stage.",
		},
		[]string{"stage"},
	)

	keywordsReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "keywords_returned",
			Help:    "Keywords in a finished generation result.",
			Buckets: []float64{0, 10, 25, 50, 100, 200, 350, 500},
		},
	)
)

func AddDuplicates(n int) {
	keywordsDuplicates.Add(float64(n))
}

func AddFiltered(filter string, n int) {
	keywordsFiltered.WithLabelValues(norm(filter)).Add(float64(n))
}

func IncBatchFailure(stage string) {
	batchFailures.WithLabelValues(norm(stage)).Inc()
}

func ObserveKeywordsReturned(n int) {
	keywordsReturned.Observe(float64(n))
}
