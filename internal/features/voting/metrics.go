package voting

import "github.com/prometheus/client_golang/prometheus"

const namespace = "comment_popularity"

// Metrics: счётчики голосования.
type Metrics struct {
	Votes          *prometheus.CounterVec
	VoteDuration   prometheus.Histogram
	KarmaAwarded   prometheus.Counter
	SeededComments prometheus.Counter
	HistoryPruned  prometheus.Counter
}

// NewMetrics создаёт и регистрирует метрики в переданном реестре.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Votes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_total",
			Help:      "Vote attempts, by direction and outcome.",
		}, []string{"direction", "outcome"}),
		VoteDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "vote_duration_seconds",
			Help:      "Duration of CastVote in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
		KarmaAwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "author_karma_awarded_total",
			Help:      "Karma points given to comment authors by upvotes.",
		}),
		SeededComments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "seeded_comments_total",
			Help:      "New comments whose weight was seeded from expert karma.",
		}),
		HistoryPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vote_history_pruned_total",
			Help:      "Vote history records removed by the pruning job.",
		}),
	}

	reg.MustRegister(m.Votes, m.VoteDuration, m.KarmaAwarded, m.SeededComments, m.HistoryPruned)
	return m
}
