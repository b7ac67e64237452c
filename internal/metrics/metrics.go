package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal  *prometheus.CounterVec
	votesTotal         *prometheus.CounterVec
	wsConnections      *prometheus.GaugeVec
	broadcastEvictions prometheus.Counter
	registerOnce       sync.Once
)

// Register initializes Prometheus metrics on the default registry.
func Register() {
	registerOnce.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voting",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests processed by the voting API.",
		}, []string{"method", "path", "status"})

		votesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voting",
			Name:      "votes_total",
			Help:      "Total admitted votes by choice, auto-propagated votes included.",
		}, []string{"choice"})

		wsConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "voting",
			Name:      "ws_connections",
			Help:      "Currently subscribed websocket connections by pool.",
		}, []string{"pool"})

		broadcastEvictions = promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "voting",
			Name:      "broadcast_evictions_total",
			Help:      "Connections evicted after a failed or timed-out broadcast send.",
		})
	})
}

// IncRequest increments the http_requests_total counter with the given labels.
func IncRequest(method, path string, status int) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}

func IncVote(choice string) {
	if votesTotal == nil {
		return
	}
	votesTotal.WithLabelValues(choice).Inc()
}

func ConnOpened(pool string) {
	if wsConnections == nil {
		return
	}
	wsConnections.WithLabelValues(pool).Inc()
}

func ConnClosed(pool string) {
	if wsConnections == nil {
		return
	}
	wsConnections.WithLabelValues(pool).Dec()
}

func IncEviction() {
	if broadcastEvictions == nil {
		return
	}
	broadcastEvictions.Inc()
}
