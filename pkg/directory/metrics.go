package directory

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"git.canoozie.net/riddling/graphdir/pkg/query"
)

// Batch outcomes
const (
	OutcomeModified = "modified"
	OutcomeReadOnly = "read_only"
	OutcomeRejected = "rejected"
	OutcomeJournal  = "journal_error"
	OutcomeSnapshot = "snapshot_error"
)

var (
	// batchesTotal counts executed batches.
	// Labels: graph, outcome
	batchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "graphdir",
		Subsystem: "directory",
		Name:      "batches_total",
		Help:      "Command batches executed by outcome",
	}, []string{"graph", "outcome"})

	// statementsTotal counts statements of committed or read-only batches.
	// Labels: kind, status
	statementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "graphdir",
		Subsystem: "directory",
		Name:      "statements_total",
		Help:      "Statements executed by command kind and status",
	}, []string{"kind", "status"})

	batchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "graphdir",
		Subsystem: "directory",
		Name:      "batch_latency_seconds",
		Help:      "Time spent executing a command batch, including journaling",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"graph"})

	graphNodes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "graphdir",
		Subsystem: "directory",
		Name:      "nodes",
		Help:      "Nodes currently stored per graph",
	}, []string{"graph"})

	graphEdges = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "graphdir",
		Subsystem: "directory",
		Name:      "edges",
		Help:      "Edges currently stored per graph",
	}, []string{"graph"})

	snapshotsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "graphdir",
		Subsystem: "directory",
		Name:      "snapshots_total",
		Help:      "Snapshots written per graph",
	}, []string{"graph"})

	replayedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "graphdir",
		Subsystem: "directory",
		Name:      "replayed_batches_total",
		Help:      "Journal records replayed when opening a graph",
	}, []string{"graph"})
)

func recordBatch(graphID, outcome string, seconds float64) {
	batchesTotal.WithLabelValues(graphID, outcome).Inc()
	batchLatency.WithLabelValues(graphID).Observe(seconds)
}

func recordStatements(res *query.Result) {
	for _, s := range res.Statements {
		statementsTotal.WithLabelValues(s.Kind.String(), s.Status.String()).Inc()
	}
}

func recordSize(graphID string, nodes, edges int) {
	graphNodes.WithLabelValues(graphID).Set(float64(nodes))
	graphEdges.WithLabelValues(graphID).Set(float64(edges))
}

func recordSnapshot(graphID string) {
	snapshotsTotal.WithLabelValues(graphID).Inc()
}

func recordReplay(graphID string, n int) {
	replayedTotal.WithLabelValues(graphID).Add(float64(n))
}

// forgetGraph drops the per graph series of a removed graph
func forgetGraph(graphID string) {
	graphNodes.DeleteLabelValues(graphID)
	graphEdges.DeleteLabelValues(graphID)
}
