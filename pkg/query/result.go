package query

import (
	"git.canoozie.net/riddling/graphdir/pkg/graph"
	"git.canoozie.net/riddling/graphdir/pkg/model"
)

// StatementResult describes the outcome of one statement of a batch
type StatementResult struct {
	Kind   CommandKind  `json:"kind"`
	Status model.Status `json:"status"`
	Nodes  []model.Node `json:"nodes,omitempty"`
	Edges  []model.Edge `json:"edges,omitempty"`
}

// Result is the outcome of a successfully executed batch
type Result struct {
	// Graph is the graph after the batch. When Modified is false it is the
	// graph the batch was executed against.
	Graph      *graph.Map        `json:"-"`
	Statements []StatementResult `json:"statementResults"`
	Modified   bool              `json:"modified"`
}

// Matched reports how many entities the statements of the result touched
func (r *Result) Matched() int {
	n := 0
	for _, s := range r.Statements {
		n += len(s.Nodes) + len(s.Edges)
	}
	return n
}
