package query

import (
	"fmt"
	"sort"
	"strings"

	"git.canoozie.net/riddling/graphdir/pkg/graph"
	"git.canoozie.net/riddling/graphdir/pkg/model"
)

// Optimizer rewrites commands into equivalent forms that are cheaper to
// execute
type Optimizer struct {
	// DropRedundantPrefixes removes prefix predicates implied by an exact
	// predicate on the same field
	DropRedundantPrefixes bool
}

// NewOptimizer creates a new command optimizer
func NewOptimizer() *Optimizer {
	return &Optimizer{
		DropRedundantPrefixes: true,
	}
}

// Optimize returns an equivalent command. The input is not modified.
func (o *Optimizer) Optimize(cmd Command) (Command, error) {
	if cmd == nil {
		return nil, model.Errorf(model.StatusInternalServerError, "command is nil")
	}

	switch c := cmd.(type) {
	case NodeAdd, NodeUpdate, NodeDelete, NodeSelect, EdgeAdd:
		// Single key lookups and inserts
		return cmd, nil
	case EdgeUpdate:
		c.Filter = o.optimizeFilter(c.Filter)
		return c, nil
	case EdgeDelete:
		c.Filter = o.optimizeFilter(c.Filter)
		return c, nil
	case EdgeSelect:
		c.Filter = o.optimizeFilter(c.Filter)
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported command type: %T", cmd)
	}
}

// optimizeFilter removes duplicate predicates and orders the rest so that
// exact endpoint predicates, which the graph serves from its adjacency
// indexes, come first
func (o *Optimizer) optimizeFilter(f graph.EdgeFilter) graph.EdgeFilter {
	if len(f.Predicates) == 0 {
		return f
	}

	seen := make(map[graph.Predicate]bool, len(f.Predicates))
	out := make([]graph.Predicate, 0, len(f.Predicates))
	for _, p := range f.Predicates {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}

	if o.DropRedundantPrefixes {
		out = dropImpliedPrefixes(out)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return predicateRank(out[i]) < predicateRank(out[j])
	})
	return graph.EdgeFilter{Predicates: out}
}

// dropImpliedPrefixes removes a prefix predicate when an exact predicate on
// the same field already satisfies it
func dropImpliedPrefixes(preds []graph.Predicate) []graph.Predicate {
	out := make([]graph.Predicate, 0, len(preds))
	for _, p := range preds {
		if p.Prefix && impliedByExact(preds, p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func impliedByExact(preds []graph.Predicate, prefix graph.Predicate) bool {
	for _, p := range preds {
		if !p.Prefix && p.Field == prefix.Field && strings.HasPrefix(p.Value, prefix.Value) {
			return true
		}
	}
	return false
}

func predicateRank(p graph.Predicate) int {
	rank := int(p.Field)
	if p.Prefix {
		rank += 10
	}
	return rank
}
