package query

import (
	"errors"
	"fmt"
	"time"

	"git.canoozie.net/riddling/graphdir/pkg/graph"
	"git.canoozie.net/riddling/graphdir/pkg/model"
)

// Executor parses command batches and applies them atomically to a graph
type Executor struct {
	Optimizer *Optimizer
	logger    model.Logger
}

// NewExecutor creates a new executor. A nil logger uses the default logger.
func NewExecutor(logger model.Logger) *Executor {
	if logger == nil {
		logger = model.DefaultLoggerInstance
	}
	return &Executor{
		Optimizer: NewOptimizer(),
		logger:    logger,
	}
}

// ExecOption configures a single Execute call
type ExecOption func(*execConfig)

type execConfig struct {
	keys  graph.KeySource
	clock func() time.Time
}

// WithKeySource makes added edges take their keys from keys
func WithKeySource(keys graph.KeySource) ExecOption {
	return func(c *execConfig) {
		c.keys = keys
	}
}

// WithClock sets the creation time source for added nodes and edges
func WithClock(clock func() time.Time) ExecOption {
	return func(c *execConfig) {
		c.clock = clock
	}
}

// Execute parses batch and applies its statements in order to a private copy
// of g. If every statement succeeds the result carries the new graph;
// otherwise the error of the first failing statement is returned and g is
// left exactly as it was. g itself is never modified.
func (e *Executor) Execute(batch string, g *graph.Map, opts ...ExecOption) (*Result, error) {
	cfg := execConfig{clock: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}

	commands, err := Parse(batch)
	if err != nil {
		e.logger.Debug("Rejected batch: %v", err)
		return nil, err
	}

	plan := make([]Command, len(commands))
	for i, cmd := range commands {
		if plan[i], err = e.Optimizer.Optimize(cmd); err != nil {
			return nil, statementError(i, err)
		}
	}

	work := g.Clone()
	if cfg.keys != nil {
		work.SetKeySource(cfg.keys)
	}

	result := &Result{Statements: make([]StatementResult, 0, len(plan))}
	for i, cmd := range plan {
		res, err := apply(work, cmd, cfg.clock)
		if err != nil {
			e.logger.Debug("Statement %d of %d failed, batch discarded: %v", i+1, len(plan), err)
			return nil, statementError(i, err)
		}
		if cmd.Kind().Mutates() && res.Status == model.StatusOK {
			result.Modified = true
		}
		result.Statements = append(result.Statements, res)
	}

	if result.Modified {
		work.SetKeySource(g.KeySource())
		result.Graph = work
	} else {
		result.Graph = g
	}

	if e.logger.IsLevelEnabled(model.LogLevelDebug) {
		e.logger.Debug("Executed %d statements (modified=%t, matched=%d)", len(plan), result.Modified, result.Matched())
	}
	return result, nil
}

// apply runs one command against g
func apply(g *graph.Map, cmd Command, clock func() time.Time) (StatementResult, error) {
	res := StatementResult{Kind: cmd.Kind(), Status: model.StatusOK}

	switch c := cmd.(type) {
	case NodeAdd:
		node := model.NewNode(c.Key, clock())
		if len(c.Tags) > 0 {
			node.Tags = c.Tags.Clone()
		}
		if err := g.AddNode(*node); err != nil {
			return res, err
		}
		res.Nodes = []model.Node{node.Clone()}

	case NodeUpdate:
		res.Nodes = g.UpdateNodes(c.Filter, func(n *model.Node) {
			n.Tags = c.Tags.Clone()
		})

	case NodeDelete:
		res.Nodes = g.DeleteNode(c.Filter)

	case NodeSelect:
		res.Nodes = g.SelectNodes(c.Filter)

	case EdgeAdd:
		edge := model.NewEdge(c.FromKey, c.ToKey, c.EdgeType)
		edge.CreatedDate = clock()
		if len(c.Tags) > 0 {
			edge.Tags = c.Tags.Clone()
		}
		stored, err := g.AddEdge(*edge)
		if err != nil {
			return res, err
		}
		res.Edges = []model.Edge{stored}

	case EdgeUpdate:
		res.Edges = g.UpdateEdges(c.Filter, func(e *model.Edge) {
			if c.EdgeType != nil {
				e.EdgeType = *c.EdgeType
			}
			if c.Tags != nil {
				e.Tags = c.Tags.Clone()
			}
		})

	case EdgeDelete:
		res.Edges = g.DeleteEdges(c.Filter)

	case EdgeSelect:
		res.Edges = g.SelectEdges(c.Filter)

	default:
		panic(fmt.Sprintf("query: unhandled command %T", cmd))
	}

	if len(res.Nodes) == 0 && len(res.Edges) == 0 {
		res.Status = model.StatusNoContent
	}
	return res, nil
}

// statementError prefixes the message of err with the statement number,
// keeping its status
func statementError(index int, err error) error {
	var e *model.Error
	if errors.As(err, &e) {
		return &model.Error{
			Status:  e.Status,
			Message: fmt.Sprintf("statement %d: %s", index+1, e.Message),
			Cause:   e.Cause,
		}
	}
	return model.Errorf(model.StatusInternalServerError, "statement %d", index+1).WithCause(err)
}
