package query

import (
	"errors"
	"fmt"
	"strings"

	"git.canoozie.net/riddling/graphdir/pkg/grammar"
	"git.canoozie.net/riddling/graphdir/pkg/graph"
	"git.canoozie.net/riddling/graphdir/pkg/model"
)

// builder turns the flat parse node list into commands. The nodes are held
// as a stack with the first production on top.
type builder struct {
	stack []grammar.ParseNode
}

func newBuilder(nodes []grammar.ParseNode) *builder {
	stack := make([]grammar.ParseNode, len(nodes))
	for i, n := range nodes {
		stack[len(nodes)-1-i] = n
	}
	return &builder{stack: stack}
}

func (b *builder) empty() bool {
	return len(b.stack) == 0
}

func (b *builder) peek() (grammar.ParseNode, bool) {
	if b.empty() {
		return grammar.ParseNode{}, false
	}
	return b.stack[len(b.stack)-1], true
}

func (b *builder) pop() grammar.ParseNode {
	n, ok := b.peek()
	if !ok {
		panic("query: parse node stack exhausted")
	}
	b.stack = b.stack[:len(b.stack)-1]
	return n
}

// expect pops the next node and requires it to carry name. The grammar
// guarantees the order, so a mismatch is a bug.
func (b *builder) expect(name string) grammar.ParseNode {
	n := b.pop()
	if n.Name != name {
		panic(fmt.Sprintf("query: expected parse node %q, found %q at position %d", name, n.Name, n.Pos))
	}
	return n
}

// optional pops the next node if it carries name
func (b *builder) optional(name string) (grammar.ParseNode, bool) {
	if n, ok := b.peek(); ok && n.Name == name {
		return b.pop(), true
	}
	return grammar.ParseNode{}, false
}

func (b *builder) build() ([]Command, error) {
	var commands []Command
	for !b.empty() {
		cmd, err := b.statement()
		if err != nil {
			return nil, err
		}
		b.expect(nodeEnd)
		commands = append(commands, cmd)
	}
	if len(commands) == 0 {
		return nil, model.ErrEmptyCommand
	}
	return commands, nil
}

func (b *builder) statement() (Command, error) {
	head := b.pop()
	switch head.Name {
	case nodeAddNode:
		return b.nodeAdd()
	case nodeAddEdge:
		return b.edgeAdd()
	case nodeUpdate:
		return b.update()
	case nodeDelete:
		if b.nodeTarget() {
			return NodeDelete{Filter: b.nodeFilter()}, nil
		}
		filter, err := b.edgeFilter()
		if err != nil {
			return nil, err
		}
		return EdgeDelete{Filter: filter}, nil
	case nodeSelect:
		if b.nodeTarget() {
			return NodeSelect{Filter: b.nodeFilter()}, nil
		}
		filter, err := b.edgeFilter()
		if err != nil {
			return nil, err
		}
		return EdgeSelect{Filter: filter}, nil
	}
	panic(fmt.Sprintf("query: unexpected statement node %q at position %d", head.Name, head.Pos))
}

func (b *builder) nodeAdd() (Command, error) {
	cmd := NodeAdd{Key: b.expect(nodeKey).Text}
	if n, ok := b.optional(nodeTags); ok {
		tags, err := parseTags(n)
		if err != nil {
			return nil, err
		}
		if len(tags) > 0 {
			cmd.Tags = tags
		}
	}
	return cmd, nil
}

func (b *builder) edgeAdd() (Command, error) {
	cmd := EdgeAdd{
		FromKey: b.expect(nodeFromKey).Text,
		ToKey:   b.expect(nodeToKey).Text,
	}
	if n, ok := b.optional(nodeEdgeType); ok {
		cmd.EdgeType = n.Text
	}
	if n, ok := b.optional(nodeTags); ok {
		tags, err := parseTags(n)
		if err != nil {
			return nil, err
		}
		if len(tags) > 0 {
			cmd.Tags = tags
		}
	}
	return cmd, nil
}

// nodeTarget pops the group marker and reports whether it opens a node group
func (b *builder) nodeTarget() bool {
	n := b.pop()
	switch n.Name {
	case nodeNodeGroup:
		return true
	case nodeEdgeGroup:
		return false
	}
	panic(fmt.Sprintf("query: expected a group, found %q at position %d", n.Name, n.Pos))
}

func (b *builder) nodeFilter() graph.NodeFilter {
	return graph.NodeFilter{Key: b.expect(nodeKey).Text}
}

func (b *builder) edgeFilter() (graph.EdgeFilter, error) {
	var filter graph.EdgeFilter
	for {
		n, ok := b.peek()
		if !ok {
			return filter, nil
		}

		switch n.Name {
		case nodeFilterType:
			b.pop()
			filter.Predicates = append(filter.Predicates, graph.Predicate{
				Field: graph.FieldEdgeType,
				Value: n.Text,
			})
		case nodeFilterField:
			b.pop()
			field, known := graph.ParseField(n.Text)
			if !known {
				return graph.EdgeFilter{}, model.Errorf(model.StatusBadRequest,
					"unknown filter field '%s' at position %d", n.Text, n.Pos)
			}
			filter.Predicates = append(filter.Predicates, predicate(field, b.expect(nodeFilterValue)))
		default:
			return filter, nil
		}
	}
}

// predicate reads a filter value. An unquoted value ending in the wildcard
// matches by prefix.
func predicate(field graph.Field, v grammar.ParseNode) graph.Predicate {
	if !v.Quoted && strings.HasSuffix(v.Text, wildcard) {
		return graph.Predicate{Field: field, Value: strings.TrimSuffix(v.Text, wildcard), Prefix: true}
	}
	return graph.Predicate{Field: field, Value: v.Text}
}

func (b *builder) update() (Command, error) {
	if b.nodeTarget() {
		filter := b.nodeFilter()
		assigns, err := b.assignments()
		if err != nil {
			return nil, err
		}

		cmd := NodeUpdate{Filter: filter}
		for _, a := range assigns {
			if !strings.EqualFold(a.field.Text, "tags") {
				return nil, notSettable(a.field, "a node")
			}
			if cmd.Tags, err = parseTags(a.value); err != nil {
				return nil, err
			}
		}
		return cmd, nil
	}

	filter, err := b.edgeFilter()
	if err != nil {
		return nil, err
	}
	assigns, err := b.assignments()
	if err != nil {
		return nil, err
	}

	cmd := EdgeUpdate{Filter: filter}
	for _, a := range assigns {
		switch {
		case strings.EqualFold(a.field.Text, "edgeType"):
			edgeType := a.value.Text
			cmd.EdgeType = &edgeType
		case strings.EqualFold(a.field.Text, "tags"):
			tags, err := parseTags(a.value)
			if err != nil {
				return nil, err
			}
			cmd.Tags = &tags
		default:
			return nil, notSettable(a.field, "an edge")
		}
	}
	return cmd, nil
}

// fields is the vocabulary of entity field names
var fields = []string{"key", "fromKey", "toKey", "edgeType", "tags"}

func notSettable(field grammar.ParseNode, entity string) error {
	for _, f := range fields {
		if strings.EqualFold(f, field.Text) {
			return model.Errorf(model.StatusBadRequest,
				"field '%s' cannot be set on %s at position %d", field.Text, entity, field.Pos)
		}
	}
	return model.Errorf(model.StatusBadRequest, "unknown field '%s' at position %d", field.Text, field.Pos)
}

type assignment struct {
	field grammar.ParseNode
	value grammar.ParseNode
}

// assignments pops the set list, rejecting fields assigned more than once
func (b *builder) assignments() ([]assignment, error) {
	var out []assignment
	seen := make(map[string]bool)
	for {
		field, ok := b.optional(nodeSetField)
		if !ok {
			return out, nil
		}
		name := strings.ToLower(field.Text)
		if seen[name] {
			return nil, model.Errorf(model.StatusBadRequest,
				"duplicate field '%s' at position %d", field.Text, field.Pos)
		}
		seen[name] = true
		out = append(out, assignment{field: field, value: b.expect(nodeSetValue)})
	}
}

func parseTags(n grammar.ParseNode) (model.Tags, error) {
	tags, err := model.ParseTags(n.Text)
	if err != nil {
		var e *model.Error
		if errors.As(err, &e) {
			return nil, model.Errorf(e.Status, "%s at position %d", e.Message, n.Pos)
		}
		return nil, err
	}
	return tags, nil
}
