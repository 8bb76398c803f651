package query

import (
	"fmt"
	"strings"
	"unicode"

	"git.canoozie.net/riddling/graphdir/pkg/graph"
	"git.canoozie.net/riddling/graphdir/pkg/model"
)

// CommandKind identifies the variant of a Command
type CommandKind int

const (
	KindNodeAdd CommandKind = iota
	KindNodeUpdate
	KindNodeDelete
	KindNodeSelect
	KindEdgeAdd
	KindEdgeUpdate
	KindEdgeDelete
	KindEdgeSelect
)

var commandKindNames = [...]string{
	KindNodeAdd:    "NodeAdd",
	KindNodeUpdate: "NodeUpdate",
	KindNodeDelete: "NodeDelete",
	KindNodeSelect: "NodeSelect",
	KindEdgeAdd:    "EdgeAdd",
	KindEdgeUpdate: "EdgeUpdate",
	KindEdgeDelete: "EdgeDelete",
	KindEdgeSelect: "EdgeSelect",
}

func (k CommandKind) String() string {
	if int(k) < 0 || int(k) >= len(commandKindNames) {
		return fmt.Sprintf("CommandKind(%d)", int(k))
	}
	return commandKindNames[k]
}

// MarshalText encodes the kind by name
func (k CommandKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Mutates reports whether commands of this kind can change a graph
func (k CommandKind) Mutates() bool {
	return k != KindNodeSelect && k != KindEdgeSelect
}

// Command is one parsed GraphLang statement. The set of implementations is
// closed; String renders the canonical statement text, which parses back to
// an equal command.
type Command interface {
	Kind() CommandKind
	String() string
	command()
}

// NodeAdd adds a node
type NodeAdd struct {
	Key  string
	Tags model.Tags
}

// NodeUpdate replaces the tags of the node matching Filter
type NodeUpdate struct {
	Filter graph.NodeFilter
	Tags   model.Tags
}

// NodeDelete removes the node matching Filter
type NodeDelete struct {
	Filter graph.NodeFilter
}

// NodeSelect reads the node matching Filter
type NodeSelect struct {
	Filter graph.NodeFilter
}

// EdgeAdd adds an edge under a generated key
type EdgeAdd struct {
	FromKey  string
	ToKey    string
	EdgeType string
	Tags     model.Tags
}

// EdgeUpdate sets the type and/or the tags of every edge matching Filter.
// A nil field is left unchanged.
type EdgeUpdate struct {
	Filter   graph.EdgeFilter
	EdgeType *string
	Tags     *model.Tags
}

// EdgeDelete removes every edge matching Filter
type EdgeDelete struct {
	Filter graph.EdgeFilter
}

// EdgeSelect reads every edge matching Filter
type EdgeSelect struct {
	Filter graph.EdgeFilter
}

func (NodeAdd) Kind() CommandKind    { return KindNodeAdd }
func (NodeUpdate) Kind() CommandKind { return KindNodeUpdate }
func (NodeDelete) Kind() CommandKind { return KindNodeDelete }
func (NodeSelect) Kind() CommandKind { return KindNodeSelect }
func (EdgeAdd) Kind() CommandKind    { return KindEdgeAdd }
func (EdgeUpdate) Kind() CommandKind { return KindEdgeUpdate }
func (EdgeDelete) Kind() CommandKind { return KindEdgeDelete }
func (EdgeSelect) Kind() CommandKind { return KindEdgeSelect }

func (NodeAdd) command()    {}
func (NodeUpdate) command() {}
func (NodeDelete) command() {}
func (NodeSelect) command() {}
func (EdgeAdd) command()    {}
func (EdgeUpdate) command() {}
func (EdgeDelete) command() {}
func (EdgeSelect) command() {}

func (c NodeAdd) String() string {
	var sb strings.Builder
	sb.WriteString("add node key=")
	sb.WriteString(quote(c.Key))
	if len(c.Tags) > 0 {
		sb.WriteString(",tags=")
		sb.WriteString(quote(c.Tags.String()))
	}
	sb.WriteString(";")
	return sb.String()
}

func (c NodeUpdate) String() string {
	return "update " + nodeTarget(c.Filter) + " set tags=" + quote(c.Tags.String()) + ";"
}

func (c NodeDelete) String() string {
	return "delete " + nodeTarget(c.Filter) + ";"
}

func (c NodeSelect) String() string {
	return "select " + nodeTarget(c.Filter) + ";"
}

func (c EdgeAdd) String() string {
	var sb strings.Builder
	sb.WriteString("add edge fromKey=")
	sb.WriteString(quote(c.FromKey))
	sb.WriteString(",toKey=")
	sb.WriteString(quote(c.ToKey))
	if c.EdgeType != "" {
		sb.WriteString(",edgeType=")
		sb.WriteString(quote(c.EdgeType))
	}
	if len(c.Tags) > 0 {
		sb.WriteString(",tags=")
		sb.WriteString(quote(c.Tags.String()))
	}
	sb.WriteString(";")
	return sb.String()
}

func (c EdgeUpdate) String() string {
	var assigns []string
	if c.EdgeType != nil {
		assigns = append(assigns, "edgeType="+quote(*c.EdgeType))
	}
	if c.Tags != nil {
		assigns = append(assigns, "tags="+quote(c.Tags.String()))
	}
	return "update " + edgeTarget(c.Filter) + " set " + strings.Join(assigns, ",") + ";"
}

func (c EdgeDelete) String() string {
	return "delete " + edgeTarget(c.Filter) + ";"
}

func (c EdgeSelect) String() string {
	return "select " + edgeTarget(c.Filter) + ";"
}

func nodeTarget(f graph.NodeFilter) string {
	return "(key=" + quote(f.Key) + ")"
}

func edgeTarget(f graph.EdgeFilter) string {
	parts := make([]string, len(f.Predicates))
	for i, p := range f.Predicates {
		parts[i] = predicateString(p)
	}
	return "[" + strings.Join(parts, ";") + "]"
}

func predicateString(p graph.Predicate) string {
	if p.Prefix {
		return p.Field.String() + "=" + p.Value + wildcard
	}
	return p.Field.String() + "=" + quote(p.Value)
}

// quote renders a value so that it reads back as the same exact value
func quote(v string) string {
	if !needsQuotes(v) {
		return v
	}
	var sb strings.Builder
	sb.Grow(len(v) + 2)
	sb.WriteByte('\'')
	for i := 0; i < len(v); i++ {
		switch ch := v[i]; ch {
		case '\\', '\'':
			sb.WriteByte('\\')
			sb.WriteByte(ch)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteByte(ch)
		}
	}
	sb.WriteByte('\'')
	return sb.String()
}

func needsQuotes(v string) bool {
	if v == "" || strings.HasSuffix(v, wildcard) {
		return true
	}
	if strings.IndexFunc(v, unicode.IsSpace) >= 0 || strings.ContainsAny(v, `'"\`) {
		return true
	}
	for _, s := range Symbols {
		if strings.Contains(v, s) {
			return true
		}
	}
	return false
}
