package graph

import (
	"fmt"
	"strings"
)

// CypherBuilder builds parameterized Cypher statements.
// Security: every value travels as a parameter; labels and relationship types
// cannot be parameters in Cypher, so they are backtick-quoted instead.
type CypherBuilder struct {
	params  map[string]any
	counter int
}

// NewCypherBuilder creates a statement builder
func NewCypherBuilder() *CypherBuilder {
	return &CypherBuilder{
		params: make(map[string]any),
	}
}

// AddParam adds a parameter and returns its placeholder
func (b *CypherBuilder) AddParam(value any) string {
	paramName := fmt.Sprintf("p%d", b.counter)
	b.counter++
	b.params[paramName] = value
	return "$" + paramName
}

// Params returns all parameters for the statement
func (b *CypherBuilder) Params() map[string]any {
	return b.params
}

// BuildCreateNode returns a CREATE statement yielding the new element id as "id".
func (b *CypherBuilder) BuildCreateNode(labels []string, props Properties) (string, error) {
	clause, err := labelClause(labels)
	if err != nil {
		return "", err
	}
	p := b.AddParam(props.AsMap())
	return fmt.Sprintf("CREATE (n%s) SET n += %s RETURN elementId(n) AS id", clause, p), nil
}

// BuildCreateRelationship matches both endpoints by element id and creates a
// typed relationship between them. No rows come back when an endpoint is missing.
func (b *CypherBuilder) BuildCreateRelationship(source, target, relType string, props Properties) (string, error) {
	if strings.TrimSpace(relType) == "" {
		return "", fmt.Errorf("relationship type must not be empty")
	}
	a := b.AddParam(source)
	z := b.AddParam(target)
	p := b.AddParam(props.AsMap())
	return fmt.Sprintf(
		"MATCH (a) WHERE elementId(a) = %s MATCH (b) WHERE elementId(b) = %s CREATE (a)-[r:%s]->(b) SET r += %s RETURN elementId(r) AS id",
		a, z, QuoteIdentifier(relType), p,
	), nil
}

// BuildReplaceNode swaps the label set and the property map of one node.
func (b *CypherBuilder) BuildReplaceNode(id string, oldLabels, newLabels []string, props Properties) (string, error) {
	set, err := labelClause(newLabels)
	if err != nil {
		return "", err
	}
	idParam := b.AddParam(id)
	p := b.AddParam(props.AsMap())

	var sb strings.Builder
	fmt.Fprintf(&sb, "MATCH (n) WHERE elementId(n) = %s", idParam)
	if len(oldLabels) > 0 {
		remove, err := labelClause(oldLabels)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, " REMOVE n%s", remove)
	}
	fmt.Fprintf(&sb, " SET n = %s SET n%s RETURN count(n) AS count", p, set)
	return sb.String(), nil
}

// QuoteIdentifier backtick-quotes a label or relationship type, doubling any
// embedded backticks.
func QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func labelClause(labels []string) (string, error) {
	if len(labels) == 0 {
		return "", fmt.Errorf("at least one label is required")
	}
	var sb strings.Builder
	for _, l := range labels {
		if strings.TrimSpace(l) == "" {
			return "", fmt.Errorf("invalid empty label")
		}
		sb.WriteString(":")
		sb.WriteString(QuoteIdentifier(l))
	}
	return sb.String(), nil
}
