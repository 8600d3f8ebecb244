package graph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rohankatakam/featurekg/internal/errors"
)

const (
	nodeColumns = "elementId(n) AS id, labels(n) AS labels, properties(n) AS props"
	relColumns  = "elementId(r) AS id, elementId(a) AS source, elementId(b) AS target, type(r) AS type, properties(r) AS props"
)

// Neo4jStore implements Store over a statement Runner.
// Security: uses parameterized statements for every value.
type Neo4jStore struct {
	runner  Runner
	logger  *slog.Logger
	monitor *TimeoutMonitor
}

// NewNeo4jStore creates a store bound to runner (usually a *Client)
func NewNeo4jStore(runner Runner, logger *slog.Logger) *Neo4jStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &Neo4jStore{
		runner:  runner,
		logger:  logger.With("component", "neo4j_store"),
		monitor: NewTimeoutMonitor(logger),
	}
}

func (s *Neo4jStore) run(ctx context.Context, operation, statement string, params map[string]any) ([]map[string]any, error) {
	var rows []map[string]any
	err := s.monitor.Monitor(ctx, operation, func(ctx context.Context) error {
		var err error
		if reader, ok := s.runner.(ReadRunner); ok && GetConfigForOperation(operation).IsRead() {
			rows, err = reader.RunRead(ctx, statement, params)
		} else {
			rows, err = s.runner.Run(ctx, statement, params)
		}
		return err
	})
	if err != nil {
		if errors.IsConnection(err) {
			return nil, err
		}
		return nil, errors.DatabaseErrorf(err, "%s statement failed", operation)
	}
	return rows, nil
}

func (s *Neo4jStore) CreateNode(ctx context.Context, labels []string, props Properties) (string, error) {
	b := NewCypherBuilder()
	stmt, err := b.BuildCreateNode(labels, props)
	if err != nil {
		return "", errors.ValidationError(err.Error())
	}
	rows, err := s.run(ctx, OpImportWrite, stmt, b.Params())
	if err != nil {
		return "", err
	}
	return singleID(rows, "node")
}

func (s *Neo4jStore) CreateRelationship(ctx context.Context, source, target, relType string, props Properties) (string, error) {
	b := NewCypherBuilder()
	stmt, err := b.BuildCreateRelationship(source, target, relType, props)
	if err != nil {
		return "", errors.ValidationError(err.Error())
	}
	rows, err := s.run(ctx, OpImportWrite, stmt, b.Params())
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", errors.NotFoundErrorf("relationship endpoints not found: %s -> %s", source, target)
	}
	return singleID(rows, "relationship")
}

func (s *Neo4jStore) UpdateNode(ctx context.Context, id string, labels []string, props Properties) error {
	current, ok, err := s.GetNode(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return errors.NotFoundErrorf("node %s not found", id)
	}

	b := NewCypherBuilder()
	stmt, err := b.BuildReplaceNode(id, current.Labels, labels, props)
	if err != nil {
		return errors.ValidationError(err.Error())
	}
	_, err = s.run(ctx, OpCrudWrite, stmt, b.Params())
	return err
}

func (s *Neo4jStore) DeleteNode(ctx context.Context, id string) error {
	_, err := s.run(ctx, OpCrudWrite,
		"MATCH (n) WHERE elementId(n) = $id DETACH DELETE n",
		map[string]any{"id": id})
	return err
}

func (s *Neo4jStore) DeleteRelationship(ctx context.Context, id string) error {
	_, err := s.run(ctx, OpCrudWrite,
		"MATCH ()-[r]->() WHERE elementId(r) = $id DELETE r",
		map[string]any{"id": id})
	return err
}

func (s *Neo4jStore) GetNode(ctx context.Context, id string) (Node, bool, error) {
	rows, err := s.run(ctx, OpLookup,
		"MATCH (n) WHERE elementId(n) = $id RETURN "+nodeColumns,
		map[string]any{"id": id})
	if err != nil || len(rows) == 0 {
		return Node{}, false, err
	}
	return nodeFromRow(rows[0], ""), true, nil
}

func (s *Neo4jStore) GetRelationship(ctx context.Context, id string) (Relationship, bool, error) {
	rows, err := s.run(ctx, OpLookup,
		"MATCH (a)-[r]->(b) WHERE elementId(r) = $id RETURN "+relColumns,
		map[string]any{"id": id})
	if err != nil || len(rows) == 0 {
		return Relationship{}, false, err
	}
	return relationshipFromRow(rows[0]), true, nil
}

func (s *Neo4jStore) AllNodes(ctx context.Context) ([]Node, error) {
	rows, err := s.run(ctx, OpSnapshotScan, "MATCH (n) RETURN "+nodeColumns, nil)
	if err != nil {
		return nil, err
	}
	return nodesFromRows(rows), nil
}

func (s *Neo4jStore) AllRelationships(ctx context.Context) ([]Relationship, error) {
	rows, err := s.run(ctx, OpSnapshotScan, "MATCH (a)-[r]->(b) RETURN "+relColumns, nil)
	if err != nil {
		return nil, err
	}
	return relationshipsFromRows(rows), nil
}

func (s *Neo4jStore) NodesByLabel(ctx context.Context, label string) ([]Node, error) {
	if label == "" {
		return nil, errors.ValidationError("label must not be empty")
	}
	rows, err := s.run(ctx, OpExportQuery,
		fmt.Sprintf("MATCH (n:%s) RETURN %s", QuoteIdentifier(label), nodeColumns), nil)
	if err != nil {
		return nil, err
	}
	return nodesFromRows(rows), nil
}

func (s *Neo4jStore) DistinctLabels(ctx context.Context) ([]string, error) {
	rows, err := s.run(ctx, OpLookup,
		"MATCH (n) UNWIND labels(n) AS label RETURN DISTINCT label ORDER BY label", nil)
	if err != nil {
		return nil, err
	}
	return stringColumn(rows, "label"), nil
}

func (s *Neo4jStore) SampleNodes(ctx context.Context, limit int) ([]Node, error) {
	if limit <= 0 {
		limit = DefaultSampleLen
	}
	rows, err := s.run(ctx, OpLookup,
		"MATCH (n) RETURN "+nodeColumns+" LIMIT $limit",
		map[string]any{"limit": int64(limit)})
	if err != nil {
		return nil, err
	}
	return nodesFromRows(rows), nil
}

func (s *Neo4jStore) FacesLinkedTo(ctx context.Context, ids []string) ([]Node, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.run(ctx, OpExportQuery, `
		MATCH (main)-[:HAS_FACE]-(n:Face)
		WHERE elementId(main) IN $ids
		RETURN DISTINCT `+nodeColumns,
		map[string]any{"ids": ids})
	if err != nil {
		return nil, err
	}
	return nodesFromRows(rows), nil
}

func (s *Neo4jStore) FacesOfStructure(ctx context.Context, structureID string) ([]Node, error) {
	rows, err := s.run(ctx, OpExportQuery, `
		MATCH (s)-[:HAS_FACE]-(n:Face)
		WHERE elementId(s) = $structure_id
		RETURN DISTINCT `+nodeColumns+`, n.face_no AS face_no
		ORDER BY face_no`,
		map[string]any{"structure_id": structureID})
	if err != nil {
		return nil, err
	}
	return nodesFromRows(rows), nil
}

func (s *Neo4jStore) RelationshipsAmong(ctx context.Context, ids []string) ([]Relationship, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.run(ctx, OpExportQuery, `
		MATCH (a)-[r]->(b)
		WHERE elementId(a) IN $ids AND elementId(b) IN $ids
		RETURN `+relColumns,
		map[string]any{"ids": ids})
	if err != nil {
		return nil, err
	}
	return relationshipsFromRows(rows), nil
}

func (s *Neo4jStore) EdgesAmongFaces(ctx context.Context, faceIDs []string) ([]Relationship, error) {
	if len(faceIDs) == 0 {
		return nil, nil
	}
	rows, err := s.run(ctx, OpExportQuery, `
		MATCH (a:Face)-[r:RELATIONSHIP]->(b:Face)
		WHERE elementId(a) IN $ids AND elementId(b) IN $ids
		RETURN `+relColumns,
		map[string]any{"ids": faceIDs})
	if err != nil {
		return nil, err
	}
	return relationshipsFromRows(rows), nil
}

func (s *Neo4jStore) FacePairs(ctx context.Context, label, repositoryID string) ([]FacePair, error) {
	params := map[string]any{"label": label}
	scope := ""
	if repositoryID != "" {
		params["repository_id"] = repositoryID
		scope = `AND EXISTS {
			MATCH (repo:Repository)-[:HAS_STRUCTURE]->()-[:HAS_FACE]->(a)
			WHERE elementId(repo) = $repository_id
		}`
	}

	rows, err := s.run(ctx, OpExportQuery, `
		MATCH (a:Face)-[r:RELATIONSHIP]->(b:Face)
		WHERE a.structure_english_name = $label AND b.structure_english_name = $label
		`+scope+`
		RETURN elementId(a) AS source_id, labels(a) AS source_labels, properties(a) AS source_props,
		       elementId(r) AS id, type(r) AS type, properties(r) AS props,
		       elementId(b) AS target_id, labels(b) AS target_labels, properties(b) AS target_props`,
		params)
	if err != nil {
		return nil, err
	}

	pairs := make([]FacePair, 0, len(rows))
	for _, row := range rows {
		source := nodeFromRow(row, "source_")
		target := nodeFromRow(row, "target_")
		pairs = append(pairs, FacePair{
			Source: source,
			Relationship: Relationship{
				ID:         asString(row["id"]),
				Type:       asString(row["type"]),
				Source:     source.ID,
				Target:     target.ID,
				Properties: asProperties(row["props"]),
			},
			Target: target,
		})
	}
	return pairs, nil
}

func (s *Neo4jStore) Repositories(ctx context.Context) ([]Node, error) {
	rows, err := s.run(ctx, OpLookup,
		"MATCH (n:Repository) RETURN "+nodeColumns+", n.name AS name ORDER BY name", nil)
	if err != nil {
		return nil, err
	}
	return nodesFromRows(rows), nil
}

func (s *Neo4jStore) StructureLabels(ctx context.Context, repositoryID string) ([]string, error) {
	rows, err := s.run(ctx, OpLookup, `
		MATCH (repo:Repository)-[:HAS_STRUCTURE]->(s)
		WHERE elementId(repo) = $repository_id
		UNWIND labels(s) AS label
		RETURN DISTINCT label ORDER BY label`,
		map[string]any{"repository_id": repositoryID})
	if err != nil {
		return nil, err
	}
	return stringColumn(rows, "label"), nil
}

func (s *Neo4jStore) Describe(ctx context.Context) (ServerInfo, error) {
	rows, err := s.run(ctx, OpHealthCheck,
		"CALL dbms.components() YIELD name, versions, edition RETURN name, versions, edition", nil)
	if err != nil {
		return ServerInfo{}, err
	}
	if len(rows) == 0 {
		return ServerInfo{}, errors.DatabaseError(nil, "dbms.components returned no rows")
	}
	return ServerInfo{
		Name:    asString(rows[0]["name"]),
		Edition: asString(rows[0]["edition"]),
		Version: asStrings(rows[0]["versions"]),
	}, nil
}

func (s *Neo4jStore) HealthCheck(ctx context.Context) error {
	return s.runner.HealthCheck(ctx)
}

// Close closes the runner when it owns a driver.
func (s *Neo4jStore) Close(ctx context.Context) error {
	if c, ok := s.runner.(interface{ Close(context.Context) error }); ok {
		return c.Close(ctx)
	}
	return nil
}

func singleID(rows []map[string]any, what string) (string, error) {
	if len(rows) == 0 {
		return "", errors.DatabaseErrorf(nil, "create %s returned no id", what)
	}
	id := asString(rows[0]["id"])
	if id == "" {
		return "", errors.DatabaseErrorf(nil, "create %s returned an empty id", what)
	}
	return id, nil
}

func nodeFromRow(row map[string]any, prefix string) Node {
	return Node{
		ID:         asString(row[prefix+"id"]),
		Labels:     asStrings(row[prefix+"labels"]),
		Properties: asProperties(row[prefix+"props"]),
	}
}

func nodesFromRows(rows []map[string]any) []Node {
	nodes := make([]Node, 0, len(rows))
	for _, row := range rows {
		nodes = append(nodes, nodeFromRow(row, ""))
	}
	return nodes
}

func relationshipFromRow(row map[string]any) Relationship {
	return Relationship{
		ID:         asString(row["id"]),
		Type:       asString(row["type"]),
		Source:     asString(row["source"]),
		Target:     asString(row["target"]),
		Properties: asProperties(row["props"]),
	}
}

func relationshipsFromRows(rows []map[string]any) []Relationship {
	rels := make([]Relationship, 0, len(rows))
	for _, row := range rows {
		rels = append(rels, relationshipFromRow(row))
	}
	return rels
}

func stringColumn(rows []map[string]any, column string) []string {
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		if s := asString(row[column]); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

func asStrings(v any) []string {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, asString(item))
		}
		return out
	default:
		return []string{}
	}
}

func asProperties(v any) Properties {
	if m, ok := v.(map[string]any); ok {
		return PropertiesFrom(m)
	}
	return Properties{}
}
