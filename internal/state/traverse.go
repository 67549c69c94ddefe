package state

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/lineagraph/lineagraph/pkg/core"
)

// Traverse enumerates every distinct path from start, up to maxDepth
// edges long. The recursive walk carries the path's edge ids along and
// refuses to reuse one, which terminates cycles while still reporting
// an object once per distinct path. Rows come back in ascending depth
// order.
func (s *SQLiteStore) Traverse(ctx context.Context, start uuid.UUID, dir core.Direction, maxDepth int) ([]core.ImpactRow, error) {
	if err := core.ValidateDirection(dir); err != nil {
		return nil, err
	}
	if err := core.ValidateDepth(maxDepth); err != nil {
		return nil, err
	}
	obj, err := s.GetObject(ctx, start)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("object %s not in store", start)
	}

	from, to := "source_object_id", "target_object_id"
	if dir == core.Upstream {
		from, to = to, from
	}

	query := fmt.Sprintf(`
		WITH RECURSIVE walk(object_id, depth, edge_id, path) AS (
			SELECT l.%[2]s, 1, l.id, ',' || l.id || ','
			FROM lineage l
			WHERE l.%[1]s = ?
			UNION ALL
			SELECT l.%[2]s, w.depth + 1, l.id, w.path || l.id || ','
			FROM lineage l
			JOIN walk w ON l.%[1]s = w.object_id
			WHERE w.depth < ? AND instr(w.path, ',' || l.id || ',') = 0
		)
		SELECT o.id, o.source_id, o.object_type, o.name, o.schema_name,
		       o.database_name, o.description, o.sql_definition, o.metadata,
		       w.depth, w.edge_id
		FROM walk w
		JOIN data_objects o ON o.id = w.object_id
		ORDER BY w.depth`, from, to)

	rows, err := s.db.QueryContext(ctx, query, start.String(), maxDepth)
	if err != nil {
		return nil, fmt.Errorf("traverse from %s: %w", start, err)
	}
	defer rows.Close()

	var results []core.ImpactRow
	for rows.Next() {
		var r core.ImpactRow
		var id, sourceID, objType, meta, edgeID string
		if err := rows.Scan(&id, &sourceID, &objType, &r.Object.Name, &r.Object.SchemaName,
			&r.Object.DatabaseName, &r.Object.Description, &r.Object.SQLDefinition, &meta,
			&r.Depth, &edgeID); err != nil {
			return nil, fmt.Errorf("scan traversal row: %w", err)
		}
		if r.Object.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse object id %q: %w", id, err)
		}
		if r.Object.SourceID, err = uuid.Parse(sourceID); err != nil {
			return nil, fmt.Errorf("parse source id %q: %w", sourceID, err)
		}
		if r.EdgeID, err = uuid.Parse(edgeID); err != nil {
			return nil, fmt.Errorf("parse edge id %q: %w", edgeID, err)
		}
		r.Object.Type = core.ObjectType(objType)
		if r.Object.Metadata, err = unmarshalMeta(meta); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("traverse from %s: %w", start, err)
	}
	return results, nil
}
