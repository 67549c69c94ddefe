package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/lineagraph/lineagraph/pkg/core"
)

func marshalMeta(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	return string(raw), nil
}

func unmarshalMeta(raw string) (map[string]any, error) {
	if raw == "" || raw == "{}" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return m, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// UpsertSource writes a data source, rewriting the row when the id
// already exists.
func (s *SQLiteStore) UpsertSource(ctx context.Context, src core.DataSource) error {
	return upsertSource(ctx, s.db, src)
}

func upsertSource(ctx context.Context, db execer, src core.DataSource) error {
	meta, err := marshalMeta(src.Metadata)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO data_sources (id, name, platform, description, host, port, database_name, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			platform = excluded.platform,
			description = excluded.description,
			host = excluded.host,
			port = excluded.port,
			database_name = excluded.database_name,
			metadata = excluded.metadata,
			updated_at = CURRENT_TIMESTAMP`,
		src.ID.String(), src.Name, string(src.Platform), src.Description,
		src.Host, src.Port, src.Database, meta)
	if err != nil {
		return fmt.Errorf("upsert source %s: %w", src.Name, err)
	}
	return nil
}

// UpsertObject writes a data object.
func (s *SQLiteStore) UpsertObject(ctx context.Context, obj core.DataObject) error {
	return upsertObject(ctx, s.db, obj)
}

func upsertObject(ctx context.Context, db execer, obj core.DataObject) error {
	meta, err := marshalMeta(obj.Metadata)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO data_objects (id, source_id, object_type, name, schema_name, database_name, description, sql_definition, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source_id = excluded.source_id,
			object_type = excluded.object_type,
			name = excluded.name,
			schema_name = excluded.schema_name,
			database_name = excluded.database_name,
			description = excluded.description,
			sql_definition = excluded.sql_definition,
			metadata = excluded.metadata,
			updated_at = CURRENT_TIMESTAMP`,
		obj.ID.String(), obj.SourceID.String(), string(obj.Type), obj.Name,
		obj.SchemaName, obj.DatabaseName, obj.Description, obj.SQLDefinition, meta)
	if err != nil {
		return fmt.Errorf("upsert object %s: %w", obj.QualifiedName(), err)
	}
	return nil
}

// UpsertColumn writes a column.
func (s *SQLiteStore) UpsertColumn(ctx context.Context, col core.Column) error {
	return upsertColumn(ctx, s.db, col)
}

func upsertColumn(ctx context.Context, db execer, col core.Column) error {
	meta, err := marshalMeta(col.Metadata)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO columns (id, object_id, name, data_type, ordinal_position, is_nullable, is_primary_key, description, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			object_id = excluded.object_id,
			name = excluded.name,
			data_type = excluded.data_type,
			ordinal_position = excluded.ordinal_position,
			is_nullable = excluded.is_nullable,
			is_primary_key = excluded.is_primary_key,
			description = excluded.description,
			metadata = excluded.metadata`,
		col.ID.String(), col.ObjectID.String(), col.Name, col.DataType,
		col.Ordinal, col.Nullable, col.PrimaryKey, col.Description, meta)
	if err != nil {
		return fmt.Errorf("upsert column %s: %w", col.Name, err)
	}
	return nil
}

// UpsertEdge writes a lineage edge.
func (s *SQLiteStore) UpsertEdge(ctx context.Context, edge core.Lineage) error {
	return upsertEdge(ctx, s.db, edge)
}

func upsertEdge(ctx context.Context, db execer, edge core.Lineage) error {
	if edge.SourceObjectID == edge.TargetObjectID {
		return fmt.Errorf("edge %s: source and target object must differ", edge.ID)
	}
	meta, err := marshalMeta(edge.Metadata)
	if err != nil {
		return err
	}
	mappings := "[]"
	if len(edge.ColumnMappings) > 0 {
		raw, err := json.Marshal(edge.ColumnMappings)
		if err != nil {
			return fmt.Errorf("encode column mappings: %w", err)
		}
		mappings = string(raw)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO lineage (id, source_object_id, target_object_id, lineage_type, sql_text, description, column_mappings, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source_object_id = excluded.source_object_id,
			target_object_id = excluded.target_object_id,
			lineage_type = excluded.lineage_type,
			sql_text = excluded.sql_text,
			description = excluded.description,
			column_mappings = excluded.column_mappings,
			metadata = excluded.metadata`,
		edge.ID.String(), edge.SourceObjectID.String(), edge.TargetObjectID.String(),
		string(edge.Type), edge.SQL, edge.Description, mappings, meta)
	if err != nil {
		return fmt.Errorf("upsert edge %s: %w", edge.ID, err)
	}
	return nil
}

// SaveExtraction persists a whole extraction result in one
// transaction. Stable identities make re-runs converge in place.
func (s *SQLiteStore) SaveExtraction(ctx context.Context, result *core.ExtractionResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	if err := upsertSource(ctx, tx, result.Source); err != nil {
		return err
	}
	for _, obj := range result.Objects {
		if err := upsertObject(ctx, tx, obj); err != nil {
			return err
		}
	}
	for _, col := range result.Columns {
		if err := upsertColumn(ctx, tx, col); err != nil {
			return err
		}
	}
	for _, edge := range result.Edges {
		if err := upsertEdge(ctx, tx, edge); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

const objectColumns = `id, source_id, object_type, name, schema_name, database_name, description, sql_definition, metadata`

func scanObject(row interface{ Scan(...any) error }) (core.DataObject, error) {
	var obj core.DataObject
	var id, sourceID, objType, meta string
	if err := row.Scan(&id, &sourceID, &objType, &obj.Name, &obj.SchemaName,
		&obj.DatabaseName, &obj.Description, &obj.SQLDefinition, &meta); err != nil {
		return core.DataObject{}, err
	}
	var err error
	if obj.ID, err = uuid.Parse(id); err != nil {
		return core.DataObject{}, fmt.Errorf("parse object id %q: %w", id, err)
	}
	if obj.SourceID, err = uuid.Parse(sourceID); err != nil {
		return core.DataObject{}, fmt.Errorf("parse source id %q: %w", sourceID, err)
	}
	obj.Type = core.ObjectType(objType)
	if obj.Metadata, err = unmarshalMeta(meta); err != nil {
		return core.DataObject{}, err
	}
	return obj, nil
}

// GetObject loads an object by id. Returns (nil, nil) when absent.
func (s *SQLiteStore) GetObject(ctx context.Context, id uuid.UUID) (*core.DataObject, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+objectColumns+` FROM data_objects WHERE id = ?`, id.String())
	obj, err := scanObject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", id, err)
	}
	return &obj, nil
}

// FindObject looks an object up by schema and name, case-insensitively.
// Returns (nil, nil) when absent.
func (s *SQLiteStore) FindObject(ctx context.Context, schema, name string) (*core.DataObject, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+objectColumns+` FROM data_objects
		 WHERE lower(schema_name) = lower(?) AND lower(name) = lower(?)`,
		schema, name)
	obj, err := scanObject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find object %s.%s: %w", schema, name, err)
	}
	return &obj, nil
}

// DeleteObject removes an object; its columns and incident edges go
// with it through the cascade.
func (s *SQLiteStore) DeleteObject(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM data_objects WHERE id = ?`, id.String()); err != nil {
		return fmt.Errorf("delete object %s: %w", id, err)
	}
	return nil
}

// DeleteEdge removes a single lineage edge.
func (s *SQLiteStore) DeleteEdge(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM lineage WHERE id = ?`, id.String()); err != nil {
		return fmt.Errorf("delete edge %s: %w", id, err)
	}
	return nil
}

// CountObjects returns the number of stored objects.
func (s *SQLiteStore) CountObjects(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM data_objects`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count objects: %w", err)
	}
	return n, nil
}

// CountEdges returns the number of stored edges.
func (s *SQLiteStore) CountEdges(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM lineage`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count edges: %w", err)
	}
	return n, nil
}
