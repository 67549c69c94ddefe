// Package extract assembles a lineage graph from a catalog feed: it
// assigns stable identities to sources, objects, and columns, then
// derives edges from foreign keys and view definitions.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/lineagraph/lineagraph/internal/catalog"
	"github.com/lineagraph/lineagraph/internal/identity"
	"github.com/lineagraph/lineagraph/internal/sqlparse"
	"github.com/lineagraph/lineagraph/pkg/core"
)

// Config controls one extraction run.
type Config struct {
	// DefaultSchema resolves unqualified table references in view SQL.
	DefaultSchema string
	// Dialect names the SQL dialect of the source's view definitions.
	Dialect string
	// IncludeColumnLineage enables column-level mapping on view edges.
	IncludeColumnLineage bool
	Logger               *slog.Logger
}

// Builder runs extractions. One Builder can serve many feeds.
type Builder struct {
	cfg    Config
	parser *sqlparse.Parser
	logger *slog.Logger
}

// NewBuilder creates a Builder. A nil logger discards diagnostics.
func NewBuilder(cfg Config) *Builder {
	if cfg.DefaultSchema == "" {
		cfg.DefaultSchema = "public"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Builder{
		cfg:    cfg,
		parser: sqlparse.New(cfg.DefaultSchema, cfg.Dialect, logger),
		logger: logger,
	}
}

// index resolves catalog names to assigned identities during a run.
// Keys are lowercased; catalog casing never splits an object in two.
type index struct {
	objectPos map[string]int // schema.name -> position in result.Objects
	objectID  map[string]uuid.UUID
	columnID  map[string]uuid.UUID // objectID:column -> column id
}

func newIndex() *index {
	return &index{
		objectPos: make(map[string]int),
		objectID:  make(map[string]uuid.UUID),
		columnID:  make(map[string]uuid.UUID),
	}
}

func objKey(schema, name string) string {
	return strings.ToLower(schema) + "." + strings.ToLower(name)
}

func (ix *index) addObject(schema, name string, pos int, id uuid.UUID) {
	key := objKey(schema, name)
	ix.objectPos[key] = pos
	ix.objectID[key] = id
}

func (ix *index) object(schema, name string) (uuid.UUID, bool) {
	id, ok := ix.objectID[objKey(schema, name)]
	return id, ok
}

func (ix *index) position(schema, name string) (int, bool) {
	pos, ok := ix.objectPos[objKey(schema, name)]
	return pos, ok
}

func (ix *index) addColumn(objectID uuid.UUID, name string, id uuid.UUID) {
	ix.columnID[objectID.String()+":"+strings.ToLower(name)] = id
}

func (ix *index) column(objectID uuid.UUID, name string) (uuid.UUID, bool) {
	id, ok := ix.columnID[objectID.String()+":"+strings.ToLower(name)]
	return id, ok
}

// Extract scans the feed and returns the complete graph for one
// source. Metadata problems are fatal; per-view lineage problems only
// degrade that view.
func (b *Builder) Extract(ctx context.Context, feed catalog.Feed) (*core.ExtractionResult, error) {
	info, err := feed.Source(ctx)
	if err != nil {
		return nil, fmt.Errorf("read source descriptor: %w", err)
	}
	if info.Name == "" {
		return nil, fmt.Errorf("source descriptor has no name")
	}

	result := &core.ExtractionResult{
		Source: core.DataSource{
			ID:       identity.SourceID(info.Platform, info.Host, info.Database, info.Name),
			Name:     info.Name,
			Platform: info.Platform,
			Host:     info.Host,
			Port:     info.Port,
			Database: info.Database,
			Metadata: info.Metadata,
		},
	}

	schemas, err := feed.Schemas(ctx)
	if err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}
	b.logger.Info("extraction started", "source", info.Name, "schemas", len(schemas))

	ix := newIndex()
	for _, schema := range schemas {
		if err := b.scanSchema(ctx, feed, schema, result, ix); err != nil {
			return nil, err
		}
	}

	// Edges come after the full catalog scan so cross-schema foreign
	// keys and view references resolve no matter the scan order.
	inProgress := sqlparse.NewInProgressSet()
	for _, schema := range schemas {
		if err := b.foreignKeyEdges(ctx, feed, schema, result, ix); err != nil {
			return nil, err
		}
		if err := b.viewEdges(ctx, feed, schema, result, ix, inProgress); err != nil {
			return nil, err
		}
	}

	b.logger.Info("extraction finished",
		"source", info.Name,
		"objects", len(result.Objects),
		"columns", len(result.Columns),
		"edges", len(result.Edges))
	return result, nil
}

func (b *Builder) scanSchema(ctx context.Context, feed catalog.Feed, schema string, result *core.ExtractionResult, ix *index) error {
	tables, err := feed.Tables(ctx, schema)
	if err != nil {
		return fmt.Errorf("list tables in %s: %w", schema, err)
	}
	for _, t := range tables {
		if t.Name == "" {
			return fmt.Errorf("schema %s: table row with empty name", schema)
		}
		obj := core.DataObject{
			ID:           identity.ObjectID(result.Source.ID, schema, t.Name),
			SourceID:     result.Source.ID,
			Type:         t.Type,
			Name:         t.Name,
			SchemaName:   schema,
			DatabaseName: result.Source.Database,
			Description:  t.Description,
		}
		if t.RowCountEstimate > 0 {
			obj.Metadata = map[string]any{"row_count_estimate": t.RowCountEstimate}
		}
		ix.addObject(schema, t.Name, len(result.Objects), obj.ID)
		result.Objects = append(result.Objects, obj)

		cols, err := feed.Columns(ctx, schema, t.Name)
		if err != nil {
			return fmt.Errorf("list columns of %s.%s: %w", schema, t.Name, err)
		}
		for _, c := range cols {
			if c.Name == "" {
				return fmt.Errorf("relation %s.%s: column row with empty name", schema, t.Name)
			}
			col := core.Column{
				ID:          identity.ColumnID(obj.ID, c.Name),
				ObjectID:    obj.ID,
				Name:        c.Name,
				DataType:    c.DataType,
				Ordinal:     c.Ordinal,
				Nullable:    c.Nullable,
				PrimaryKey:  c.PrimaryKey,
				Description: c.Description,
			}
			if c.RawType != "" && c.RawType != c.DataType {
				col.Metadata = map[string]any{"raw_type": c.RawType}
			}
			ix.addColumn(obj.ID, c.Name, col.ID)
			result.Columns = append(result.Columns, col)
		}
	}

	fns, err := feed.Functions(ctx, schema)
	if err != nil {
		return fmt.Errorf("list functions in %s: %w", schema, err)
	}
	for _, fn := range fns {
		if fn.Name == "" {
			return fmt.Errorf("schema %s: function row with empty name", schema)
		}
		obj := core.DataObject{
			ID:            identity.ObjectID(result.Source.ID, schema, fn.Name),
			SourceID:      result.Source.ID,
			Type:          fn.Type,
			Name:          fn.Name,
			SchemaName:    schema,
			DatabaseName:  result.Source.Database,
			Description:   fn.Description,
			SQLDefinition: fn.Source,
			Metadata: map[string]any{
				"return_type": fn.ReturnType,
				"arguments":   fn.Arguments,
				"language":    fn.Language,
			},
		}
		ix.addObject(schema, fn.Name, len(result.Objects), obj.ID)
		result.Objects = append(result.Objects, obj)
	}
	return nil
}

// foreignKeyEdges emits one reference edge per constraint, flowing
// from the referenced table to the referencing table.
func (b *Builder) foreignKeyEdges(ctx context.Context, feed catalog.Feed, schema string, result *core.ExtractionResult, ix *index) error {
	fks, err := feed.ForeignKeys(ctx, schema)
	if err != nil {
		return fmt.Errorf("list foreign keys in %s: %w", schema, err)
	}
	for _, fk := range fks {
		referencing, okSrc := ix.object(schema, fk.SourceTable)
		referenced, okDst := ix.object(schema, fk.TargetTable)
		if !okSrc || !okDst {
			b.logger.Debug("foreign key endpoint not in catalog, skipping",
				"schema", schema, "constraint", fk.ConstraintName)
			continue
		}
		if referencing == referenced {
			continue
		}
		edge, err := core.NewLineage(
			identity.EdgeID(referenced, referencing, core.LineageReference),
			referenced, referencing, core.LineageReference)
		if err != nil {
			return fmt.Errorf("foreign key %s: %w", fk.ConstraintName, err)
		}
		edge.Description = "FK " + fk.ConstraintName + ": " + fk.SourceTable + "." + fk.SourceColumn +
			" -> " + fk.TargetTable + "." + fk.TargetColumn
		result.Edges = append(result.Edges, edge)
	}
	return nil
}

func (b *Builder) viewEdges(ctx context.Context, feed catalog.Feed, schema string, result *core.ExtractionResult, ix *index, inProgress sqlparse.InProgressSet) error {
	views, err := feed.ViewDefinitions(ctx, schema)
	if err != nil {
		return fmt.Errorf("list view definitions in %s: %w", schema, err)
	}
	for _, v := range views {
		b.processView(schema, v, result, ix, inProgress)
	}
	return nil
}

// processView derives edges for one view. Nothing here aborts the
// batch: a view that cannot be parsed falls back to table-level
// lineage, and a view that resolves to nothing is just skipped.
func (b *Builder) processView(schema string, view core.ViewRow, result *core.ExtractionResult, ix *index, inProgress sqlparse.InProgressSet) {
	targetID, ok := ix.object(schema, view.Name)
	if !ok {
		b.logger.Warn("view definition without catalog object, skipping",
			"schema", schema, "view", view.Name)
		return
	}
	if pos, ok := ix.position(schema, view.Name); ok {
		result.Objects[pos].SQLDefinition = view.Definition
	}

	key := sqlparse.ViewKey(schema, view.Name)
	release := inProgress.Mark(key)
	defer release()

	parsed := b.parser.ParseView(view.Definition, schema, view.Name)
	safe := b.parser.FilterSafeReferences(key, parsed.SourceTables, schema, inProgress)

	kind := core.LineageDirect
	if view.Materialized {
		kind = core.LineageDerived
	}

	for _, ref := range safe {
		refSchema := ref.Schema
		if refSchema == "" {
			refSchema = schema
		}
		sourceID, ok := ix.object(refSchema, ref.Table)
		if !ok {
			b.logger.Debug("view references object outside catalog, skipping",
				"view", key, "reference", refSchema+"."+ref.Table)
			continue
		}
		if sourceID == targetID {
			continue
		}

		edge, err := core.NewLineage(identity.EdgeID(sourceID, targetID, kind), sourceID, targetID, kind)
		if err != nil {
			b.logger.Warn("dropping invalid view edge", "view", key, "error", err)
			continue
		}
		edge.SQL = view.Definition
		if b.cfg.IncludeColumnLineage && parsed.ParseError == "" {
			edge.ColumnMappings = b.columnMappings(parsed.ColumnEntries, refSchema, ref.Table, sourceID, targetID, ix)
		}
		result.Edges = append(result.Edges, edge)
	}
}

// columnMappings resolves parsed column entries against assigned
// identities for one (source table, view) edge. Entries whose columns
// are unknown to the catalog are dropped.
func (b *Builder) columnMappings(entries []sqlparse.ColumnEntry, refSchema, refTable string, sourceID, targetID uuid.UUID, ix *index) []core.ColumnLineageMap {
	var maps []core.ColumnLineageMap
	for _, e := range entries {
		entrySchema := e.SourceSchema
		if entrySchema == "" {
			entrySchema = refSchema
		}
		if !strings.EqualFold(e.SourceTable, refTable) || !strings.EqualFold(entrySchema, refSchema) {
			continue
		}
		srcCol, okSrc := ix.column(sourceID, e.SourceColumn)
		dstCol, okDst := ix.column(targetID, e.TargetColumn)
		if !okSrc || !okDst {
			continue
		}
		maps = append(maps, core.ColumnLineageMap{
			SourceColumnID: srcCol,
			TargetColumnID: dstCol,
			Transformation: e.Transformation,
		})
	}
	return maps
}
