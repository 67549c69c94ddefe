package catalog

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lineagraph/lineagraph/pkg/core"
)

// PostgresConfig holds connection settings for a live PostgreSQL feed.
type PostgresConfig struct {
	Name     string
	Host     string
	Port     int
	Database string
	User     string
	Password string
	// Schemas restricts the scan; empty means every non-system schema.
	Schemas []string
}

// PostgresFeed reads catalog metadata from a running PostgreSQL
// instance over a pgx connection pool.
type PostgresFeed struct {
	pool *pgxpool.Pool
	cfg  PostgresConfig
}

// NewPostgresFeed opens a pooled connection and verifies it with a
// ping. Close must be called when the feed is no longer needed.
func NewPostgresFeed(ctx context.Context, cfg PostgresConfig) (*PostgresFeed, error) {
	if cfg.Port == 0 {
		cfg.Port = 5432
	}
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		url.QueryEscape(cfg.User), url.QueryEscape(cfg.Password),
		cfg.Host, cfg.Port, cfg.Database)

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Database, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Database, err)
	}
	return &PostgresFeed{pool: pool, cfg: cfg}, nil
}

// Close releases the connection pool.
func (f *PostgresFeed) Close() {
	f.pool.Close()
}

func (f *PostgresFeed) Source(ctx context.Context) (core.SourceInfo, error) {
	var version string
	if err := f.pool.QueryRow(ctx, "SELECT version()").Scan(&version); err != nil {
		return core.SourceInfo{}, fmt.Errorf("read server version: %w", err)
	}
	name := f.cfg.Name
	if name == "" {
		name = f.cfg.Database
	}
	return core.SourceInfo{
		Name:     name,
		Platform: core.PlatformPostgreSQL,
		Host:     f.cfg.Host,
		Port:     f.cfg.Port,
		Database: f.cfg.Database,
		Metadata: map[string]any{"server_version": version},
	}, nil
}

func (f *PostgresFeed) Schemas(ctx context.Context) ([]string, error) {
	const q = `
		SELECT schema_name
		FROM information_schema.schemata
		WHERE schema_name NOT IN ('pg_catalog', 'information_schema')
		  AND schema_name NOT LIKE 'pg_toast%'
		  AND schema_name NOT LIKE 'pg_temp%'
		ORDER BY schema_name`

	rows, err := f.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}
	defer rows.Close()

	var schemas []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan schema row: %w", err)
		}
		if f.schemaWanted(name) {
			schemas = append(schemas, name)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}
	return schemas, nil
}

func (f *PostgresFeed) schemaWanted(name string) bool {
	if len(f.cfg.Schemas) == 0 {
		return true
	}
	for _, s := range f.cfg.Schemas {
		if s == name {
			return true
		}
	}
	return false
}

func (f *PostgresFeed) Tables(ctx context.Context, schema string) ([]core.TableRow, error) {
	const q = `
		SELECT c.relname,
		       CASE c.relkind
		           WHEN 'v' THEN 'view'
		           WHEN 'm' THEN 'materialized_view'
		           ELSE 'table'
		       END,
		       COALESCE(obj_description(c.oid), ''),
		       GREATEST(c.reltuples::bigint, 0)
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1 AND c.relkind IN ('r', 'p', 'v', 'm')
		ORDER BY c.relname`

	rows, err := f.pool.Query(ctx, q, schema)
	if err != nil {
		return nil, fmt.Errorf("list tables in %s: %w", schema, err)
	}
	defer rows.Close()

	var tables []core.TableRow
	for rows.Next() {
		var t core.TableRow
		var kind string
		if err := rows.Scan(&t.Name, &kind, &t.Description, &t.RowCountEstimate); err != nil {
			return nil, fmt.Errorf("scan table row: %w", err)
		}
		t.Type = core.ObjectType(kind)
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tables in %s: %w", schema, err)
	}
	return tables, nil
}

func (f *PostgresFeed) Columns(ctx context.Context, schema, table string) ([]core.ColumnRow, error) {
	const q = `
		SELECT a.attname,
		       format_type(a.atttypid, a.atttypmod),
		       a.attnum,
		       NOT a.attnotnull,
		       COALESCE(pg_get_expr(d.adbin, d.adrelid), ''),
		       COALESCE(col_description(a.attrelid, a.attnum), ''),
		       EXISTS (
		           SELECT 1 FROM pg_index i
		           WHERE i.indrelid = a.attrelid
		             AND i.indisprimary
		             AND a.attnum = ANY (i.indkey)
		       )
		FROM pg_attribute a
		JOIN pg_class c ON c.oid = a.attrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		LEFT JOIN pg_attrdef d ON d.adrelid = a.attrelid AND d.adnum = a.attnum
		WHERE n.nspname = $1 AND c.relname = $2
		  AND a.attnum > 0 AND NOT a.attisdropped
		ORDER BY a.attnum`

	rows, err := f.pool.Query(ctx, q, schema, table)
	if err != nil {
		return nil, fmt.Errorf("list columns of %s.%s: %w", schema, table, err)
	}
	defer rows.Close()

	var cols []core.ColumnRow
	for rows.Next() {
		var c core.ColumnRow
		if err := rows.Scan(&c.Name, &c.RawType, &c.Ordinal, &c.Nullable, &c.Default, &c.Description, &c.PrimaryKey); err != nil {
			return nil, fmt.Errorf("scan column row: %w", err)
		}
		c.DataType = normalizeType(c.RawType)
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list columns of %s.%s: %w", schema, table, err)
	}
	return cols, nil
}

func (f *PostgresFeed) ForeignKeys(ctx context.Context, schema string) ([]core.ForeignKeyRow, error) {
	const q = `
		SELECT tc.constraint_name,
		       tc.table_name,
		       kcu.column_name,
		       ccu.table_name,
		       ccu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON kcu.constraint_name = tc.constraint_name
		 AND kcu.table_schema = tc.table_schema
		JOIN information_schema.constraint_column_usage ccu
		  ON ccu.constraint_name = tc.constraint_name
		 AND ccu.table_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY' AND tc.table_schema = $1
		ORDER BY tc.constraint_name`

	rows, err := f.pool.Query(ctx, q, schema)
	if err != nil {
		return nil, fmt.Errorf("list foreign keys in %s: %w", schema, err)
	}
	defer rows.Close()

	var fks []core.ForeignKeyRow
	for rows.Next() {
		var fk core.ForeignKeyRow
		if err := rows.Scan(&fk.ConstraintName, &fk.SourceTable, &fk.SourceColumn, &fk.TargetTable, &fk.TargetColumn); err != nil {
			return nil, fmt.Errorf("scan foreign key row: %w", err)
		}
		fks = append(fks, fk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list foreign keys in %s: %w", schema, err)
	}
	return fks, nil
}

func (f *PostgresFeed) ViewDefinitions(ctx context.Context, schema string) ([]core.ViewRow, error) {
	const q = `
		SELECT viewname, definition, false FROM pg_views WHERE schemaname = $1
		UNION ALL
		SELECT matviewname, definition, true FROM pg_matviews WHERE schemaname = $1
		ORDER BY 1`

	rows, err := f.pool.Query(ctx, q, schema)
	if err != nil {
		return nil, fmt.Errorf("list view definitions in %s: %w", schema, err)
	}
	defer rows.Close()

	var views []core.ViewRow
	for rows.Next() {
		var v core.ViewRow
		if err := rows.Scan(&v.Name, &v.Definition, &v.Materialized); err != nil {
			return nil, fmt.Errorf("scan view row: %w", err)
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list view definitions in %s: %w", schema, err)
	}
	return views, nil
}

func (f *PostgresFeed) Functions(ctx context.Context, schema string) ([]core.FunctionRow, error) {
	const q = `
		SELECT p.proname,
		       CASE p.prokind WHEN 'p' THEN 'procedure' ELSE 'function' END,
		       COALESCE(pg_get_function_result(p.oid), ''),
		       pg_get_function_arguments(p.oid),
		       l.lanname,
		       COALESCE(p.prosrc, ''),
		       COALESCE(obj_description(p.oid), '')
		FROM pg_proc p
		JOIN pg_namespace n ON n.oid = p.pronamespace
		JOIN pg_language l ON l.oid = p.prolang
		WHERE n.nspname = $1 AND p.prokind IN ('f', 'p')
		ORDER BY p.proname`

	rows, err := f.pool.Query(ctx, q, schema)
	if err != nil {
		return nil, fmt.Errorf("list functions in %s: %w", schema, err)
	}
	defer rows.Close()

	var fns []core.FunctionRow
	for rows.Next() {
		var fn core.FunctionRow
		var kind string
		if err := rows.Scan(&fn.Name, &kind, &fn.ReturnType, &fn.Arguments, &fn.Language, &fn.Source, &fn.Description); err != nil {
			return nil, fmt.Errorf("scan function row: %w", err)
		}
		fn.Type = core.ObjectType(kind)
		fns = append(fns, fn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list functions in %s: %w", schema, err)
	}
	return fns, nil
}
