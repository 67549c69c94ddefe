// Package catalog supplies source metadata to the graph builder. A
// feed abstracts where the rows come from: a live PostgreSQL catalog,
// or an in-memory fixture in tests.
package catalog

import (
	"context"

	"github.com/lineagraph/lineagraph/pkg/core"
)

// Feed hands catalog rows to the extraction builder. Implementations
// own connection lifecycle; methods must be safe to call in any order
// after construction.
type Feed interface {
	// Source describes the system being catalogued.
	Source(ctx context.Context) (core.SourceInfo, error)
	// Schemas lists the schemas to scan, already filtered of system
	// namespaces.
	Schemas(ctx context.Context) ([]string, error)
	// Tables lists tables, views, and materialized views of a schema.
	Tables(ctx context.Context, schema string) ([]core.TableRow, error)
	// Columns lists the columns of one relation.
	Columns(ctx context.Context, schema, table string) ([]core.ColumnRow, error)
	// ForeignKeys lists foreign key constraints declared in a schema.
	ForeignKeys(ctx context.Context, schema string) ([]core.ForeignKeyRow, error)
	// ViewDefinitions returns view SQL bodies for a schema.
	ViewDefinitions(ctx context.Context, schema string) ([]core.ViewRow, error)
	// Functions lists stored functions and procedures of a schema.
	Functions(ctx context.Context, schema string) ([]core.FunctionRow, error)
}
