package catalog

import (
	"context"

	"github.com/lineagraph/lineagraph/pkg/core"
)

// MemoryFeed is a Feed backed by in-memory rows. It exists for tests
// and for replaying captured catalogs without a live connection.
type MemoryFeed struct {
	Info      core.SourceInfo
	SchemaSet []string
	TableRows map[string][]core.TableRow
	// ColumnRows is keyed by schema then table.
	ColumnRows map[string]map[string][]core.ColumnRow
	FKRows     map[string][]core.ForeignKeyRow
	ViewRows   map[string][]core.ViewRow
	FnRows     map[string][]core.FunctionRow
}

func (m *MemoryFeed) Source(context.Context) (core.SourceInfo, error) {
	return m.Info, nil
}

func (m *MemoryFeed) Schemas(context.Context) ([]string, error) {
	return m.SchemaSet, nil
}

func (m *MemoryFeed) Tables(_ context.Context, schema string) ([]core.TableRow, error) {
	return m.TableRows[schema], nil
}

func (m *MemoryFeed) Columns(_ context.Context, schema, table string) ([]core.ColumnRow, error) {
	return m.ColumnRows[schema][table], nil
}

func (m *MemoryFeed) ForeignKeys(_ context.Context, schema string) ([]core.ForeignKeyRow, error) {
	return m.FKRows[schema], nil
}

func (m *MemoryFeed) ViewDefinitions(_ context.Context, schema string) ([]core.ViewRow, error) {
	return m.ViewRows[schema], nil
}

func (m *MemoryFeed) Functions(_ context.Context, schema string) ([]core.FunctionRow, error) {
	return m.FnRows[schema], nil
}
