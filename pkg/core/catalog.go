package core

// Catalog feed row types. A catalog feed (live database, export file,
// test fixture) supplies these rows per schema; the graph builder never
// queries a source system itself.

// SourceInfo describes the source system a feed reads from.
type SourceInfo struct {
	Name     string
	Platform Platform
	Host     string
	Port     int
	Database string
	Metadata map[string]any
}

// TableRow is one table, view, or materialized view reported by the
// catalog.
type TableRow struct {
	Name             string
	Type             ObjectType
	Description      string
	RowCountEstimate int64
}

// ColumnRow is one column of a table or view.
type ColumnRow struct {
	Name        string
	DataType    string // canonical type (integer, string, timestamp, ...)
	RawType     string // platform-native type (varchar(255), int8, ...)
	Ordinal     int
	Nullable    bool
	Default     string
	PrimaryKey  bool
	Description string
}

// ForeignKeyRow is one catalog-reported foreign key constraint.
type ForeignKeyRow struct {
	SourceTable    string
	SourceColumn   string
	TargetTable    string
	TargetColumn   string
	ConstraintName string
}

// ViewRow is one view definition with its SQL text.
type ViewRow struct {
	Name         string
	Definition   string
	Materialized bool
}

// FunctionRow is one stored function or procedure. Function bodies are
// catalogued but not mined for lineage.
type FunctionRow struct {
	Name        string
	Type        ObjectType // function or procedure
	ReturnType  string
	Arguments   string
	Language    string
	Source      string
	Description string
}
