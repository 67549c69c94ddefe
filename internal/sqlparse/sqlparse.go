// Package sqlparse extracts lineage facts from SQL text: which tables
// a statement reads from, and which source columns each projected
// column derives from.
//
// Parsing is best-effort by contract. Malformed SQL never propagates
// an error past this package; it degrades the affected view to
// table-level lineage (or to nothing) and records the reason on the
// result. Callers must treat an empty result as "no lineage could be
// determined", not as an absence of dependencies.
package sqlparse

import (
	"log/slog"
	"strings"

	"github.com/auxten/postgresql-parser/pkg/sql/parser"
	"github.com/auxten/postgresql-parser/pkg/sql/sem/tree"
	"github.com/auxten/postgresql-parser/pkg/walk"

	"github.com/lineagraph/lineagraph/pkg/core"
)

// TableRef is a (schema, table) pair referenced by a statement.
// Schema is empty when the reference carries no qualifier.
type TableRef struct {
	Schema string
	Table  string
}

// Key returns the normalized schema.table key for a reference, filling
// in defaultSchema when the reference is unqualified.
func (r TableRef) Key(defaultSchema string) string {
	schema := r.Schema
	if schema == "" {
		schema = defaultSchema
	}
	return strings.ToLower(schema) + "." + strings.ToLower(r.Table)
}

// ColumnEntry is one column-level lineage fact, pre-identity: a source
// (schema, table, column) feeding one output column of the view.
type ColumnEntry struct {
	SourceSchema   string
	SourceTable    string
	SourceColumn   string
	TargetColumn   string
	Transformation core.TransformType
}

// ParsedViewLineage is the result of parsing one view's SQL. It is a
// transient hand-off artifact between the SQL layer and identity
// resolution; it is never persisted directly.
type ParsedViewLineage struct {
	TargetSchema  string
	TargetName    string
	SourceTables  []TableRef
	ColumnEntries []ColumnEntry
	// ParseError is set when column-level extraction failed; the
	// caller then falls back to table-level lineage only.
	ParseError string
}

// Parser extracts lineage facts from SQL for one dialect. It is
// stateless and safe for reuse across views.
type Parser struct {
	defaultSchema string
	dialect       string
	logger        *slog.Logger
}

// New creates a Parser. A nil logger discards diagnostics.
func New(defaultSchema, dialect string, logger *slog.Logger) *Parser {
	if defaultSchema == "" {
		defaultSchema = "public"
	}
	if dialect == "" {
		dialect = "postgres"
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Parser{defaultSchema: defaultSchema, dialect: dialect, logger: logger}
}

// ParseView parses a view or materialized view definition into table
// references and best-effort column lineage. The target schema/name
// are carried for diagnostics only.
func (p *Parser) ParseView(sql, targetSchema, targetName string) ParsedViewLineage {
	result := ParsedViewLineage{TargetSchema: targetSchema, TargetName: targetName}

	result.SourceTables = p.ExtractTableRefs(sql)

	entries, err := p.extractColumnLineage(sql)
	if err != nil {
		p.logger.Warn("column lineage parse failed, falling back to table-level",
			"view", targetSchema+"."+targetName,
			"dialect", p.dialect,
			"error", err)
		result.ParseError = err.Error()
		return result
	}
	result.ColumnEntries = entries
	return result
}

// ExtractTableRefs returns the (schema, table) pairs referenced
// anywhere in the SQL: FROM, JOIN, subqueries, nested CTE bodies.
// Names that are CTE aliases of the same statement are excluded
// (case-insensitive). On a parse error the list is empty.
func (p *Parser) ExtractTableRefs(sql string) []TableRef {
	stmts, err := parser.Parse(sql)
	if err != nil {
		p.logger.Warn("sql parse error while extracting table references", "error", err)
		return nil
	}

	var refs []TableRef
	seen := make(map[string]struct{})

	// CTE aliases are statement-scoped: collect and filter per
	// statement so a CTE in one statement cannot shadow a real table
	// referenced by another.
	for i := range stmts {
		stmt := stmts[i : i+1]
		ctes := make(map[string]struct{})
		collectCTENames(stmts[i].AST, ctes)

		w := &walk.AstWalker{
			Fn: func(_ interface{}, node interface{}) bool {
				var schema, name string
				switch n := node.(type) {
				case *tree.TableName:
					schema, name = n.Schema(), n.Table()
				case *tree.UnresolvedObjectName:
					tn := n.ToTableName()
					schema, name = tn.Schema(), tn.Table()
				default:
					return false
				}
				if name == "" {
					return false
				}
				if _, isCTE := ctes[strings.ToLower(name)]; isCTE {
					return false
				}
				key := strings.ToLower(schema) + "." + strings.ToLower(name)
				if _, dup := seen[key]; !dup {
					seen[key] = struct{}{}
					refs = append(refs, TableRef{Schema: schema, Table: name})
				}
				return false
			},
		}
		if _, err := w.Walk(stmt, nil); err != nil {
			p.logger.Warn("sql walk error while extracting table references", "error", err)
		}
	}
	return refs
}
