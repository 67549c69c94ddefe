package sqlparse

import (
	"fmt"
	"strings"

	"github.com/auxten/postgresql-parser/pkg/sql/parser"
	"github.com/auxten/postgresql-parser/pkg/sql/sem/tree"

	"github.com/lineagraph/lineagraph/pkg/core"
)

// columnRef is a possibly-qualified column reference found in an
// expression. Empty Table means the qualifier was omitted.
type columnRef struct {
	Schema string
	Table  string
	Column string
}

// extractColumnLineage walks each statement's projection and emits one
// ColumnEntry per (source column, output column) pair. A parse error
// is returned so the caller can fall back to table-level lineage.
func (p *Parser) extractColumnLineage(sql string) ([]ColumnEntry, error) {
	stmts, err := parser.Parse(sql)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	var entries []ColumnEntry
	for i := range stmts {
		stmt := stmts[i].AST
		sel := selectClauseOf(stmt)
		if sel == nil {
			continue
		}
		ctes := make(map[string]struct{})
		collectCTENames(stmt, ctes)
		aliases := collectTableAliases(sel, ctes)
		entries = append(entries, p.projectionEntries(sel, aliases, ctes)...)
	}
	return entries, nil
}

// projectionEntries classifies each projected expression and resolves
// its source column references against the FROM-clause tables.
func (p *Parser) projectionEntries(sel *tree.SelectClause, aliases map[string]TableRef, ctes map[string]struct{}) []ColumnEntry {
	sole := singleTable(aliases)

	var entries []ColumnEntry
	for i, item := range sel.Exprs {
		target := outputColumnName(item, i+1)
		transform, sources := classifyExpr(item.Expr)
		for _, src := range sources {
			if src.Column == "" {
				continue
			}
			schema, table := src.Schema, src.Table
			switch {
			case table != "":
				// CTE outputs cannot be tied back to stored columns.
				if _, isCTE := ctes[strings.ToLower(table)]; isCTE {
					continue
				}
				if resolved, ok := aliases[strings.ToLower(table)]; ok {
					schema, table = resolved.Schema, resolved.Table
				}
			case sole != nil:
				// Exactly one table in scope: unqualified columns
				// can only come from it.
				schema, table = sole.Schema, sole.Table
			default:
				continue
			}
			entries = append(entries, ColumnEntry{
				SourceSchema:   schema,
				SourceTable:    table,
				SourceColumn:   src.Column,
				TargetColumn:   target,
				Transformation: transform,
			})
		}
	}
	return entries
}

// singleTable returns the sole distinct table in scope, or nil when
// zero or several tables are visible.
func singleTable(aliases map[string]TableRef) *TableRef {
	var sole *TableRef
	seen := make(map[string]struct{})
	for _, ref := range aliases {
		key := ref.Key("")
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if len(seen) > 1 {
			return nil
		}
		r := ref
		sole = &r
	}
	return sole
}

// outputColumnName picks the projected column's name: explicit alias,
// then bare column name, then a positional col_<n> placeholder.
func outputColumnName(item tree.SelectExpr, pos int) string {
	if item.As != "" {
		return string(item.As)
	}
	if n, ok := item.Expr.(*tree.UnresolvedName); ok && !n.Star && n.NumParts >= 1 {
		return n.Parts[0]
	}
	return fmt.Sprintf("col_%d", pos)
}

// classifyExpr labels how an output column is computed and returns the
// distinct source columns feeding it. Precedence: bare column, window
// function, aggregate/function call, CASE, operator arithmetic; any
// other expression that still references columns is a calculation.
func classifyExpr(expr tree.Expr) (core.TransformType, []columnRef) {
	switch e := expr.(type) {
	case *tree.UnresolvedName:
		if e.Star {
			return core.TransformDirect, nil
		}
		return core.TransformDirect, []columnRef{columnFromName(e)}
	case *tree.FuncExpr:
		if e.WindowDef != nil {
			return core.TransformWindow, collectColumns(expr)
		}
		return core.TransformAggregation, collectColumns(expr)
	case *tree.CaseExpr:
		return core.TransformCase, collectColumns(expr)
	case *tree.BinaryExpr:
		return core.TransformCalculation, collectColumns(expr)
	}
	if cols := collectColumns(expr); len(cols) > 0 {
		return core.TransformCalculation, cols
	}
	return core.TransformDirect, nil
}

// columnFromName decodes an UnresolvedName. Parts run right to left:
// Parts[0] is the column, Parts[1] the table, Parts[2] the schema.
func columnFromName(n *tree.UnresolvedName) columnRef {
	ref := columnRef{Column: n.Parts[0]}
	if n.NumParts >= 2 {
		ref.Table = n.Parts[1]
	}
	if n.NumParts >= 3 {
		ref.Schema = n.Parts[2]
	}
	return ref
}

// collectColumns gathers the distinct column references anywhere in an
// expression, in first-appearance order. Literals, stars, and scalar
// subqueries contribute nothing.
func collectColumns(expr tree.Expr) []columnRef {
	var out []columnRef
	seen := make(map[string]struct{})

	add := func(r columnRef) {
		if r.Column == "" {
			return
		}
		key := strings.ToLower(r.Schema + "." + r.Table + "." + r.Column)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}

	var visit func(e tree.Expr)
	visit = func(e tree.Expr) {
		if e == nil {
			return
		}
		switch n := e.(type) {
		case *tree.UnresolvedName:
			if !n.Star {
				add(columnFromName(n))
			}
		case *tree.FuncExpr:
			for _, a := range n.Exprs {
				visit(a)
			}
			if n.Filter != nil {
				visit(n.Filter)
			}
			if n.WindowDef != nil {
				for _, part := range n.WindowDef.Partitions {
					visit(part)
				}
				for _, ord := range n.WindowDef.OrderBy {
					visit(ord.Expr)
				}
			}
		case *tree.CaseExpr:
			visit(n.Expr)
			for _, w := range n.Whens {
				visit(w.Cond)
				visit(w.Val)
			}
			visit(n.Else)
		case *tree.BinaryExpr:
			visit(n.Left)
			visit(n.Right)
		case *tree.UnaryExpr:
			visit(n.Expr)
		case *tree.ComparisonExpr:
			visit(n.Left)
			visit(n.Right)
		case *tree.AndExpr:
			visit(n.Left)
			visit(n.Right)
		case *tree.OrExpr:
			visit(n.Left)
			visit(n.Right)
		case *tree.NotExpr:
			visit(n.Expr)
		case *tree.ParenExpr:
			visit(n.Expr)
		case *tree.CastExpr:
			visit(n.Expr)
		case *tree.AnnotateTypeExpr:
			visit(n.Expr)
		case *tree.CoalesceExpr:
			for _, a := range n.Exprs {
				visit(a)
			}
		case *tree.NullIfExpr:
			visit(n.Expr1)
			visit(n.Expr2)
		case *tree.RangeCond:
			visit(n.Left)
			visit(n.From)
			visit(n.To)
		case *tree.Tuple:
			for _, a := range n.Exprs {
				visit(a)
			}
		case *tree.Array:
			for _, a := range n.Exprs {
				visit(a)
			}
		case *tree.IndirectionExpr:
			visit(n.Expr)
		}
	}
	visit(expr)
	return out
}
