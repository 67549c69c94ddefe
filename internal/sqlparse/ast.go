package sqlparse

import (
	"strings"

	"github.com/auxten/postgresql-parser/pkg/sql/sem/tree"
)

// collectCTENames records every WITH alias reachable from stmt,
// lowercased, including aliases of CTEs nested inside CTE bodies,
// subqueries, and set operations.
func collectCTENames(stmt tree.Statement, names map[string]struct{}) {
	switch s := stmt.(type) {
	case *tree.Select:
		collectSelectCTEs(s, names)
	case *tree.CreateView:
		if s.AsSource != nil {
			collectSelectCTEs(s.AsSource, names)
		}
	}
}

func collectSelectCTEs(sel *tree.Select, names map[string]struct{}) {
	if sel == nil {
		return
	}
	if sel.With != nil {
		for _, cte := range sel.With.CTEList {
			if cte == nil {
				continue
			}
			names[strings.ToLower(string(cte.Name.Alias))] = struct{}{}
			collectCTENames(cte.Stmt, names)
		}
	}
	collectSelectStmtCTEs(sel.Select, names)
}

func collectSelectStmtCTEs(ss tree.SelectStatement, names map[string]struct{}) {
	switch s := ss.(type) {
	case *tree.SelectClause:
		for _, t := range s.From.Tables {
			collectTableExprCTEs(t, names)
		}
	case *tree.ParenSelect:
		collectSelectCTEs(s.Select, names)
	case *tree.UnionClause:
		collectSelectCTEs(s.Left, names)
		collectSelectCTEs(s.Right, names)
	}
}

func collectTableExprCTEs(expr tree.TableExpr, names map[string]struct{}) {
	switch t := expr.(type) {
	case *tree.AliasedTableExpr:
		collectTableExprCTEs(t.Expr, names)
	case *tree.ParenTableExpr:
		collectTableExprCTEs(t.Expr, names)
	case *tree.JoinTableExpr:
		collectTableExprCTEs(t.Left, names)
		collectTableExprCTEs(t.Right, names)
	case *tree.Subquery:
		collectSelectStmtCTEs(t.Select, names)
	}
}

// selectClauseOf unwraps a statement to the SELECT clause that defines
// its projection. For set operations the left arm wins; its column
// list fixes the output shape.
func selectClauseOf(stmt tree.Statement) *tree.SelectClause {
	switch s := stmt.(type) {
	case *tree.Select:
		return selectStmtClause(s.Select)
	case *tree.CreateView:
		if s.AsSource != nil {
			return selectStmtClause(s.AsSource.Select)
		}
	}
	return nil
}

func selectStmtClause(ss tree.SelectStatement) *tree.SelectClause {
	switch s := ss.(type) {
	case *tree.SelectClause:
		return s
	case *tree.ParenSelect:
		if s.Select != nil {
			return selectStmtClause(s.Select.Select)
		}
	case *tree.UnionClause:
		if s.Left != nil {
			return selectStmtClause(s.Left.Select)
		}
	}
	return nil
}

// collectTableAliases maps every alias and table name visible in the
// FROM clause (lowercased) to the underlying table reference. CTE
// names are skipped; aliases over subqueries resolve to the tables of
// the inner SELECT.
func collectTableAliases(sel *tree.SelectClause, ctes map[string]struct{}) map[string]TableRef {
	aliases := make(map[string]TableRef)
	for _, t := range sel.From.Tables {
		registerTableExpr(t, ctes, aliases)
	}
	return aliases
}

func registerTableExpr(expr tree.TableExpr, ctes map[string]struct{}, aliases map[string]TableRef) {
	switch t := expr.(type) {
	case *tree.AliasedTableExpr:
		alias := string(t.As.Alias)
		switch inner := t.Expr.(type) {
		case *tree.TableName:
			registerTable(inner.Schema(), inner.Table(), alias, ctes, aliases)
		case *tree.UnresolvedObjectName:
			tn := inner.ToTableName()
			registerTable(tn.Schema(), tn.Table(), alias, ctes, aliases)
		case *tree.Subquery:
			registerSubquery(inner, ctes, aliases)
		}
	case *tree.TableName:
		registerTable(t.Schema(), t.Table(), "", ctes, aliases)
	case *tree.UnresolvedObjectName:
		tn := t.ToTableName()
		registerTable(tn.Schema(), tn.Table(), "", ctes, aliases)
	case *tree.JoinTableExpr:
		registerTableExpr(t.Left, ctes, aliases)
		registerTableExpr(t.Right, ctes, aliases)
	case *tree.ParenTableExpr:
		registerTableExpr(t.Expr, ctes, aliases)
	case *tree.Subquery:
		registerSubquery(t, ctes, aliases)
	}
}

func registerSubquery(sq *tree.Subquery, ctes map[string]struct{}, aliases map[string]TableRef) {
	if sc := selectStmtClause(sq.Select); sc != nil {
		for _, ft := range sc.From.Tables {
			registerTableExpr(ft, ctes, aliases)
		}
	}
}

func registerTable(schema, name, alias string, ctes map[string]struct{}, aliases map[string]TableRef) {
	if name == "" {
		return
	}
	if _, isCTE := ctes[strings.ToLower(name)]; isCTE {
		return
	}
	ref := TableRef{Schema: schema, Table: name}
	aliases[strings.ToLower(name)] = ref
	if alias != "" {
		aliases[strings.ToLower(alias)] = ref
	}
}
