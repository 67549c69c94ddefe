package sqlparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lineagraph/lineagraph/pkg/core"
)

// entriesByTarget indexes parsed column entries by output column name.
func entriesByTarget(entries []ColumnEntry) map[string][]ColumnEntry {
	out := make(map[string][]ColumnEntry)
	for _, e := range entries {
		out[e.TargetColumn] = append(out[e.TargetColumn], e)
	}
	return out
}

func TestColumnClassification(t *testing.T) {
	p := New("public", "postgres", nil)

	sql := `SELECT
		a,
		SUM(b) AS total,
		CASE WHEN c > 0 THEN 1 ELSE 0 END AS flag,
		(price - cost) / price AS margin,
		ROW_NUMBER() OVER (ORDER BY d) AS rn
	FROM t`

	got := p.ParseView(sql, "public", "metrics")
	require.Empty(t, got.ParseError)
	byTarget := entriesByTarget(got.ColumnEntries)

	// Bare column passes through unchanged.
	require.Len(t, byTarget["a"], 1)
	assert.Equal(t, core.TransformDirect, byTarget["a"][0].Transformation)
	assert.Equal(t, "a", byTarget["a"][0].SourceColumn)
	assert.Equal(t, "t", byTarget["a"][0].SourceTable)

	// Aggregate call.
	require.Len(t, byTarget["total"], 1)
	assert.Equal(t, core.TransformAggregation, byTarget["total"][0].Transformation)
	assert.Equal(t, "b", byTarget["total"][0].SourceColumn)

	// CASE expression: sources come from the branches.
	require.Len(t, byTarget["flag"], 1)
	assert.Equal(t, core.TransformCase, byTarget["flag"][0].Transformation)
	assert.Equal(t, "c", byTarget["flag"][0].SourceColumn)

	// Arithmetic over two columns: both recorded once, in order.
	require.Len(t, byTarget["margin"], 2)
	assert.Equal(t, core.TransformCalculation, byTarget["margin"][0].Transformation)
	assert.Equal(t, "price", byTarget["margin"][0].SourceColumn)
	assert.Equal(t, "cost", byTarget["margin"][1].SourceColumn)

	// Window function, sources from the OVER clause.
	require.Len(t, byTarget["rn"], 1)
	assert.Equal(t, core.TransformWindow, byTarget["rn"][0].Transformation)
	assert.Equal(t, "d", byTarget["rn"][0].SourceColumn)
}

func TestColumnClassification_PositionalName(t *testing.T) {
	p := New("public", "postgres", nil)

	got := p.ParseView("SELECT price * 2, price FROM items", "public", "v")
	require.Empty(t, got.ParseError)
	byTarget := entriesByTarget(got.ColumnEntries)

	// Unnamed expression falls back to its 1-based position.
	require.Len(t, byTarget["col_1"], 1)
	assert.Equal(t, core.TransformCalculation, byTarget["col_1"][0].Transformation)
	assert.Equal(t, "price", byTarget["col_1"][0].SourceColumn)

	require.Len(t, byTarget["price"], 1)
	assert.Equal(t, core.TransformDirect, byTarget["price"][0].Transformation)
}

func TestColumnClassification_AliasResolution(t *testing.T) {
	p := New("public", "postgres", nil)

	got := p.ParseView("SELECT o.id, c.region FROM analytics.orders o JOIN geo.customers c ON o.cid = c.id", "public", "v")
	require.Empty(t, got.ParseError)
	require.Len(t, got.ColumnEntries, 2)

	assert.Equal(t, "analytics", got.ColumnEntries[0].SourceSchema)
	assert.Equal(t, "orders", got.ColumnEntries[0].SourceTable)
	assert.Equal(t, "geo", got.ColumnEntries[1].SourceSchema)
	assert.Equal(t, "customers", got.ColumnEntries[1].SourceTable)
}

func TestColumnClassification_UnqualifiedColumns(t *testing.T) {
	p := New("public", "postgres", nil)

	t.Run("single table in scope attributes the column", func(t *testing.T) {
		got := p.ParseView("SELECT amount FROM payments", "public", "v")
		require.Empty(t, got.ParseError)
		require.Len(t, got.ColumnEntries, 1)
		assert.Equal(t, "payments", got.ColumnEntries[0].SourceTable)
		assert.Equal(t, "amount", got.ColumnEntries[0].SourceColumn)
	})

	t.Run("ambiguous scope drops the column", func(t *testing.T) {
		got := p.ParseView("SELECT amount FROM payments, refunds", "public", "v")
		require.Empty(t, got.ParseError)
		assert.Empty(t, got.ColumnEntries)
	})
}

func TestColumnClassification_CTEColumnsExcluded(t *testing.T) {
	p := New("public", "postgres", nil)

	got := p.ParseView("WITH agg AS (SELECT SUM(x) AS s FROM raw) SELECT agg.s FROM agg", "public", "v")
	require.Empty(t, got.ParseError)
	// agg is a CTE, not a stored object; its columns resolve to nothing.
	assert.Empty(t, got.ColumnEntries)
	// Table-level lineage still reaches through to the real table.
	assert.Equal(t, []TableRef{{Table: "raw"}}, got.SourceTables)
}

func TestColumnClassification_StarProjection(t *testing.T) {
	p := New("public", "postgres", nil)

	got := p.ParseView("SELECT * FROM users", "public", "v")
	require.Empty(t, got.ParseError)
	// A star cannot be mapped without the catalog; no entries, no error.
	assert.Empty(t, got.ColumnEntries)
	assert.Equal(t, []TableRef{{Table: "users"}}, got.SourceTables)
}

func TestColumnClassification_SourceDedupWithinExpression(t *testing.T) {
	p := New("public", "postgres", nil)

	got := p.ParseView("SELECT price * price AS sq FROM items", "public", "v")
	require.Empty(t, got.ParseError)
	require.Len(t, got.ColumnEntries, 1)
	assert.Equal(t, "price", got.ColumnEntries[0].SourceColumn)
}
