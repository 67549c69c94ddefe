package state

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lineagraph/lineagraph/internal/identity"
	"github.com/lineagraph/lineagraph/pkg/core"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s := NewSQLiteStore()
	require.NoError(t, s.Open(":memory:"))
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate())
	return s
}

// fixtureResult builds a small graph: customers -> orders (reference),
// orders -> order_summary (direct).
func fixtureResult() *core.ExtractionResult {
	sourceID := identity.SourceID(core.PlatformPostgreSQL, "db.internal", "shop", "shop")
	source := core.DataSource{
		ID: sourceID, Name: "shop", Platform: core.PlatformPostgreSQL,
		Host: "db.internal", Port: 5432, Database: "shop",
	}

	mkObj := func(name string, typ core.ObjectType) core.DataObject {
		return core.DataObject{
			ID:         identity.ObjectID(sourceID, "public", name),
			SourceID:   sourceID,
			Type:       typ,
			Name:       name,
			SchemaName: "public",
		}
	}
	customers := mkObj("customers", core.ObjectTypeTable)
	orders := mkObj("orders", core.ObjectTypeTable)
	summary := mkObj("order_summary", core.ObjectTypeView)

	mkEdge := func(src, dst core.DataObject, kind core.LineageType) core.Lineage {
		edge, err := core.NewLineage(identity.EdgeID(src.ID, dst.ID, kind), src.ID, dst.ID, kind)
		if err != nil {
			panic(err)
		}
		return edge
	}

	amount := core.Column{
		ID: identity.ColumnID(orders.ID, "amount"), ObjectID: orders.ID,
		Name: "amount", DataType: "decimal", Ordinal: 1,
	}
	total := core.Column{
		ID: identity.ColumnID(summary.ID, "total"), ObjectID: summary.ID,
		Name: "total", DataType: "decimal", Ordinal: 1,
	}

	viewEdge := mkEdge(orders, summary, core.LineageDirect)
	viewEdge.SQL = "SELECT SUM(amount) AS total FROM orders"
	viewEdge.ColumnMappings = []core.ColumnLineageMap{
		{SourceColumnID: amount.ID, TargetColumnID: total.ID, Transformation: core.TransformAggregation},
	}

	return &core.ExtractionResult{
		Source:  source,
		Objects: []core.DataObject{customers, orders, summary},
		Columns: []core.Column{amount, total},
		Edges:   []core.Lineage{mkEdge(customers, orders, core.LineageReference), viewEdge},
	}
}

func TestSaveExtraction_RepeatedRunsConverge(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	result := fixtureResult()

	require.NoError(t, s.SaveExtraction(ctx, result))
	require.NoError(t, s.SaveExtraction(ctx, result))

	objects, err := s.CountObjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, objects)

	edges, err := s.CountEdges(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, edges)
}

func TestSaveExtraction_UpsertRewritesFields(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	result := fixtureResult()
	require.NoError(t, s.SaveExtraction(ctx, result))

	result.Objects[0].Description = "customer master data"
	require.NoError(t, s.SaveExtraction(ctx, result))

	got, err := s.GetObject(ctx, result.Objects[0].ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "customer master data", got.Description)
}

func TestFindObject(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.SaveExtraction(ctx, fixtureResult()))

	got, err := s.FindObject(ctx, "PUBLIC", "Orders")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "orders", got.Name)

	missing, err := s.FindObject(ctx, "public", "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestGetObject_Absent(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	got, err := s.GetObject(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDeleteObject_Cascades(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	result := fixtureResult()
	require.NoError(t, s.SaveExtraction(ctx, result))

	// orders is an endpoint of both edges and owns a column.
	require.NoError(t, s.DeleteObject(ctx, result.Objects[1].ID))

	edges, err := s.CountEdges(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, edges)

	var cols int
	require.NoError(t, s.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM columns`).Scan(&cols))
	assert.Equal(t, 1, cols)
}

func TestDeleteEdge(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	result := fixtureResult()
	require.NoError(t, s.SaveExtraction(ctx, result))

	require.NoError(t, s.DeleteEdge(ctx, result.Edges[0].ID))
	edges, err := s.CountEdges(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, edges)
}

func TestUpsertEdge_RejectsSelfLoop(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	result := fixtureResult()
	require.NoError(t, s.SaveExtraction(ctx, result))

	id := result.Objects[0].ID
	err := s.UpsertEdge(ctx, core.Lineage{
		ID: uuid.New(), SourceObjectID: id, TargetObjectID: id, Type: core.LineageDirect,
	})
	assert.Error(t, err)
}
