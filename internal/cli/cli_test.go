package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lineagraph/lineagraph/internal/identity"
	"github.com/lineagraph/lineagraph/internal/state"
	"github.com/lineagraph/lineagraph/pkg/core"
)

func seedStateFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "graph.db")

	s := state.NewSQLiteStore()
	require.NoError(t, s.Open(path))
	defer s.Close()
	require.NoError(t, s.Migrate())

	ctx := context.Background()
	sourceID := identity.SourceID(core.PlatformPostgreSQL, "h", "d", "s")
	require.NoError(t, s.UpsertSource(ctx, core.DataSource{
		ID: sourceID, Name: "s", Platform: core.PlatformPostgreSQL,
	}))

	orders := identity.ObjectID(sourceID, "public", "orders")
	summary := identity.ObjectID(sourceID, "public", "order_summary")
	require.NoError(t, s.UpsertObject(ctx, core.DataObject{
		ID: orders, SourceID: sourceID, Type: core.ObjectTypeTable,
		Name: "orders", SchemaName: "public",
	}))
	require.NoError(t, s.UpsertObject(ctx, core.DataObject{
		ID: summary, SourceID: sourceID, Type: core.ObjectTypeView,
		Name: "order_summary", SchemaName: "public",
	}))
	edge, err := core.NewLineage(identity.EdgeID(orders, summary, core.LineageDirect), orders, summary, core.LineageDirect)
	require.NoError(t, err)
	require.NoError(t, s.UpsertEdge(ctx, edge))
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfg = nil
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootCommandWiring(t *testing.T) {
	root := NewRootCmd()
	names := make([]string, 0, len(root.Commands()))
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "extract")
	assert.Contains(t, names, "impact")
	assert.Contains(t, names, "version")
}

func TestImpactCommand(t *testing.T) {
	path := seedStateFile(t)

	out, err := runCommand(t, "impact", "public.orders", "--state", path, "--depth", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "order_summary")
}

func TestImpactCommand_UnknownObject(t *testing.T) {
	path := seedStateFile(t)

	_, err := runCommand(t, "impact", "public.nope", "--state", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestImpactCommand_JSON(t *testing.T) {
	path := seedStateFile(t)

	out, err := runCommand(t, "impact", "public.orders", "--state", path, "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"depth": 1`)
	assert.Contains(t, out, "order_summary")
}

func TestVersionCommand(t *testing.T) {
	out, err := runCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "lineagraph")
}
