package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/lineagraph/lineagraph/internal/catalog"
	"github.com/lineagraph/lineagraph/internal/config"
	"github.com/lineagraph/lineagraph/internal/extract"
	"github.com/lineagraph/lineagraph/internal/state"
	"github.com/lineagraph/lineagraph/pkg/core"
)

func newExtractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract",
		Short: "Extract metadata and lineage from the configured source",
		Long: `Connect to the configured source database, scan its catalog, derive
lineage edges from foreign keys and view definitions, and save the
graph to the local state database. Re-running converges in place:
identities are stable, so nothing is duplicated.`,
		Example: `  # Extract using ./lineagraph.yaml
  lineagraph extract

  # Extract into an explicit state file
  lineagraph extract --state /tmp/graph.db`,
		Args: cobra.NoArgs,
		RunE: runExtract,
	}
}

func runExtract(cmd *cobra.Command, _ []string) error {
	cfg := getConfig()
	logger := newLogger(cfg.Verbose)
	ctx := cmd.Context()

	if cfg.Source.Host == "" || cfg.Source.Database == "" {
		return fmt.Errorf("source host and database must be configured (see lineagraph.yaml)")
	}

	feed, err := catalog.NewPostgresFeed(ctx, catalog.PostgresConfig{
		Name:     cfg.Source.Name,
		Host:     cfg.Source.Host,
		Port:     cfg.Source.Port,
		Database: cfg.Source.Database,
		User:     cfg.Source.User,
		Password: cfg.Source.Password,
		Schemas:  cfg.Source.Schemas,
	})
	if err != nil {
		return err
	}
	defer feed.Close()

	builder := extract.NewBuilder(extract.Config{
		DefaultSchema:        cfg.DefaultSchema,
		Dialect:              cfg.Dialect,
		IncludeColumnLineage: cfg.IncludeColumnLineage,
		Logger:               logger,
	})
	result, err := builder.Extract(ctx, feed)
	if err != nil {
		return fmt.Errorf("extract from %s: %w", cfg.Source.Host, err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.SaveExtraction(ctx, result); err != nil {
		return fmt.Errorf("save graph: %w", err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"Entity", "Count"})
	t.AppendRows([]table.Row{
		{"objects", len(result.Objects)},
		{"columns", len(result.Columns)},
		{"edges", len(result.Edges)},
	})
	kinds := edgeSummary(result.Edges)
	for _, kind := range []core.LineageType{core.LineageDirect, core.LineageDerived, core.LineageReference} {
		if n := kinds[kind]; n > 0 {
			t.AppendRow(table.Row{"edges (" + string(kind) + ")", n})
		}
	}
	t.Render()
	return nil
}

// openStore opens the state database, creating its directory and
// schema as needed.
func openStore(cfg *config.Config) (*state.SQLiteStore, error) {
	if dir := filepath.Dir(cfg.StatePath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create state directory %s: %w", dir, err)
		}
	}
	store := state.NewSQLiteStore()
	if err := store.Open(cfg.StatePath); err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// edgeSummary counts edges by kind for the extract summary.
func edgeSummary(edges []core.Lineage) map[core.LineageType]int {
	out := make(map[core.LineageType]int)
	for _, e := range edges {
		out[e.Type]++
	}
	return out
}
