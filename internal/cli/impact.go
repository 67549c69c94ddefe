package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/lineagraph/lineagraph/internal/state"
	"github.com/lineagraph/lineagraph/pkg/core"
)

type impactOptions struct {
	Direction    string
	Depth        int
	OutputFormat string
}

func newImpactCmd() *cobra.Command {
	opts := &impactOptions{}

	cmd := &cobra.Command{
		Use:   "impact <schema.object|object-id>",
		Short: "Show what an object affects or depends on",
		Long: `Walk the stored lineage graph from one object and list everything it
reaches within the depth bound. Downstream answers "what breaks if
this changes"; upstream answers "where does this data come from".

An object reachable over several distinct paths is listed once per
path, so fan-in is visible in the output.`,
		Example: `  # Everything fed by public.orders, up to the configured depth
  lineagraph impact public.orders

  # Direct consumers only
  lineagraph impact public.orders --depth 1

  # Sources feeding a view, as JSON
  lineagraph impact analytics.daily_rollup --direction upstream --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImpact(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Direction, "direction", "d", string(core.Downstream), "Traversal direction (downstream|upstream)")
	cmd.Flags().IntVar(&opts.Depth, "depth", 0, "Max traversal depth (default from config)")
	cmd.Flags().StringVarP(&opts.OutputFormat, "output", "o", "table", "Output format (table|json)")

	return cmd
}

func runImpact(cmd *cobra.Command, target string, opts *impactOptions) error {
	cfg := getConfig()
	ctx := cmd.Context()

	depth := opts.Depth
	if depth == 0 {
		depth = cfg.MaxDepth
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	start, err := resolveObject(cmd, store, target)
	if err != nil {
		return err
	}

	rows, err := store.Traverse(ctx, start.ID, core.Direction(opts.Direction), depth)
	if err != nil {
		return err
	}

	switch opts.OutputFormat {
	case "json":
		return writeImpactJSON(cmd, start, rows)
	case "table":
		writeImpactTable(cmd, start, rows)
		return nil
	default:
		return fmt.Errorf("unknown output format %q", opts.OutputFormat)
	}
}

// resolveObject accepts either a raw object id or a schema-qualified
// name; a bare name resolves in the default schema.
func resolveObject(cmd *cobra.Command, store *state.SQLiteStore, target string) (*core.DataObject, error) {
	cfg := getConfig()
	ctx := cmd.Context()

	if id, err := uuid.Parse(target); err == nil {
		obj, err := store.GetObject(ctx, id)
		if err != nil {
			return nil, err
		}
		if obj == nil {
			return nil, fmt.Errorf("no object with id %s", id)
		}
		return obj, nil
	}

	schema, name := cfg.DefaultSchema, target
	if idx := strings.LastIndex(target, "."); idx >= 0 {
		schema, name = target[:idx], target[idx+1:]
	}
	obj, err := store.FindObject(ctx, schema, name)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("object %s.%s not found; run extract first", schema, name)
	}
	return obj, nil
}

func writeImpactTable(cmd *cobra.Command, start *core.DataObject, rows []core.ImpactRow) {
	fmt.Fprintf(cmd.OutOrStdout(), "Impact of %s (%s)\n", start.QualifiedName(), start.Type)
	if len(rows) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No reachable objects within the depth bound.")
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"Depth", "Object", "Type"})
	for _, r := range rows {
		t.AppendRow(table.Row{r.Depth, r.Object.QualifiedName(), string(r.Object.Type)})
	}
	t.Render()
}

type impactJSON struct {
	Start   string             `json:"start"`
	StartID uuid.UUID          `json:"start_id"`
	Reached []impactJSONResult `json:"reached"`
}

type impactJSONResult struct {
	ID     uuid.UUID       `json:"id"`
	Name   string          `json:"name"`
	Type   core.ObjectType `json:"type"`
	Depth  int             `json:"depth"`
	EdgeID uuid.UUID       `json:"edge_id"`
}

func writeImpactJSON(cmd *cobra.Command, start *core.DataObject, rows []core.ImpactRow) error {
	out := impactJSON{
		Start:   start.QualifiedName(),
		StartID: start.ID,
		Reached: make([]impactJSONResult, 0, len(rows)),
	}
	for _, r := range rows {
		out.Reached = append(out.Reached, impactJSONResult{
			ID:     r.Object.ID,
			Name:   r.Object.QualifiedName(),
			Type:   r.Object.Type,
			Depth:  r.Depth,
			EdgeID: r.EdgeID,
		})
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
