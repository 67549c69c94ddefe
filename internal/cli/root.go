// Package cli provides the command-line interface for lineagraph.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lineagraph/lineagraph/internal/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "lineagraph",
		Short: "lineagraph - data lineage graph engine",
		Long: `lineagraph extracts metadata and lineage from a database catalog,
assigns every source, object, and column a stable identity, and stores
the resulting graph locally so impact questions ("what breaks if this
table changes?") can be answered offline.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			var err error
			cfg, err = config.Load(cfgFile, cmd.Root().PersistentFlags())
			return err
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./lineagraph.yaml)")
	rootCmd.PersistentFlags().String("state", "", "Path to the graph database")
	rootCmd.PersistentFlags().String("schema", "", "Default schema for unqualified table references")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newExtractCmd())
	rootCmd.AddCommand(newImpactCmd())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func getConfig() *config.Config {
	if cfg == nil {
		return &config.Config{
			DefaultSchema: config.DefaultSchema,
			Dialect:       config.DefaultDialect,
			StatePath:     config.DefaultStatePath,
			MaxDepth:      config.DefaultTraversalDepth,
		}
	}
	return cfg
}

// newLogger builds the CLI logger. Diagnostics go to stderr so stdout
// stays parseable.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
