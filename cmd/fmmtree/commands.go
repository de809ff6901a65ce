package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/onnwee/fmmtree/backend/internal/config"
	"github.com/onnwee/fmmtree/backend/internal/export"
	"github.com/onnwee/fmmtree/backend/internal/fmm"
	"github.com/onnwee/fmmtree/backend/internal/logger"
	"github.com/onnwee/fmmtree/backend/internal/source"
	"github.com/onnwee/fmmtree/backend/internal/vector"
)

func newRootCommand() *cobra.Command {
	var logLevel string
	cmd := &cobra.Command{
		Use:           "fmmtree",
		Short:         "Build FMM spatial partition trees from point sources",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.InitWithWriter(logLevel, false, cmd.ErrOrStderr())
		},
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	cmd.AddCommand(newBuildCommand(), newDemoCommand())
	return cmd
}

// demoSources is the six-source boundary scenario: every source lies
// outside the default unit root.
func demoSources() []source.Source {
	return []source.Source{
		source.New(vector.New(1, 2), 5),
		source.New(vector.New(4, 5), -3),
		source.New(vector.New(7, 8), 2),
		source.New(vector.New(-2, -3), 4),
		source.New(vector.New(-4, -1), -1),
		source.New(vector.New(6, -2), 3),
	}
}

type buildOpts struct {
	input      string
	output     string
	leavesOnly bool
	leaf       int
	accuracy   float64
	maxDepth   int
	root       string
	size       float64
	padding    float64
	strict     bool
	dimension  int
}

func (o *buildOpts) options() (fmm.Options, error) {
	mode, err := fmm.ParseRootMode(o.root)
	if err != nil {
		return fmm.Options{}, fmt.Errorf("--root: %w", err)
	}
	return fmm.Options{
		MaxSourcesPerLeaf: o.leaf,
		Accuracy:          o.accuracy,
		MaxDepth:          o.maxDepth,
		Root:              mode,
		Size:              o.size,
		Padding:           o.padding,
		Strict:            o.strict,
		Dimension:         o.dimension,
	}, nil
}

func newBuildCommand() *cobra.Command {
	cfg := config.Load()
	opts := buildOpts{
		leaf:     cfg.MaxSourcesPerLeaf,
		accuracy: cfg.Accuracy,
		maxDepth: cfg.MaxDepth,
		root:     cfg.RootMode,
		padding:  cfg.RootPadding,
		strict:   cfg.StrictBounds,
	}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a tree from a CSV of sources (x,y[,z...],strength) or the demo set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sources := demoSources()
			if opts.input != "" {
				f, err := os.Open(opts.input)
				if err != nil {
					return err
				}
				defer f.Close()
				if sources, err = export.ReadSourcesCSV(f); err != nil {
					return fmt.Errorf("read %s: %w", opts.input, err)
				}
			}

			fopts, err := opts.options()
			if err != nil {
				return err
			}
			tree, err := fmm.Build(contextOrBackground(cmd), sources, fopts)
			if err != nil {
				return err
			}
			printTree(cmd.OutOrStdout(), tree)

			if opts.output == "" {
				return nil
			}
			out, err := os.Create(opts.output)
			if err != nil {
				return err
			}
			if err := export.WriteNodesCSV(out, tree, opts.leavesOnly); err != nil {
				out.Close()
				return err
			}
			return out.Close()
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.input, "input", "i", "", "source CSV file (default: built-in demo sources)")
	f.StringVarP(&opts.output, "out", "o", "", "write the node table as CSV to this file")
	f.BoolVar(&opts.leavesOnly, "leaves-only", false, "only write leaves to --out")
	f.IntVar(&opts.leaf, "max-per-leaf", opts.leaf, "leaf capacity")
	f.Float64Var(&opts.accuracy, "accuracy", opts.accuracy, "target accuracy stored on the tree")
	f.IntVar(&opts.maxDepth, "max-depth", opts.maxDepth, "depth ceiling")
	f.StringVar(&opts.root, "root", opts.root, "root region: fit or fixed")
	f.Float64Var(&opts.size, "size", 0, "fixed root half-width (default 1)")
	f.Float64Var(&opts.padding, "padding", opts.padding, "relative margin for a fitted root")
	f.BoolVar(&opts.strict, "strict", opts.strict, "fail when a source lies outside a fixed root")
	f.IntVar(&opts.dimension, "dimension", 0, "dimension, required for an empty input")
	return cmd
}

func newDemoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Build the six-source boundary scenario with a fixed and a fitted root",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			for i, mode := range []fmm.RootMode{fmm.RootFixed, fmm.RootFit} {
				opts := fmm.DefaultOptions()
				opts.MaxSourcesPerLeaf = 2
				opts.Root = mode
				tree, err := fmm.Build(contextOrBackground(cmd), demoSources(), opts)
				if err != nil {
					return err
				}
				if i > 0 {
					fmt.Fprintln(w)
				}
				printTree(w, tree)
			}
			return nil
		},
	}
}

func printTree(w io.Writer, tree *fmm.Tree) {
	s := tree.Stats()
	fmt.Fprintln(w, tree.String())
	fmt.Fprintf(w, "root: %s  dimension: %d\n", tree.RootMode(), tree.Dimension())
	fmt.Fprintf(w, "nodes: %d  leaves: %d  empty leaves: %d  max depth: %d  max occupancy: %d\n",
		s.Nodes, s.Leaves, s.EmptyLeaves, s.MaxDepth, s.MaxLeafOccupancy)
	if tree.Partial() {
		fmt.Fprintf(w, "partial: %d leaves hit the depth limit\n", s.DepthLimited)
	}
	diags := tree.Diagnostics()
	fmt.Fprintf(w, "diagnostics: %d\n", len(diags))
	for _, d := range diags {
		fmt.Fprintf(w, "  %s\n", d.Error())
	}
}

// contextOrBackground keeps commands usable when executed without a
// context, as in tests.
func contextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
