// Package cli implements the fertree command-line interface.
//
// Every command reads a stream of trees from a file or standard input in the
// format chosen with --format (or the config file) and writes trees or a
// tab separated table to standard output or --output.
//
// # Commands
//
//   - format: re-serialize trees as Newick or Nexus
//   - stats: per tree and per node summaries
//   - extract: taxa, tip annotations, annotation transitions or a single tree
//   - prune: keep, remove or sample taxa
//   - distance: root-to-tip divergence, shared divergence and comparison
//     against a reference tree
//   - ltt: lineages through time table and plot
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jsdoublel/fertree/internal/config"
	pr "github.com/jsdoublel/fertree/internal/prep"
	"github.com/jsdoublel/fertree/internal/tree"
	"github.com/jsdoublel/fertree/internal/treeio"
)

const (
	Version    = "v0.1.0"
	ErrMessage = "fertree encountered an error ::"
)

var _ pflag.Value = (*treeio.Format)(nil)

// options shared by every command, filled from flags and the config file
type options struct {
	verbose    bool
	configPath string
	format     treeio.Format
	output     string
	nprocs     int
	writer     *treeio.Writer
}

// newLogger creates a logger with timestamps formatted as "HH:MM:SS.ms".
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// Execute runs the fertree CLI and returns an error if any command fails.
func Execute() error {
	return NewRootCommand().ExecuteContext(context.Background())
}

func NewRootCommand() *cobra.Command {
	opts := &options{format: treeio.Newick, writer: treeio.NewWriter()}
	root := &cobra.Command{
		Use:          "fertree",
		Short:        "fertree reads, summarizes and rewrites phylogenetic trees",
		Long:         `fertree is a toolkit for streams of phylogenetic trees in Newick or Nexus format, with support for BEAST style node annotations.`,
		Version:      Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}
	flags := root.PersistentFlags()
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose logging")
	flags.StringVar(&opts.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/fertree/config.toml)")
	flags.VarP(&opts.format, "format", "f", fmt.Sprintf("input tree format %v", treeio.FormatNames()))
	flags.StringVarP(&opts.output, "output", "o", pr.Stdin, "output file")
	flags.IntVarP(&opts.nprocs, "procs", "n", 0, "number of parallel processes")

	root.AddCommand(newFormatCmd(opts))
	root.AddCommand(newStatsCmd(opts))
	root.AddCommand(newExtractCmd(opts))
	root.AddCommand(newPruneCmd(opts))
	root.AddCommand(newDistanceCmd(opts))
	root.AddCommand(newLTTCmd(opts))
	return root
}

// setup merges the config file under the flags and installs the logger.
func (opts *options) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	level, _ := cfg.Level()
	if opts.verbose {
		level = log.DebugLevel
	}
	log.SetDefault(newLogger(cmd.ErrOrStderr(), level))
	flags := cmd.Flags()
	if !flags.Changed("format") {
		opts.format, _ = cfg.InputFormat()
	}
	if !flags.Changed("procs") {
		opts.nprocs = cfg.Procs
	}
	opts.nprocs = setNProcs(opts.nprocs)
	opts.writer.SciThreshold = cfg.Writer.SciThreshold
	return nil
}

func setNProcs(nprocs int) int {
	maxProcs := runtime.GOMAXPROCS(0)
	switch {
	case nprocs > maxProcs:
		log.Warn("more processes requested than available", "requested", nprocs, "limit", maxProcs)
		return maxProcs
	case nprocs <= 0:
		log.Debug("number of processes not set", "default", maxProcs)
		return maxProcs
	default:
		return nprocs
	}
}

func inputPath(args []string) string {
	if len(args) == 0 {
		return pr.Stdin
	}
	return args[0]
}

// openOutput returns the command's stdout unless --output names a file.
func (opts *options) openOutput(cmd *cobra.Command) (io.Writer, func() error, error) {
	if opts.output == "" || opts.output == pr.Stdin {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	file, err := os.Create(opts.output)
	if err != nil {
		return nil, nil, fmt.Errorf("%w, %s", pr.ErrWritingFile, err)
	}
	return file, file.Close, nil
}

// withOutput runs fn against the output writer and closes it afterwards.
func (opts *options) withOutput(cmd *cobra.Command, fn func(w io.Writer) error) (err error) {
	w, closeOut, err := opts.openOutput(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeOut(); cerr != nil && err == nil {
			err = fmt.Errorf("%w, %s", pr.ErrWritingFile, cerr)
		}
	}()
	return fn(w)
}

// eachTree streams the input trees through fn, stopping at the first error.
func (opts *options) eachTree(args []string, fn func(i int, t *tree.Tree) error) error {
	path := inputPath(args)
	imp, closer, err := pr.OpenTrees(path, opts.format)
	if err != nil {
		return err
	}
	defer closer.Close()
	count := 0
	for imp.HasTree() {
		t, err := imp.ReadNextTree()
		if err != nil {
			return fmt.Errorf("error reading tree %d from %s: %w", count, path, err)
		}
		if err := fn(count, t); err != nil {
			return err
		}
		count++
	}
	if err := imp.Err(); err != nil {
		return fmt.Errorf("error reading tree %d from %s: %w", count, path, err)
	}
	if count == 0 {
		return fmt.Errorf("%w, no trees found in %s", pr.ErrInvalidFile, path)
	}
	log.Debug("processed trees", "count", count, "input", path)
	return nil
}

// readTrees loads the whole input for commands that need every tree at once.
func (opts *options) readTrees(args []string) ([]*tree.Tree, error) {
	path := inputPath(args)
	imp, closer, err := pr.OpenTrees(path, opts.format)
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	trees, err := pr.ReadAllTrees(imp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return trees, nil
}

func treeName(i int, t *tree.Tree) string {
	if t.ID() != "" {
		return t.ID()
	}
	return fmt.Sprintf("%d", i)
}

func formatFloat(f float64) string {
	return fmt.Sprintf("%.2e", f)
}

