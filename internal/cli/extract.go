package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/jsdoublel/fertree/internal/annotation"
	gr "github.com/jsdoublel/fertree/internal/graphs"
	pr "github.com/jsdoublel/fertree/internal/prep"
	"github.com/jsdoublel/fertree/internal/score"
	"github.com/jsdoublel/fertree/internal/tree"
)

var ErrTreeNotFound = errors.New("tree not found")

func newExtractCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Pull taxa, annotations or single trees out of a tree file",
	}
	cmd.AddCommand(newExtractTaxaCmd(opts))
	cmd.AddCommand(newExtractAnnotationsCmd(opts))
	cmd.AddCommand(newExtractTreeCmd(opts))
	cmd.AddCommand(newExtractTransitionsCmd(opts))
	cmd.AddCommand(newExtractCladesCmd(opts))
	cmd.AddCommand(newExtractQuartetsCmd(opts))
	return cmd
}

func newExtractTaxaCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "taxa [trees]",
		Short: "List the taxa of each tree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var rows [][]string
			err := opts.eachTree(args, func(i int, t *tree.Tree) error {
				for _, taxon := range t.Taxa() {
					rows = append(rows, []string{treeName(i, t), taxon})
				}
				return nil
			})
			if err != nil {
				return err
			}
			return opts.withOutput(cmd, func(w io.Writer) error {
				return pr.WriteTable(w, []string{"tree", "taxa"}, rows)
			})
		},
	}
}

// Tip annotation table. The columns are the annotation keys registered on the
// first tree; a tip without a key gets an empty cell.
func newExtractAnnotationsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "annotations [trees]",
		Short: "Tabulate the annotations of every tip",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var keys []string
			var rows [][]string
			err := opts.eachTree(args, func(i int, t *tree.Tree) error {
				if i == 0 {
					keys = t.AnnotationKeys()
				}
				for _, tip := range t.ExternalNodes() {
					taxon, _ := t.Taxon(tip)
					row := []string{treeName(i, t), taxon}
					for _, k := range keys {
						if v, ok := t.Annotation(tip, k); ok {
							row = append(row, annotation.Text(v))
						} else {
							row = append(row, "")
						}
					}
					rows = append(rows, row)
				}
				return nil
			})
			if err != nil {
				return err
			}
			header := append([]string{"tree", "taxa"}, keys...)
			return opts.withOutput(cmd, func(w io.Writer) error {
				return pr.WriteTable(w, header, rows)
			})
		},
	}
}

func newExtractTreeCmd(opts *options) *cobra.Command {
	var index int
	var id string
	cmd := &cobra.Command{
		Use:   "tree [trees]",
		Short: "Write the tree at --index or with --id",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := opts.findTree(args, index, id)
			if err != nil {
				return err
			}
			return opts.withOutput(cmd, func(w io.Writer) error {
				return opts.writer.WriteNewick(w, t)
			})
		},
	}
	cmd.Flags().IntVar(&index, "index", -1, "0 based position of the tree")
	cmd.Flags().StringVar(&id, "id", "", "id of the tree (Nexus input)")
	cmd.MarkFlagsMutuallyExclusive("index", "id")
	cmd.MarkFlagsOneRequired("index", "id")
	return cmd
}

// findTree skips over trees without building them until the wanted one.
func (opts *options) findTree(args []string, index int, id string) (*tree.Tree, error) {
	if id == "" && index < 0 {
		return nil, fmt.Errorf("%w, index must not be negative (%d)", ErrTreeNotFound, index)
	}
	path := inputPath(args)
	imp, closer, err := pr.OpenTrees(path, opts.format)
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	for i := 0; imp.HasTree(); i++ {
		if id == "" && i < index {
			if err := imp.SkipTree(); err != nil {
				return nil, fmt.Errorf("error skipping tree %d in %s: %w", i, path, err)
			}
			continue
		}
		t, err := imp.ReadNextTree()
		if err != nil {
			return nil, fmt.Errorf("error reading tree %d in %s: %w", i, path, err)
		}
		if id == "" || t.ID() == id {
			return t, nil
		}
	}
	if err := imp.Err(); err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	if id != "" {
		log.Warn("tree not found", "id", id, "input", path)
		return nil, fmt.Errorf("%w, no tree with id %q", ErrTreeNotFound, id)
	}
	log.Warn("tree not found", "index", index, "input", path)
	return nil, fmt.Errorf("%w, no tree at index %d", ErrTreeNotFound, index)
}

func newExtractTransitionsCmd(opts *options) *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "transitions [trees]",
		Short: "List branches along which an annotation changes value",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var rows [][]string
			err := opts.eachTree(args, func(i int, t *tree.Tree) error {
				transitions, err := score.Transitions(t, key)
				if err != nil {
					return fmt.Errorf("tree %s: %w", treeName(i, t), err)
				}
				for _, tr := range transitions {
					rows = append(rows, []string{
						treeName(i, t),
						annotation.Text(tr.Source),
						annotation.Text(tr.Destination),
						strconv.FormatFloat(tr.Height, 'g', -1, 64),
					})
				}
				return nil
			})
			if err != nil {
				return err
			}
			return opts.withOutput(cmd, func(w io.Writer) error {
				return pr.WriteTable(w, []string{"tree", "source", "destination", "height"}, rows)
			})
		},
	}
	cmd.Flags().StringVarP(&key, "key", "k", "", "annotation key")
	cmd.MarkFlagRequired("key")
	return cmd
}

// Non-trivial clades of each tree in preorder, with the height of the node
// that defines them.
func newExtractCladesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "clades [trees]",
		Short: "List the clades of each tree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var rows [][]string
			err := opts.eachTree(args, func(i int, t *tree.Tree) error {
				td, err := gr.MakeTreeData(t, nil)
				if err != nil {
					return fmt.Errorf("tree %s: %w", treeName(i, t), err)
				}
				for _, n := range t.Preorder() {
					size := td.Leafset(n).Count()
					if size < 2 || size >= uint(td.NLeaves) {
						continue
					}
					h, _ := t.Height(n)
					rows = append(rows, []string{
						treeName(i, t),
						td.LeafsetAsString(n),
						strconv.FormatUint(uint64(size), 10),
						formatFloat(h),
					})
				}
				return nil
			})
			if err != nil {
				return err
			}
			return opts.withOutput(cmd, func(w io.Writer) error {
				return pr.WriteTable(w, []string{"tree", "clade", "size", "height"}, rows)
			})
		},
	}
}

func newExtractQuartetsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "quartets [trees]",
		Short: "List the resolved quartets displayed by each tree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var rows [][]string
			err := opts.eachTree(args, func(i int, t *tree.Tree) error {
				quartets, err := gr.DisplayedQuartets(t)
				if err != nil {
					return fmt.Errorf("tree %s: %w", treeName(i, t), err)
				}
				for _, q := range quartets {
					rows = append(rows, []string{treeName(i, t), q})
				}
				return nil
			})
			if err != nil {
				return err
			}
			return opts.withOutput(cmd, func(w io.Writer) error {
				return pr.WriteTable(w, []string{"tree", "quartet"}, rows)
			})
		},
	}
}
