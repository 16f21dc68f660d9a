// Package handling input and output files: opening tree files, reading taxon
// lists, and writing tables and plots
package prep

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	gr "github.com/jsdoublel/fertree/internal/graphs"
	"github.com/jsdoublel/fertree/internal/tree"
	"github.com/jsdoublel/fertree/internal/treeio"
)

var (
	ErrInvalidFile = errors.New("invalid file")
	ErrWritingFile = errors.New("error writing file")

	plotLineColor  = color.RGBA{R: 37, G: 150, B: 190, A: 255}
	plotMarkerShap = draw.SquareGlyph{}
)

const (
	Stdin = "-"

	plotH = 4 * vg.Inch
	plotW = 6 * vg.Inch

	maxTicks = 10
)

// Opens a tree file for streaming. The path "-" reads standard input. The
// caller closes the returned Closer once done with the importer.
func OpenTrees(path string, format treeio.Format) (treeio.TreeImporter, io.Closer, error) {
	if path == Stdin || path == "" {
		return treeio.NewImporter(bufio.NewReader(os.Stdin), format), io.NopCloser(os.Stdin), nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("error opening %s, %w", path, err)
	}
	return treeio.NewImporter(bufio.NewReader(file), format), file, nil
}

// Reads every remaining tree. Returns ErrInvalidFile if there are none.
func ReadAllTrees(imp treeio.TreeImporter) ([]*tree.Tree, error) {
	var trees []*tree.Tree
	for imp.HasTree() {
		t, err := imp.ReadNextTree()
		if err != nil {
			return nil, fmt.Errorf("error reading tree %d: %w", len(trees), err)
		}
		trees = append(trees, t)
	}
	if err := imp.Err(); err != nil {
		return nil, fmt.Errorf("error reading tree %d: %w", len(trees), err)
	}
	if len(trees) == 0 {
		return nil, fmt.Errorf("%w, no trees found", ErrInvalidFile)
	}
	return trees, nil
}

// Reads a file that must hold exactly one tree
func ReadTreeFile(path string, format treeio.Format) (*tree.Tree, error) {
	imp, closer, err := OpenTrees(path, format)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := closer.Close(); err != nil {
			log.Warn("could not close file", "path", path, "err", err)
		}
	}()
	trees, err := ReadAllTrees(imp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(trees) != 1 {
		return nil, fmt.Errorf("%w, there should only be exactly one tree in %s (found %d)",
			ErrInvalidFile, path, len(trees))
	}
	return trees[0], nil
}

// Reads a taxon list, one taxon per line. Blank lines are ignored.
func ReadTaxaFile(path string) (map[string]bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening %s, %w", path, err)
	}
	defer file.Close()
	taxa := make(map[string]bool)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			taxa[line] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading %s, %w", path, err)
	}
	if len(taxa) == 0 {
		return nil, fmt.Errorf("%w, no taxa listed in %s", ErrInvalidFile, path)
	}
	return taxa, nil
}

// Writes a tab separated table with a header row
func WriteTable(w io.Writer, header []string, rows [][]string) (err error) {
	writer := csv.NewWriter(w)
	writer.Comma = '\t'
	defer func() {
		writer.Flush()
		if err == nil {
			if ferr := writer.Error(); ferr != nil {
				err = fmt.Errorf("%w, %s", ErrWritingFile, ferr)
			}
		} else if writer.Error() != nil {
			log.Error("error when flushing output table", "err", writer.Error())
		}
	}()
	if err = writer.Write(header); err != nil {
		return fmt.Errorf("%w, %s", ErrWritingFile, err)
	}
	if err = writer.WriteAll(rows); err != nil {
		return fmt.Errorf("%w, %s", ErrWritingFile, err)
	}
	return nil
}

// Draws a lineage-through-time step plot and saves it to path; the image
// format follows the file extension
func WriteLTTPlot(points []gr.LTTPoint, path string) error {
	if len(points) == 0 {
		return fmt.Errorf("%w, no lineages to plot", ErrWritingFile)
	}
	p := plot.New()
	p.X.Label.Text = "Time Before Most Recent Tip"
	p.Y.Label.Text = "Lineages"
	maxLineages := slices.MaxFunc(points, func(a, b gr.LTTPoint) int { return a.Lineages - b.Lineages }).Lineages
	p.Y.Min = 0
	p.Y.Max = float64(maxLineages) + 1
	p.Y.Tick.Marker = plot.TickerFunc(func(_, max float64) []plot.Tick {
		step := 1
		if int(max) > maxTicks {
			step = int(math.Ceil(max / maxTicks))
		}
		ticks := make([]plot.Tick, 0, int(max)/step+2)
		for i := range int(max) + 1 {
			if i%step == 0 {
				ticks = append(ticks, plot.Tick{Value: float64(i), Label: fmt.Sprintf("%d", i)})
			} else {
				ticks = append(ticks, plot.Tick{Value: float64(i)})
			}
		}
		return ticks
	})
	pts := make(plotter.XYs, len(points))
	for i, pt := range slices.Backward(points) {
		pts[len(points)-1-i].X = pt.Time
		pts[len(points)-1-i].Y = float64(pt.Lineages)
	}
	line, markers, err := plotter.NewLinePoints(pts)
	if err != nil {
		return err
	}
	line.Color = plotLineColor
	line.StepStyle = plotter.PreStep
	markers.Color = plotLineColor
	markers.Shape = plotMarkerShap
	markers.Radius = vg.Points(2)
	p.Add(line, markers)
	if err := p.Save(plotW, plotH, path); err != nil {
		return fmt.Errorf("%w, %s", ErrWritingFile, err)
	}
	return nil
}
