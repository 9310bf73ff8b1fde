// Package viz renders exploratory plots of a feature frame: one histogram
// per column and a heatmap of pairwise Pearson correlations.
package viz

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/viniciusrubens/featurepipe/pkg/dataset"
	"github.com/viniciusrubens/featurepipe/pkg/stats"
)

// Output file names inside the render directory.
const (
	DistributionsFile = "feature_distributions.png"
	CorrelationsFile  = "feature_correlations.png"
)

// Visualizer renders plots of f into dir and returns the files written.
type Visualizer interface {
	Render(f *dataset.Frame, dir string) ([]string, error)
}

// Plotter is the gonum/plot Visualizer.
type Plotter struct {
	Bins     int       // histogram bins per column
	GridCols int       // histograms per row
	Cell     vg.Length // side of one histogram tile
}

// New returns a Plotter with a 4-column grid of 20-bin histograms.
func New() *Plotter {
	return &Plotter{Bins: 20, GridCols: 4, Cell: 3 * vg.Inch}
}

// Render writes DistributionsFile and CorrelationsFile under dir.
func (p *Plotter) Render(f *dataset.Frame, dir string) ([]string, error) {
	if f.NumCols() == 0 || f.NumRows() == 0 {
		return nil, errors.New("viz: empty frame")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("viz: %w", err)
	}
	dist := filepath.Join(dir, DistributionsFile)
	if err := p.Distributions(f, dist); err != nil {
		return nil, err
	}
	corr := filepath.Join(dir, CorrelationsFile)
	if err := p.Correlations(f, corr); err != nil {
		return []string{dist}, err
	}
	return []string{dist, corr}, nil
}

// Distributions draws a grid of per-column histograms into a PNG at path.
func (p *Plotter) Distributions(f *dataset.Frame, path string) error {
	cols := f.Columns()
	gridCols := min(max(p.GridCols, 1), len(cols))
	rows := (len(cols) + gridCols - 1) / gridCols

	plots := make([][]*plot.Plot, rows)
	for r := range plots {
		plots[r] = make([]*plot.Plot, gridCols)
		for c := range plots[r] {
			blank := plot.New()
			blank.HideAxes()
			plots[r][c] = blank
		}
	}
	for i, c := range cols {
		pl := plot.New()
		pl.Title.Text = c.Name
		h, err := plotter.NewHist(plotter.Values(c.Values), max(p.Bins, 1))
		if err != nil {
			return fmt.Errorf("viz: histogram %s: %w", c.Name, err)
		}
		pl.Add(h)
		plots[i/gridCols][i%gridCols] = pl
	}

	img := vgimg.New(vg.Length(gridCols)*p.Cell, vg.Length(rows)*p.Cell)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: rows,
		Cols: gridCols,
		PadX: vg.Millimeter,
		PadY: vg.Millimeter,
	}
	canvases := plot.Align(plots, tiles, dc)
	for r := range plots {
		for c := range plots[r] {
			plots[r][c].Draw(canvases[r][c])
		}
	}

	w, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("viz: %w", err)
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(w); err != nil {
		w.Close()
		return fmt.Errorf("viz: write %s: %w", path, err)
	}
	return w.Close()
}

// Correlations draws the correlation matrix of every column as a heatmap
// into a PNG at path.
func (p *Plotter) Correlations(f *dataset.Frame, path string) error {
	cols := f.Columns()
	values := make([][]float64, len(cols))
	for i, c := range cols {
		values[i] = c.Values
	}
	grid := corrGrid(stats.CorrelationMatrix(values))

	pl := plot.New()
	pl.Title.Text = "Feature correlations"
	hm := plotter.NewHeatMap(grid, palette.Heat(16, 1))
	hm.Min, hm.Max = -1, 1
	pl.Add(hm)
	pl.NominalX(f.Names()...)
	pl.NominalY(f.Names()...)
	pl.X.Tick.Label.Rotation = 1.2

	side := vg.Length(max(len(cols), 4)) * 0.5 * vg.Inch
	if err := pl.Save(side, side, path); err != nil {
		return fmt.Errorf("viz: write %s: %w", path, err)
	}
	return nil
}

// corrGrid adapts a square matrix to plotter.GridXYZ with unit cells.
type corrGrid [][]float64

func (g corrGrid) Dims() (c, r int)   { return len(g), len(g) }
func (g corrGrid) Z(c, r int) float64 { return g[r][c] }
func (g corrGrid) X(c int) float64    { return float64(c) }
func (g corrGrid) Y(r int) float64    { return float64(r) }
