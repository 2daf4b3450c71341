package export

import (
	"fmt"
	"image/color"
	"io"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/lap-pace/internal/evolution"
	"github.com/banshee-data/lap-pace/internal/laps"
	"github.com/banshee-data/lap-pace/internal/pipeline"
)

var (
	fuelColor      = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	evolutionColor = color.RGBA{R: 44, G: 160, B: 44, A: 255}
	tyreColor      = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	totalColor     = color.RGBA{A: 255}
)

func (e *Exporter) writePlots(w *runWriter, res *pipeline.Result) error {
	for _, s := range []pipeline.SessionResult{res.Rookie, res.Reference} {
		if len(s.Evolution.Windows) == 0 {
			continue
		}
		p, err := EvolutionPlot(s.Name, s.Evolution)
		if err != nil {
			return err
		}
		if err := w.create(sessionFile("track_evolution", s.Name)+".png", pngWriter(p)); err != nil {
			return err
		}
	}

	for _, rookie := range e.roster.Rookies() {
		dl := laps.ForDriver(res.Rookie.Corrected, rookie)
		if len(dl) == 0 {
			continue
		}
		p, err := CorrectionsPlot(e.roster.Name(rookie), res.Rookie.Name, dl)
		if err != nil {
			return err
		}
		if err := w.create("corrections_"+strings.ToLower(rookie)+".png", pngWriter(p)); err != nil {
			return err
		}
	}
	return nil
}

func pngWriter(p *plot.Plot) func(io.Writer) error {
	return func(out io.Writer) error {
		wt, err := p.WriterTo(10*vg.Inch, 5*vg.Inch, "png")
		if err != nil {
			return err
		}
		_, err = wt.WriteTo(out)
		return err
	}
}

// EvolutionPlot draws the best lap of each window and the fitted trend.
func EvolutionPlot(session string, m evolution.Model) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s track evolution (%.4f s/min, R² %.2f)", session, m.Rate, m.RSquared)
	p.X.Label.Text = "Session time (min)"
	p.Y.Label.Text = "Best lap (s)"

	best := make(plotter.XYs, len(m.Windows))
	fitted := make(plotter.XYs, len(m.Windows))
	for i, win := range m.Windows {
		best[i] = plotter.XY{X: win.Mid, Y: win.Best}
		fitted[i] = plotter.XY{X: win.Mid, Y: win.Fitted}
	}

	sc, err := plotter.NewScatter(best)
	if err != nil {
		return nil, fmt.Errorf("evolution %s: %w", session, err)
	}
	sc.GlyphStyle.Color = fuelColor
	sc.GlyphStyle.Radius = vg.Points(3)

	line, err := plotter.NewLine(fitted)
	if err != nil {
		return nil, fmt.Errorf("evolution %s: %w", session, err)
	}
	line.Color = tyreColor
	line.Width = vg.Points(1.5)

	p.Add(sc, line, plotter.NewGrid())
	p.Legend.Add("window best", sc)
	p.Legend.Add("fit", line)
	p.Legend.Top = true
	return p, nil
}

// CorrectionsPlot draws each correction and their sum against lap number
// for one driver.
func CorrectionsPlot(driverName, session string, dl []laps.Lap) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s %s corrections", driverName, session)
	p.X.Label.Text = "Lap"
	p.Y.Label.Text = "Correction (s)"

	series := []struct {
		name  string
		color color.Color
		value func(laps.Lap) float64
	}{
		{"fuel", fuelColor, func(l laps.Lap) float64 { return l.FuelCorrection }},
		{"track evolution", evolutionColor, func(l laps.Lap) float64 { return l.EvolutionCorrection }},
		{"tyre age", tyreColor, func(l laps.Lap) float64 { return l.TyreCorrection }},
		{"total", totalColor, laps.Lap.TotalCorrection},
	}
	p.Add(plotter.NewGrid())
	for _, s := range series {
		pts := make(plotter.XYs, len(dl))
		for i, l := range dl {
			pts[i] = plotter.XY{X: float64(l.Number), Y: s.value(l)}
		}
		lp, sc, err := plotter.NewLinePoints(pts)
		if err != nil {
			return nil, fmt.Errorf("corrections %s: %w", driverName, err)
		}
		lp.Color = s.color
		sc.GlyphStyle.Color = s.color
		p.Add(lp, sc)
		p.Legend.Add(s.name, lp, sc)
	}
	p.Legend.Top = true
	p.Legend.Left = true
	return p, nil
}
