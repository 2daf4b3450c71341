package export

import (
	"fmt"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/lap-pace/internal/analytics"
	"github.com/banshee-data/lap-pace/internal/pipeline"
)

// teamColors are the bar colours of the corrected deficit series.
var teamColors = map[string]string{
	"Red Bull":     "#3671C6",
	"McLaren":      "#FF8000",
	"Ferrari":      "#E8002D",
	"Mercedes":     "#27F4D2",
	"Aston Martin": "#229971",
	"Alpine":       "#0093CC",
	"Williams":     "#64C4FF",
	"RB":           "#6692FF",
	"Sauber":       "#52E252",
	"Haas":         "#B6BABD",
}

func writeCharts(w *runWriter, res *pipeline.Result) error {
	r := res.Report
	if len(r.Aggregate) > 0 {
		page := components.NewPage()
		page.PageTitle = res.Event + " rookie pace"
		page.AddCharts(AggregateChart(res.Event, res.Rookie.Name, r.Aggregate))
		if err := w.create("aggregate_deficit.html", page.Render); err != nil {
			return err
		}
	}
	if len(r.TyreScores) > 0 {
		page := components.NewPage()
		page.PageTitle = res.Event + " tyre management"
		for _, bar := range TyreScoreCharts(r.TyreScores) {
			page.AddCharts(bar)
		}
		if err := w.create("tyre_scores.html", page.Render); err != nil {
			return err
		}
	}
	return nil
}

// AggregateChart plots each rookie's mean raw and corrected deficit to
// their reference driver.
func AggregateChart(event, session string, rows []analytics.AggregateDeficit) *charts.Bar {
	x := make([]string, len(rows))
	raw := make([]opts.BarData, len(rows))
	corrected := make([]opts.BarData, len(rows))
	for i, r := range rows {
		x[i] = fmt.Sprintf("%s (vs %s)", r.RookieName, r.Reference)
		raw[i] = opts.BarData{Value: round3(r.AvgRawDeficit)}
		corrected[i] = opts.BarData{Value: round3(r.AvgCorrectedDeficit)}
		if c, ok := teamColors[r.Team]; ok {
			corrected[i].ItemStyle = &opts.ItemStyle{Color: c}
		}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "640px"}),
		charts.WithTitleOpts(opts.Title{Title: "Pace deficit to reference driver", Subtitle: event + " " + session}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Deficit (s)"}),
	)
	bar.SetXAxis(x).
		AddSeries("raw", raw).
		AddSeries("corrected", corrected,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}

// TyreScoreCharts returns one bar chart of tyre management scores per
// compound, in the order compounds appear in rows.
func TyreScoreCharts(rows []analytics.TyreScore) []*charts.Bar {
	var order []string
	byCompound := make(map[string][]analytics.TyreScore)
	for _, r := range rows {
		if _, ok := byCompound[r.Compound]; !ok {
			order = append(order, r.Compound)
		}
		byCompound[r.Compound] = append(byCompound[r.Compound], r)
	}

	out := make([]*charts.Bar, 0, len(order))
	for _, c := range order {
		group := byCompound[c]
		x := make([]string, len(group))
		y := make([]opts.BarData, len(group))
		for i, r := range group {
			x[i] = fmt.Sprintf("%s %s S%d", r.Driver, r.Session, r.Stint)
			y[i] = opts.BarData{Value: round3(r.Score)}
		}
		bar := charts.NewBar()
		bar.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
			charts.WithTitleOpts(opts.Title{Title: c + " tyre management", Subtitle: "100 = flattest fuel-corrected trend"}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
			charts.WithYAxisOpts(opts.YAxis{Name: "Score", Min: 0, Max: 100}),
		)
		bar.SetXAxis(x).AddSeries("score", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
		out = append(out, bar)
	}
	return out
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
