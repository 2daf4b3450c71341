package export

import (
	"fmt"
	"io"
	"sort"

	"github.com/olekukonko/tablewriter"

	"github.com/banshee-data/lap-pace/internal/pipeline"
)

func writeSummary(w *runWriter, res *pipeline.Result) error {
	return w.create("summary.txt", func(out io.Writer) error {
		PrintSummary(out, res)
		return nil
	})
}

// PrintSummary renders the headline figures and the per-rookie deficits as
// text tables.
func PrintSummary(out io.Writer, res *pipeline.Result) {
	s := res.Report.Summary
	fmt.Fprintf(out, "%s: %s rookies vs %s reference drivers (run %s)\n\n",
		res.Event, res.Rookie.Name, res.Reference.Name, res.RunID)

	head := tablewriter.NewWriter(out)
	head.SetHeader([]string{"Metric", "Value"})
	head.SetAutoFormatHeaders(false)
	head.SetAlignment(tablewriter.ALIGN_LEFT)
	head.Append([]string{"Rookies with data", fmt.Sprintf("%d / %d", s.RookiesWithData, s.RookiesTotal)})
	head.Append([]string{res.Rookie.Name + " track evolution", fmt.Sprintf("%.4f s/min", res.Rookie.Evolution.Rate)})
	head.Append([]string{res.Reference.Name + " track evolution", fmt.Sprintf("%.4f s/min", res.Reference.Evolution.Rate)})
	if s.HasPace {
		head.Append([]string{"Mean raw deficit", fmt.Sprintf("%+.3f s", s.AvgRawDeficit)})
		head.Append([]string{"Mean corrected deficit", fmt.Sprintf("%+.3f s", s.AvgCorrectedDeficit)})
		head.Append([]string{"Closest rookie", fmt.Sprintf("%s (%+.3f s)", s.ClosestRookie, s.ClosestRookieDeficit)})
	}
	if s.HasRookieTrend {
		head.Append([]string{"Mean rookie stint trend", fmt.Sprintf("%+.4f s/lap", s.AvgRookieTrend)})
		head.Append([]string{"Best tyre manager", s.BestTyreManager})
	}
	if s.HasReferenceTrend {
		head.Append([]string{"Mean reference stint trend", fmt.Sprintf("%+.4f s/lap", s.AvgReferenceTrend)})
	}
	head.Render()

	if len(res.Report.Aggregate) > 0 {
		fmt.Fprintln(out)
		agg := tablewriter.NewWriter(out)
		agg.SetHeader([]string{"Rookie", "Reference", "Team", "Compounds", "Raw", "Corrected", "%"})
		agg.SetAutoFormatHeaders(false)
		for _, r := range res.Report.Aggregate {
			agg.Append([]string{
				r.RookieName, r.ReferenceName, r.Team, fmt.Sprint(r.Compounds),
				fmt.Sprintf("%+.3f", r.AvgRawDeficit),
				fmt.Sprintf("%+.3f", r.AvgCorrectedDeficit),
				fmt.Sprintf("%.2f", r.DeficitPercent),
			})
		}
		agg.Render()
	}

	if counts := res.Diagnostics.Counters; len(counts) > 0 {
		fmt.Fprintln(out)
		diag := tablewriter.NewWriter(out)
		diag.SetHeader([]string{"Skipped / fallback", "Count"})
		diag.SetAutoFormatHeaders(false)
		for _, name := range sortedKeys(counts) {
			diag.Append([]string{name, fmt.Sprint(counts[name])})
		}
		diag.Render()
	}
}

func sortedKeys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
