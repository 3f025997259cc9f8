package engine

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// Report renders a session's results as a standalone HTML page.
type Report struct {
	Results []TrialResult
	Summary Summary
}

func (r Report) Render(w io.Writer) error {
	page := components.NewPage()
	page.PageTitle = "visearch " + r.Summary.SessionID
	page.AddCharts(
		r.reactionTimeChart(),
		r.attemptChart(),
		r.outcomeChart(),
	)
	return page.Render(w)
}

func (r Report) reactionTimeChart() *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Reaction Time per Trial",
			Subtitle: fmt.Sprintf("mean %.3fs over %d samples", r.Summary.MeanReactionTime, r.Summary.Samples),
		}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "trial"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "seconds", Scale: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)

	items := make([]opts.LineData, 0, len(r.Results))
	for _, res := range r.Results {
		items = append(items, opts.LineData{Value: []interface{}{res.Ordinal, res.ReactionTime}})
	}
	line.AddSeries("reaction time", items).SetSeriesOptions(charts.WithLineStyleOpts(opts.LineStyle{Width: 2}))
	return line
}

// attemptChart plots every click by trial, hits and misses as two series.
func (r Report) attemptChart() *charts.Scatter {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Clicks"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "trial"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "seconds"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	hits := make([]opts.ScatterData, 0)
	misses := make([]opts.ScatterData, 0)
	for _, res := range r.Results {
		for _, a := range res.Attempts {
			pt := opts.ScatterData{Value: []interface{}{res.Ordinal, a.ReactionTime}}
			if a.Hit {
				hits = append(hits, pt)
			} else {
				misses = append(misses, pt)
			}
		}
	}
	scatter.AddSeries("hit", hits).AddSeries("miss", misses)
	return scatter
}

func (r Report) outcomeChart() *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Outcomes",
			Subtitle: fmt.Sprintf("accuracy %.1f%%", r.Summary.Accuracy*100),
		}),
	)
	bar.SetXAxis([]string{
		OutcomeCorrect.String(),
		OutcomeIncorrect.String(),
		OutcomeTimeout.String(),
		"failed",
	}).AddSeries("trials", []opts.BarData{
		{Value: r.Summary.Correct},
		{Value: r.Summary.Incorrect},
		{Value: r.Summary.Timeouts},
		{Value: r.Summary.Failed},
	})
	return bar
}
