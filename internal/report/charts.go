package report

import (
	"html/template"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const (
	chartWidth  = "640px"
	chartHeight = "420px"
)

// chartBlock holds the rendered markup and init script for one chart so the
// page template can place them inside its own layout.
type chartBlock struct {
	Element template.HTML
	Script  template.HTML
}

func pieChart(id, title string, counts []labelCount) chartBlock {
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			ChartID: id,
			Width:   chartWidth,
			Height:  chartHeight,
		}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	data := make([]opts.PieData, 0, len(counts))
	for _, c := range counts {
		data = append(data, opts.PieData{Name: c.Label, Value: c.Count})
	}
	pie.AddSeries("Issues", data).SetSeriesOptions(
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Formatter: "{b}: {c}"}),
	)

	s := pie.Renderer.RenderSnippet()
	return chartBlock{Element: template.HTML(s.Element), Script: template.HTML(s.Script)}
}

func barChart(id, title string, counts []labelCount) chartBlock {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			ChartID: id,
			Width:   chartWidth,
			Height:  chartHeight,
		}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	labels := make([]string, 0, len(counts))
	data := make([]opts.BarData, 0, len(counts))
	for _, c := range counts {
		labels = append(labels, c.Label)
		data = append(data, opts.BarData{Value: c.Count})
	}
	bar.SetXAxis(labels).AddSeries("Issues", data)

	s := bar.Renderer.RenderSnippet()
	return chartBlock{Element: template.HTML(s.Element), Script: template.HTML(s.Script)}
}

func storyCharts(stats Stats) []chartBlock {
	if stats.Total == 0 {
		return nil
	}
	return []chartBlock{
		pieChart("story-status-chart", "Stories by Status", sortedCounts(stats.ByStatus)),
		barChart("story-assignee-chart", "Stories by Assignee", sortedCounts(stats.ByAssignee)),
	}
}

func defectCharts(stats Stats) []chartBlock {
	if stats.Total == 0 {
		return nil
	}
	return []chartBlock{
		pieChart("defect-status-chart", "Defects by Status", sortedCounts(stats.ByStatus)),
		barChart("defect-assignee-chart", "Defects by Assignee", sortedCounts(stats.ByAssignee)),
		barChart("defect-priority-chart", "Defects by Priority", sortedCounts(stats.ByPriority)),
	}
}
