package analytics

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/wcharczuk/go-chart/v2"
	"go.uber.org/zap"
)

// Chart file names written to the charts directory.
const (
	ClassChartFile     = "class_distribution.png"
	InDegreeChartFile  = "in_degree_distribution.png"
	OutDegreeChartFile = "out_degree_distribution.png"
	StepChartFile      = "transactions_by_time_step.png"
)

// RenderCharts writes the report's chart PNGs to chartsDir. Chart failures
// are logged and skipped; a missing plot should not abort the pipeline.
func (a *Analyzer) RenderCharts(report *Report, chartsDir string) error {
	if err := os.MkdirAll(chartsDir, 0o755); err != nil {
		return fmt.Errorf("failed to create charts directory: %w", err)
	}

	renderers := []struct {
		file   string
		render func(string) error
	}{
		{ClassChartFile, func(path string) error { return renderClassChart(report, path) }},
		{InDegreeChartFile, func(path string) error {
			return renderDegreeChart(report.InDegree, "In-Degree Distribution", path)
		}},
		{OutDegreeChartFile, func(path string) error {
			return renderDegreeChart(report.OutDegree, "Out-Degree Distribution", path)
		}},
		{StepChartFile, func(path string) error { return renderStepChart(report, path) }},
	}

	for _, r := range renderers {
		path := filepath.Join(chartsDir, r.file)
		if err := r.render(path); err != nil {
			a.logger.Warn("Chart rendering failed",
				zap.String("chart", r.file),
				zap.Error(err),
			)
			continue
		}
		a.logger.Debug("Chart rendered", zap.String("path", path))
	}
	return nil
}

func renderClassChart(report *Report, path string) error {
	if len(report.Classes) == 0 {
		return fmt.Errorf("no class data to chart")
	}

	bars := make([]chart.Value, 0, len(report.Classes))
	for _, share := range report.Classes {
		bars = append(bars, chart.Value{
			Label: share.Label,
			Value: float64(share.Count),
		})
	}

	graph := chart.BarChart{
		Title:    "Transaction Class Distribution",
		Height:   512,
		BarWidth: 60,
		Bars:     bars,
	}
	return renderPNG(&graph, path)
}

func renderDegreeChart(histogram map[int]int, title, path string) error {
	if len(histogram) == 0 {
		return fmt.Errorf("no degree data to chart")
	}

	degrees := make([]int, 0, len(histogram))
	for d := range histogram {
		degrees = append(degrees, d)
	}
	sort.Ints(degrees)

	xs := make([]float64, len(degrees))
	ys := make([]float64, len(degrees))
	for i, d := range degrees {
		xs[i] = float64(d)
		ys[i] = float64(histogram[d])
	}

	graph := chart.Chart{
		Title:  title,
		Height: 512,
		XAxis:  chart.XAxis{Name: "Degree"},
		YAxis:  chart.YAxis{Name: "Transactions"},
		Series: []chart.Series{
			chart.ContinuousSeries{XValues: xs, YValues: ys},
		},
	}
	return renderLinePNG(&graph, path)
}

func renderStepChart(report *Report, path string) error {
	if len(report.Steps) == 0 {
		return fmt.Errorf("no time-step data to chart")
	}

	xs := make([]float64, len(report.Steps))
	ys := make([]float64, len(report.Steps))
	for i, step := range report.Steps {
		xs[i] = float64(step.TimeStep)
		ys[i] = float64(step.Total)
	}

	graph := chart.Chart{
		Title:  "Transactions by Time Step",
		Height: 512,
		XAxis:  chart.XAxis{Name: "Time Step"},
		YAxis:  chart.YAxis{Name: "Transactions"},
		Series: []chart.Series{
			chart.ContinuousSeries{XValues: xs, YValues: ys},
		},
	}
	return renderLinePNG(&graph, path)
}

func renderPNG(graph *chart.BarChart, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	return graph.Render(chart.PNG, f)
}

func renderLinePNG(graph *chart.Chart, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	return graph.Render(chart.PNG, f)
}
