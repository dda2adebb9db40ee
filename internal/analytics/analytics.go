// Package analytics derives exploratory statistics from the preprocessed
// dataset: class distribution, per-time-step activity, degree
// distributions, and feature correlations. Results feed both the offline
// report artifacts and the dashboard API.
package analytics

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"elliptigraph-backend/internal/dataset"
	"elliptigraph-backend/internal/preprocess"
)

// SummaryFileName is the text report written to the output directory.
const SummaryFileName = "summary_statistics.txt"

// maxCorrelationFeatures caps the correlation matrix at the first N
// feature columns, as the full matrix is quadratic in width.
const maxCorrelationFeatures = 20

// maxDescribedFeatures caps the per-feature summary statistics at the
// first N feature columns.
const maxDescribedFeatures = 5

// ClassShare is one class's share of the dataset.
type ClassShare struct {
	Class   int
	Label   string
	Count   int
	Percent float64
}

// StepActivity is the transaction volume of one time step.
type StepActivity struct {
	TimeStep int
	Total    int
	ByClass  map[int]int
}

// FeatureStat is a describe-style summary of one feature column.
type FeatureStat struct {
	Name   string
	Count  int
	Mean   float64
	Std    float64
	Min    float64
	Q25    float64
	Median float64
	Q75    float64
	Max    float64
}

// Report is the computed summary of the preprocessed dataset.
type Report struct {
	Transactions int
	Edges        int
	Features     int
	TimeStepMin  int
	TimeStepMax  int
	Classes      []ClassShare
	Steps        []StepActivity
	FeatureStats []FeatureStat

	// InDegree and OutDegree count, per degree value, how many
	// transactions have that degree.
	InDegree  map[int]int
	OutDegree map[int]int
}

// Analyzer computes dataset analytics.
type Analyzer struct {
	logger *zap.Logger
}

// NewAnalyzer creates an analyzer.
func NewAnalyzer(logger *zap.Logger) *Analyzer {
	return &Analyzer{logger: logger}
}

// Summarize builds the full report from the processed rows and raw edges.
func (a *Analyzer) Summarize(res *preprocess.Result, edges []dataset.Edge) *Report {
	report := &Report{
		Transactions: len(res.Rows),
		Edges:        len(edges),
		Features:     len(res.FeatureColumns),
		Classes:      classShares(res),
		Steps:        StepSeries(res),
		FeatureStats: featureStats(res),
	}
	report.TimeStepMin, report.TimeStepMax = res.TimeStepRange()
	report.InDegree, report.OutDegree = degreeHistograms(edges)

	a.logger.Info("Analytics summary computed",
		zap.Int("transactions", report.Transactions),
		zap.Int("edges", report.Edges),
		zap.Int("time_steps", len(report.Steps)),
	)
	return report
}

// WriteSummary renders the report as a plain-text artifact.
func (a *Analyzer) WriteSummary(report *Report, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	var b strings.Builder
	rule := strings.Repeat("=", 60)
	fmt.Fprintf(&b, "%s\nTRANSACTION DATASET - SUMMARY STATISTICS\n%s\n\n", rule, rule)
	fmt.Fprintf(&b, "Total Transactions: %d\n", report.Transactions)
	fmt.Fprintf(&b, "Total Edges: %d\n", report.Edges)
	fmt.Fprintf(&b, "Number of Features: %d\n", report.Features)
	fmt.Fprintf(&b, "Time Steps: %d to %d\n\n", report.TimeStepMin, report.TimeStepMax)

	b.WriteString("Class Distribution:\n")
	for _, share := range report.Classes {
		fmt.Fprintf(&b, "  %s: %d (%.2f%%)\n", share.Label, share.Count, share.Percent)
	}

	if len(report.FeatureStats) > 0 {
		fmt.Fprintf(&b, "\nFeature Statistics (first %d columns):\n", len(report.FeatureStats))
		for _, fs := range report.FeatureStats {
			fmt.Fprintf(&b, "  %s: count=%d mean=%.4f std=%.4f min=%.4f 25%%=%.4f 50%%=%.4f 75%%=%.4f max=%.4f\n",
				fs.Name, fs.Count, fs.Mean, fs.Std, fs.Min, fs.Q25, fs.Median, fs.Q75, fs.Max)
		}
	}

	path := filepath.Join(outputDir, SummaryFileName)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// Correlation computes the Pearson correlation matrix over the first
// maxCorrelationFeatures feature columns.
func Correlation(res *preprocess.Result) ([]string, [][]float64) {
	n := len(res.FeatureColumns)
	if n > maxCorrelationFeatures {
		n = maxCorrelationFeatures
	}
	features := res.FeatureColumns[:n]

	columns := make([][]float64, n)
	for j := 0; j < n; j++ {
		columns[j] = make([]float64, len(res.Rows))
		for i := range res.Rows {
			columns[j][i] = res.Rows[i].Features[j]
		}
	}

	matrix := make([][]float64, n)
	for i := 0; i < n; i++ {
		matrix[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			if i == j {
				matrix[i][j] = 1
				continue
			}
			matrix[i][j] = correlationOrZero(columns[i], columns[j])
		}
	}
	return features, matrix
}

// correlationOrZero treats constant columns as uncorrelated rather than
// propagating NaN into JSON responses.
func correlationOrZero(x, y []float64) float64 {
	c := stat.Correlation(x, y, nil)
	if c != c { // NaN
		return 0
	}
	return c
}

// StepSeries aggregates transaction counts per time step, split by class.
func StepSeries(res *preprocess.Result) []StepActivity {
	byStep := make(map[int]*StepActivity)
	for i := range res.Rows {
		row := &res.Rows[i]
		activity, ok := byStep[row.TimeStep]
		if !ok {
			activity = &StepActivity{TimeStep: row.TimeStep, ByClass: make(map[int]int)}
			byStep[row.TimeStep] = activity
		}
		activity.Total++
		activity.ByClass[row.Class]++
	}

	steps := make([]StepActivity, 0, len(byStep))
	for _, activity := range byStep {
		steps = append(steps, *activity)
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].TimeStep < steps[j].TimeStep })
	return steps
}

// featureStats computes describe-style statistics for the first
// maxDescribedFeatures feature columns. Quantiles are linearly
// interpolated; the standard deviation is the sample one.
func featureStats(res *preprocess.Result) []FeatureStat {
	n := len(res.FeatureColumns)
	if n > maxDescribedFeatures {
		n = maxDescribedFeatures
	}

	stats := make([]FeatureStat, 0, n)
	for j := 0; j < n; j++ {
		values := make([]float64, len(res.Rows))
		for i := range res.Rows {
			values[i] = res.Rows[i].Features[j]
		}
		if len(values) == 0 {
			continue
		}
		sort.Float64s(values)

		fs := FeatureStat{
			Name:   res.FeatureColumns[j],
			Count:  len(values),
			Mean:   stat.Mean(values, nil),
			Min:    values[0],
			Q25:    stat.Quantile(0.25, stat.LinInterp, values, nil),
			Median: stat.Quantile(0.5, stat.LinInterp, values, nil),
			Q75:    stat.Quantile(0.75, stat.LinInterp, values, nil),
			Max:    values[len(values)-1],
		}
		if len(values) > 1 {
			fs.Std = stat.StdDev(values, nil)
		}
		stats = append(stats, fs)
	}
	return stats
}

func classShares(res *preprocess.Result) []ClassShare {
	dist := res.ClassDistribution()
	classes := make([]int, 0, len(dist))
	for class := range dist {
		classes = append(classes, class)
	}
	sort.Ints(classes)

	shares := make([]ClassShare, 0, len(classes))
	total := len(res.Rows)
	for _, class := range classes {
		count := dist[class]
		percent := 0.0
		if total > 0 {
			percent = float64(count) / float64(total) * 100
		}
		shares = append(shares, ClassShare{
			Class:   class,
			Label:   dataset.ClassLabel(class),
			Count:   count,
			Percent: percent,
		})
	}
	return shares
}

// degreeHistograms counts, for each observed degree value, how many
// transactions have that in- and out-degree.
func degreeHistograms(edges []dataset.Edge) (in, out map[int]int) {
	inDegree := make(map[string]int)
	outDegree := make(map[string]int)
	for _, e := range edges {
		outDegree[e.From]++
		inDegree[e.To]++
	}

	in = make(map[int]int)
	for _, d := range inDegree {
		in[d]++
	}
	out = make(map[int]int)
	for _, d := range outDegree {
		out[d]++
	}
	return in, out
}
