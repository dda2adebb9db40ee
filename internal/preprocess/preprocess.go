// Package preprocess cleans and standardizes the raw dataset before
// ingestion: missing classes resolve to Unknown, missing and non-finite
// feature values are mean-imputed, and every feature column is scaled to
// zero mean and unit variance.
package preprocess

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"elliptigraph-backend/internal/dataset"
)

// Row is a cleaned, standardized transaction ready for ingestion.
type Row struct {
	TxID       string
	TimeStep   int
	Class      int
	ClassLabel string
	Features   []float64
}

// Result holds the preprocessed dataset together with the per-column
// statistics used to produce it.
type Result struct {
	FeatureColumns []string
	Rows           []Row

	// Means and Stds are the per-column statistics of the cleaned (imputed,
	// finite) data, recorded so the scaling is reproducible.
	Means []float64
	Stds  []float64

	// ImputedValues counts how many missing or non-finite cells were
	// replaced with the column mean.
	ImputedValues int
}

// Processor runs the preprocessing pipeline.
type Processor struct {
	logger *zap.Logger
}

// NewProcessor creates a preprocessor.
func NewProcessor(logger *zap.Logger) *Processor {
	return &Processor{logger: logger}
}

// Run preprocesses the dataset. The input dataset is not modified.
func (p *Processor) Run(ds *dataset.Dataset) *Result {
	cols := len(ds.FeatureColumns)
	res := &Result{
		FeatureColumns: ds.FeatureColumns,
		Rows:           make([]Row, len(ds.Rows)),
		Means:          make([]float64, cols),
		Stds:           make([]float64, cols),
	}

	// Column means over finite values only. ±Inf counts as missing, the
	// same as an empty cell.
	for j := 0; j < cols; j++ {
		finite := make([]float64, 0, len(ds.Rows))
		for i := range ds.Rows {
			if v := ds.Rows[i].Features[j]; isFinite(v) {
				finite = append(finite, v)
			}
		}
		if len(finite) > 0 {
			res.Means[j] = stat.Mean(finite, nil)
		}
	}

	// Impute, then compute population standard deviations on the cleaned
	// columns (matching StandardScaler).
	cleaned := make([][]float64, len(ds.Rows))
	for i := range ds.Rows {
		cleaned[i] = make([]float64, cols)
		for j := 0; j < cols; j++ {
			v := ds.Rows[i].Features[j]
			if !isFinite(v) {
				v = res.Means[j]
				res.ImputedValues++
			}
			cleaned[i][j] = v
		}
	}

	col := make([]float64, len(ds.Rows))
	for j := 0; j < cols; j++ {
		for i := range cleaned {
			col[i] = cleaned[i][j]
		}
		if len(col) > 0 {
			res.Stds[j] = stat.PopStdDev(col, nil)
		}
	}

	for i, raw := range ds.Rows {
		class := dataset.ClassUnknown
		if raw.HasClass {
			class = raw.Class
		}

		features := make([]float64, cols)
		for j := 0; j < cols; j++ {
			if res.Stds[j] != 0 {
				features[j] = (cleaned[i][j] - res.Means[j]) / res.Stds[j]
			}
		}

		res.Rows[i] = Row{
			TxID:       raw.TxID,
			TimeStep:   raw.TimeStep,
			Class:      class,
			ClassLabel: dataset.ClassLabel(class),
			Features:   features,
		}
	}

	p.logger.Info("Preprocessing complete",
		zap.Int("transactions", len(res.Rows)),
		zap.Int("features", cols),
		zap.Int("imputed_values", res.ImputedValues),
	)
	return res
}

// ClassDistribution counts rows per class code.
func (r *Result) ClassDistribution() map[int]int {
	dist := make(map[int]int)
	for i := range r.Rows {
		dist[r.Rows[i].Class]++
	}
	return dist
}

// TimeStepRange returns the minimum and maximum time step present.
func (r *Result) TimeStepRange() (min, max int) {
	if len(r.Rows) == 0 {
		return 0, 0
	}
	min, max = r.Rows[0].TimeStep, r.Rows[0].TimeStep
	for i := range r.Rows {
		ts := r.Rows[i].TimeStep
		if ts < min {
			min = ts
		}
		if ts > max {
			max = ts
		}
	}
	return min, max
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
