// Package dataset loads the labeled transaction graph dataset from disk.
//
// The dataset consists of three CSV files:
//   - txs_features.csv: transaction id, time step, and numeric features
//   - txs_edgelist.csv: directed payment relations between transactions
//   - txs_classes.csv:  class label per transaction
//
// Loading merges classes onto features by transaction id; transactions
// without a class row are left unlabeled and resolved to Unknown during
// preprocessing.
package dataset

import (
	"sort"
)

// Class codes as they appear in the raw dataset.
const (
	ClassUnknown   = 0
	ClassLicit     = 1
	ClassIllicit   = 2
	ClassSuspected = 3
)

// ClassLabel returns the human-readable label for a class code.
// Unrecognized codes map to Unknown.
func ClassLabel(class int) string {
	switch class {
	case ClassLicit:
		return "Licit"
	case ClassIllicit:
		return "Illicit"
	case ClassSuspected:
		return "Suspected"
	default:
		return "Unknown"
	}
}

// Row is one transaction with its raw feature vector. Missing feature
// values are represented as NaN until preprocessing imputes them.
type Row struct {
	TxID     string
	TimeStep int

	// Class is the raw class code; only meaningful when HasClass is true.
	Class    int
	HasClass bool

	Features []float64
}

// Edge is a directed payment relation between two transactions.
type Edge struct {
	From string
	To   string
}

// Dataset is the merged, in-memory representation of the three CSV files.
type Dataset struct {
	// FeatureColumns names the numeric feature columns, in file order.
	FeatureColumns []string

	Rows  []Row
	Edges []Edge

	// ClassRows counts the rows of the classes file, for load reporting.
	ClassRows int
}

// TimeSteps returns the distinct time steps present, sorted ascending.
func (d *Dataset) TimeSteps() []int {
	seen := make(map[int]bool)
	steps := make([]int, 0)
	for _, row := range d.Rows {
		if !seen[row.TimeStep] {
			seen[row.TimeStep] = true
			steps = append(steps, row.TimeStep)
		}
	}
	sort.Ints(steps)
	return steps
}
