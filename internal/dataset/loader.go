package dataset

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	apperrors "elliptigraph-backend/pkg/errors"
)

// File names expected inside the dataset directory.
const (
	FeaturesFile = "txs_features.csv"
	EdgesFile    = "txs_edgelist.csv"
	ClassesFile  = "txs_classes.csv"
)

// Loader reads and merges the dataset CSV files.
type Loader struct {
	dir    string
	logger *zap.Logger
}

// NewLoader creates a dataset loader for the given directory.
func NewLoader(dir string, logger *zap.Logger) *Loader {
	return &Loader{dir: dir, logger: logger}
}

// Load reads the three dataset files and merges classes onto features.
// A single error names every missing file so the operator can fix the
// dataset directory in one pass.
func (l *Loader) Load() (*Dataset, error) {
	var missing []string
	for _, name := range []string{ClassesFile, EdgesFile, FeaturesFile} {
		if _, err := os.Stat(filepath.Join(l.dir, name)); err != nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.NewNotFound(fmt.Sprintf(
			"missing dataset files: %s (expected in %s)",
			strings.Join(missing, ", "), l.dir,
		))
	}

	classes, classRows, err := l.loadClasses()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load classes")
	}

	edges, err := l.loadEdges()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load edges")
	}

	columns, rows, err := l.loadFeatures(classes)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load features")
	}

	l.logger.Info("Dataset loaded",
		zap.Int("transactions", len(rows)),
		zap.Int("edges", len(edges)),
		zap.Int("class_rows", classRows),
		zap.Int("features", len(columns)),
	)

	return &Dataset{
		FeatureColumns: columns,
		Rows:           rows,
		Edges:          edges,
		ClassRows:      classRows,
	}, nil
}

// loadFeatures parses txs_features.csv and joins class codes by txId.
func (l *Loader) loadFeatures(classes map[string]int) ([]string, []Row, error) {
	records, err := l.readCSV(FeaturesFile)
	if err != nil {
		return nil, nil, err
	}
	if len(records) < 1 {
		return nil, nil, fmt.Errorf("%s is empty", FeaturesFile)
	}

	header := records[0]
	if len(header) < 2 {
		return nil, nil, fmt.Errorf("%s has a malformed header", FeaturesFile)
	}

	// Columns after txId and Time step are features.
	columns := make([]string, len(header)-2)
	copy(columns, header[2:])

	rows := make([]Row, 0, len(records)-1)
	for i, record := range records[1:] {
		if len(record) != len(header) {
			return nil, nil, fmt.Errorf("%s row %d has %d fields, want %d",
				FeaturesFile, i+2, len(record), len(header))
		}

		timeStep, err := strconv.Atoi(strings.TrimSpace(record[1]))
		if err != nil {
			return nil, nil, fmt.Errorf("%s row %d has invalid time step %q",
				FeaturesFile, i+2, record[1])
		}

		features := make([]float64, len(columns))
		for j, raw := range record[2:] {
			features[j] = parseFeature(raw)
		}

		row := Row{
			TxID:     strings.TrimSpace(record[0]),
			TimeStep: timeStep,
			Features: features,
		}
		if class, ok := classes[row.TxID]; ok {
			row.Class = class
			row.HasClass = true
		}
		rows = append(rows, row)
	}
	return columns, rows, nil
}

// loadEdges parses txs_edgelist.csv.
func (l *Loader) loadEdges() ([]Edge, error) {
	records, err := l.readCSV(EdgesFile)
	if err != nil {
		return nil, err
	}

	edges := make([]Edge, 0, len(records))
	for i, record := range records {
		if i == 0 {
			continue // header
		}
		if len(record) < 2 {
			return nil, fmt.Errorf("%s row %d has %d fields, want 2", EdgesFile, i+1, len(record))
		}
		edges = append(edges, Edge{
			From: strings.TrimSpace(record[0]),
			To:   strings.TrimSpace(record[1]),
		})
	}
	return edges, nil
}

// loadClasses parses txs_classes.csv into a txId -> class code map.
// Values that do not parse as integers (the raw dataset uses "unknown")
// are treated as missing.
func (l *Loader) loadClasses() (map[string]int, int, error) {
	records, err := l.readCSV(ClassesFile)
	if err != nil {
		return nil, 0, err
	}

	classes := make(map[string]int)
	count := 0
	for i, record := range records {
		if i == 0 {
			continue // header
		}
		if len(record) < 2 {
			return nil, 0, fmt.Errorf("%s row %d has %d fields, want 2", ClassesFile, i+1, len(record))
		}
		count++
		class, err := strconv.Atoi(strings.TrimSpace(record[1]))
		if err != nil {
			continue
		}
		classes[strings.TrimSpace(record[0])] = class
	}
	return classes, count, nil
}

func (l *Loader) readCSV(name string) ([][]string, error) {
	path := filepath.Join(l.dir, name)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return records, nil
}

// parseFeature converts a raw CSV cell into a float. Empty cells and
// unparseable values come back as NaN so preprocessing can impute them.
func parseFeature(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
