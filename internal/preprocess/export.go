package preprocess

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// ProcessedFileName is the CSV written to the output directory, consumed
// by the dashboard explorer.
const ProcessedFileName = "processed_features.csv"

// WriteCSV saves the processed rows to outputDir/processed_features.csv,
// creating the directory when necessary.
func (r *Result) WriteCSV(outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(outputDir, ProcessedFileName)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := make([]string, 0, len(r.FeatureColumns)+4)
	header = append(header, "txId", "Time step", "class")
	header = append(header, r.FeatureColumns...)
	header = append(header, "class_label")
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("failed to write header: %w", err)
	}

	record := make([]string, len(header))
	for i := range r.Rows {
		row := &r.Rows[i]
		record[0] = row.TxID
		record[1] = strconv.Itoa(row.TimeStep)
		record[2] = strconv.Itoa(row.Class)
		for j, v := range row.Features {
			record[3+j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		record[len(record)-1] = row.ClassLabel
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return path, nil
}
