package queries

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Result file names written to the output directory.
const (
	SimpleResultsFile  = "query_results_simple.csv"
	ComplexResultsFile = "query_results_complex.csv"
)

// ExportCSV writes per-tier summary CSVs of the executions to outputDir.
// Each row carries the query name, result count, duration, and a JSON
// sample of the first results.
func ExportCSV(outputDir string, executions []*Execution) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	files := map[Tier]string{
		TierSimple:  SimpleResultsFile,
		TierComplex: ComplexResultsFile,
	}

	for tier, name := range files {
		if err := writeTier(filepath.Join(outputDir, name), tier, executions); err != nil {
			return err
		}
	}
	return nil
}

func writeTier(path string, tier Tier, executions []*Execution) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"Query", "Results_Count", "Duration_MS", "Sample_JSON"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, exec := range executions {
		if exec.Tier != tier {
			continue
		}
		record := []string{
			exec.Name,
			strconv.Itoa(len(exec.Results)),
			strconv.FormatInt(exec.Duration.Milliseconds(), 10),
			sampleJSON(exec.Results, 3),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", exec.Name, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return nil
}

// sampleJSON renders at most n results as compact JSON for the CSV cell.
func sampleJSON(results []map[string]interface{}, n int) string {
	if len(results) == 0 {
		return "[]"
	}
	if len(results) > n {
		results = results[:n]
	}
	data, err := json.Marshal(results)
	if err != nil {
		return "[]"
	}
	return string(data)
}
