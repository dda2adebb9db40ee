package queries_test

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"elliptigraph-backend/internal/config"
	"elliptigraph-backend/internal/queries"
	apperrors "elliptigraph-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeRunner answers queries from canned responses keyed by an AQL
// substring, and records the bind variables it saw.
type fakeRunner struct {
	responses map[string][]map[string]interface{}
	bindVars  []map[string]interface{}
	err       error
}

func (f *fakeRunner) Query(ctx context.Context, query string, bindVars map[string]interface{}) ([]map[string]interface{}, error) {
	f.bindVars = append(f.bindVars, bindVars)
	if f.err != nil {
		return nil, f.err
	}
	for substr, resp := range f.responses {
		if strings.Contains(query, substr) {
			return resp, nil
		}
	}
	return []map[string]interface{}{}, nil
}

func testConfig() config.Query {
	return config.Query{DefaultTimeStep: 10, DefaultMinDegree: 5, ResultLimit: 100}
}

func newCatalog(runner queries.Runner) *queries.Catalog {
	return queries.NewCatalog(runner, testConfig(), nil, zap.NewNop())
}

func TestNames(t *testing.T) {
	c := newCatalog(&fakeRunner{})

	assert.Equal(t, []string{
		"after-time-step",
		"avg-time-step-by-class",
		"count-by-class",
		"outgoing-edges",
		"total-edges",
	}, c.Names(queries.TierSimple))

	assert.Equal(t, []string{
		"high-degree-nodes",
		"illicit-clusters",
		"shortest-paths",
		"temporal-patterns",
		"two-hop-neighbors",
	}, c.Names(queries.TierComplex))
}

func TestExecuteUnknownQuery(t *testing.T) {
	c := newCatalog(&fakeRunner{})

	_, err := c.Execute(context.Background(), "no-such-query", queries.Params{})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestExecuteCountByClass(t *testing.T) {
	runner := &fakeRunner{responses: map[string][]map[string]interface{}{
		"COLLECT class = tx.class": {
			{"class": 1, "count": 10, "class_name": "Licit"},
			{"class": 2, "count": 4, "class_name": "Illicit"},
		},
	}}
	c := newCatalog(runner)

	exec, err := c.Execute(context.Background(), queries.NameCountByClass, queries.Params{})
	require.NoError(t, err)

	assert.Equal(t, queries.TierSimple, exec.Tier)
	assert.Len(t, exec.Results, 2)
	assert.GreaterOrEqual(t, exec.Duration.Nanoseconds(), int64(0))
}

func intPtr(v int) *int { return &v }

func TestExecuteDefaultsApplied(t *testing.T) {
	runner := &fakeRunner{}
	c := newCatalog(runner)

	_, err := c.Execute(context.Background(), queries.NameAfterTimeStep, queries.Params{})
	require.NoError(t, err)
	require.Len(t, runner.bindVars, 1)
	assert.Equal(t, 10, runner.bindVars[0]["time_step"])

	_, err = c.Execute(context.Background(), queries.NameAfterTimeStep, queries.Params{TimeStep: intPtr(25)})
	require.NoError(t, err)
	assert.Equal(t, 25, runner.bindVars[1]["time_step"])

	// An explicit 0 is honored, not coerced to the default.
	_, err = c.Execute(context.Background(), queries.NameAfterTimeStep, queries.Params{TimeStep: intPtr(0)})
	require.NoError(t, err)
	assert.Equal(t, 0, runner.bindVars[2]["time_step"])
}

func TestSetDefaults(t *testing.T) {
	runner := &fakeRunner{}
	c := newCatalog(runner)

	c.SetDefaults(config.Query{DefaultTimeStep: 30, DefaultMinDegree: 2, ResultLimit: 10})

	_, err := c.Execute(context.Background(), queries.NameAfterTimeStep, queries.Params{})
	require.NoError(t, err)
	require.Len(t, runner.bindVars, 1)
	assert.Equal(t, 30, runner.bindVars[0]["time_step"])
}

func TestExecuteSamplesTxID(t *testing.T) {
	runner := &fakeRunner{responses: map[string][]map[string]interface{}{
		"RETURN {key: tx._key}": {{"key": "tx42"}},
		"first_hop":             {{"source_tx": "transactions/tx42", "first_hop_count": 3}},
	}}
	c := newCatalog(runner)

	exec, err := c.Execute(context.Background(), queries.NameTwoHopNeighbors, queries.Params{})
	require.NoError(t, err)

	assert.Equal(t, "tx42", exec.Params["txId"])
	// Second call carries the sampled id as a bind variable.
	require.Len(t, runner.bindVars, 2)
	assert.Equal(t, "transactions/tx42", runner.bindVars[1]["start_tx"])
}

func TestExecuteSampleEmptyStore(t *testing.T) {
	c := newCatalog(&fakeRunner{})

	_, err := c.Execute(context.Background(), queries.NameOutgoingEdges, queries.Params{})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestExecuteShortestPathsPair(t *testing.T) {
	runner := &fakeRunner{responses: map[string][]map[string]interface{}{
		"RETURN {key: tx._key}": {{"key": "a"}, {"key": "b"}},
		"K_SHORTEST_PATHS":      {{"path_length": 2}},
	}}
	c := newCatalog(runner)

	exec, err := c.Execute(context.Background(), queries.NameShortestPaths, queries.Params{})
	require.NoError(t, err)
	assert.Equal(t, "a", exec.Params["fromTxId"])
	assert.Equal(t, "b", exec.Params["toTxId"])
}

func TestExecuteStoreError(t *testing.T) {
	c := newCatalog(&fakeRunner{err: errors.New("store down")})

	_, err := c.Execute(context.Background(), queries.NameTotalEdges, queries.Params{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "total-edges")
}

func TestRunAllSkipsFailures(t *testing.T) {
	// Only aggregate queries succeed; the ones needing a sampled id fail
	// because the sample query returns nothing.
	runner := &fakeRunner{responses: map[string][]map[string]interface{}{
		"COLLECT class = tx.class": {{"class": 1, "count": 1}},
		"total_edges":              {{"total_edges": 7}},
	}}
	c := newCatalog(runner)

	executions := c.RunAll(context.Background())

	names := make([]string, 0, len(executions))
	for _, exec := range executions {
		names = append(names, exec.Name)
	}
	assert.Contains(t, names, queries.NameCountByClass)
	assert.Contains(t, names, queries.NameTotalEdges)
	assert.NotContains(t, names, queries.NameTwoHopNeighbors)
	assert.NotContains(t, names, queries.NameShortestPaths)
}

func TestExportCSV(t *testing.T) {
	executions := []*queries.Execution{
		{
			Name: queries.NameCountByClass, Tier: queries.TierSimple,
			Results: []map[string]interface{}{{"class": 1, "count": 3}},
		},
		{
			Name: queries.NameTwoHopNeighbors, Tier: queries.TierComplex,
			Results: []map[string]interface{}{{"first_hop_count": 2}},
		},
	}

	dir := t.TempDir()
	require.NoError(t, queries.ExportCSV(dir, executions))

	f, err := os.Open(filepath.Join(dir, queries.SimpleResultsFile))
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, queries.NameCountByClass, records[1][0])
	assert.Equal(t, "1", records[1][1])
	assert.Contains(t, records[1][3], `"count":3`)
}
