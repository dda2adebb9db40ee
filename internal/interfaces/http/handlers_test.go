package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"elliptigraph-backend/internal/analytics"
	"elliptigraph-backend/internal/config"
	"elliptigraph-backend/internal/dataset"
	httpapi "elliptigraph-backend/internal/interfaces/http"
	"elliptigraph-backend/internal/preprocess"
	"elliptigraph-backend/internal/queries"
	"elliptigraph-backend/internal/storage"
)

// fakeStore answers AQL queries with canned rows and fixed counts.
type fakeStore struct {
	queryRows []map[string]interface{}
	queryErr  error
	counts    map[string]int64
}

func (f *fakeStore) Setup(ctx context.Context) error { return nil }

func (f *fakeStore) InsertTransactions(ctx context.Context, docs []storage.TransactionDoc) (int, error) {
	return len(docs), nil
}

func (f *fakeStore) InsertEdges(ctx context.Context, docs []storage.EdgeDoc) (int, error) {
	return len(docs), nil
}

func (f *fakeStore) Query(ctx context.Context, query string, bindVars map[string]interface{}) ([]map[string]interface{}, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.queryRows, nil
}

func (f *fakeStore) Count(ctx context.Context, collection string) (int64, error) {
	return f.counts[collection], nil
}

func testData() *httpapi.Data {
	result := &preprocess.Result{
		FeatureColumns: []string{"feat_0", "feat_1"},
		Rows: []preprocess.Row{
			{TxID: "tx1", TimeStep: 1, Class: 1, ClassLabel: "Licit", Features: []float64{0.5, -0.5}},
			{TxID: "tx2", TimeStep: 1, Class: 2, ClassLabel: "Illicit", Features: []float64{-0.5, 0.5}},
			{TxID: "tx3", TimeStep: 2, Class: 0, ClassLabel: "Unknown", Features: []float64{0.0, 0.0}},
		},
	}
	edges := []dataset.Edge{
		{From: "tx1", To: "tx2"},
		{From: "tx2", To: "tx3"},
	}
	logger := zap.NewNop()
	report := analytics.NewAnalyzer(logger).Summarize(result, edges)
	return &httpapi.Data{Result: result, Edges: edges, Report: report}
}

func testRouter(t *testing.T, data *httpapi.Data, store storage.Store) http.Handler {
	t.Helper()
	cfg := &config.Config{}
	cfg.Dataset.OutputDir = t.TempDir()
	cfg.Query = config.Query{DefaultTimeStep: 10, DefaultMinDegree: 5, ResultLimit: 100}

	var catalog *queries.Catalog
	if store != nil {
		catalog = queries.NewCatalog(store, cfg.Query, nil, zap.NewNop())
	}
	rt := httpapi.NewRouter(cfg, data, store, catalog, nil, nil, zap.NewNop())
	return rt.Setup()
}

func doRequest(t *testing.T, h http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := testRouter(t, testData(), &fakeStore{})
	rec := doRequest(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOverview(t *testing.T) {
	h := testRouter(t, testData(), &fakeStore{})
	rec := doRequest(t, h, http.MethodGet, "/api/overview", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Transactions int `json:"transactions"`
		Edges        int `json:"edges"`
		Features     int `json:"features"`
		TimeStepMin  int `json:"timeStepMin"`
		TimeStepMax  int `json:"timeStepMax"`
		Classes      []struct {
			Class int `json:"class"`
			Count int `json:"count"`
		} `json:"classes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Transactions)
	assert.Equal(t, 2, resp.Edges)
	assert.Equal(t, 2, resp.Features)
	assert.Equal(t, 1, resp.TimeStepMin)
	assert.Equal(t, 2, resp.TimeStepMax)
	assert.Len(t, resp.Classes, 3)
}

func TestOverviewWithoutData(t *testing.T) {
	h := testRouter(t, nil, &fakeStore{})
	rec := doRequest(t, h, http.MethodGet, "/api/overview", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNetworkSampling(t *testing.T) {
	h := testRouter(t, testData(), &fakeStore{})

	rec := doRequest(t, h, http.MethodGet, "/api/network?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Nodes []struct {
			ID string `json:"id"`
		} `json:"nodes"`
		Edges []struct {
			Source string `json:"source"`
			Target string `json:"target"`
		} `json:"edges"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Nodes, 2)
	// Only tx1 and tx2 are sampled, so only the edge between them survives.
	require.Len(t, resp.Edges, 1)
	assert.Equal(t, "tx1", resp.Edges[0].Source)
	assert.Equal(t, "tx2", resp.Edges[0].Target)
}

func TestNetworkClassFilter(t *testing.T) {
	h := testRouter(t, testData(), &fakeStore{})

	rec := doRequest(t, h, http.MethodGet, "/api/network?class=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Nodes []struct {
			ID    string `json:"id"`
			Class int    `json:"class"`
		} `json:"nodes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Nodes, 1)
	assert.Equal(t, "tx2", resp.Nodes[0].ID)
}

func TestStoreSummary(t *testing.T) {
	store := &fakeStore{
		counts: map[string]int64{
			storage.CollectionTransactions: 42,
			storage.CollectionEdges:        17,
		},
		queryRows: []map[string]interface{}{
			{"class": float64(2), "count": float64(9), "class_name": "Illicit"},
		},
	}
	h := testRouter(t, testData(), store)

	rec := doRequest(t, h, http.MethodGet, "/api/store/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Transactions int64 `json:"transactions"`
		Edges        int64 `json:"edges"`
		ByClass      []struct {
			Class int    `json:"class"`
			Label string `json:"label"`
			Count int    `json:"count"`
		} `json:"byClass"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(42), resp.Transactions)
	assert.Equal(t, int64(17), resp.Edges)

	// Live per-class breakdown from the store.
	require.Len(t, resp.ByClass, 1)
	assert.Equal(t, 2, resp.ByClass[0].Class)
	assert.Equal(t, "Illicit", resp.ByClass[0].Label)
	assert.Equal(t, 9, resp.ByClass[0].Count)
}

func TestStoreSummaryWithoutStore(t *testing.T) {
	h := testRouter(t, testData(), nil)
	rec := doRequest(t, h, http.MethodGet, "/api/store/summary", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestIngestStatusWithoutIngestor(t *testing.T) {
	h := testRouter(t, testData(), &fakeStore{})
	rec := doRequest(t, h, http.MethodGet, "/api/ingest/status", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCatalogListing(t *testing.T) {
	h := testRouter(t, testData(), &fakeStore{})
	rec := doRequest(t, h, http.MethodGet, "/api/queries", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Simple  []string `json:"simple"`
		Complex []string `json:"complex"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Simple, 5)
	assert.Len(t, resp.Complex, 5)
	assert.Contains(t, resp.Simple, queries.NameCountByClass)
	assert.Contains(t, resp.Complex, queries.NameHighDegreeNodes)
}

func TestExecuteQuery(t *testing.T) {
	store := &fakeStore{queryRows: []map[string]interface{}{
		{"class": float64(2), "count": float64(9)},
	}}
	h := testRouter(t, testData(), store)

	body, _ := json.Marshal(map[string]interface{}{"timeStep": 20})
	rec := doRequest(t, h, http.MethodPost, "/api/queries/simple/"+queries.NameAfterTimeStep, body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Name  string                   `json:"name"`
		Tier  string                   `json:"tier"`
		Count int                      `json:"count"`
		Rows  []map[string]interface{} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, queries.NameAfterTimeStep, resp.Name)
	assert.Equal(t, "simple", resp.Tier)
	assert.Equal(t, 1, resp.Count)
}

func TestExecuteQueryEmptyBody(t *testing.T) {
	store := &fakeStore{}
	h := testRouter(t, testData(), store)

	rec := doRequest(t, h, http.MethodPost, "/api/queries/simple/"+queries.NameCountByClass, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestExecuteQueryUnknownName(t *testing.T) {
	h := testRouter(t, testData(), &fakeStore{})
	rec := doRequest(t, h, http.MethodPost, "/api/queries/simple/no-such-query", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExecuteQueryTierMismatch(t *testing.T) {
	h := testRouter(t, testData(), &fakeStore{})
	rec := doRequest(t, h, http.MethodPost, "/api/queries/complex/"+queries.NameCountByClass, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExecuteQueryInvalidTier(t *testing.T) {
	h := testRouter(t, testData(), &fakeStore{})
	rec := doRequest(t, h, http.MethodPost, "/api/queries/advanced/"+queries.NameCountByClass, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExecuteQueryInvalidParams(t *testing.T) {
	h := testRouter(t, testData(), &fakeStore{})
	body, _ := json.Marshal(map[string]interface{}{"limit": 100000})
	rec := doRequest(t, h, http.MethodPost, "/api/queries/simple/"+queries.NameCountByClass, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCorrelation(t *testing.T) {
	h := testRouter(t, testData(), &fakeStore{})
	rec := doRequest(t, h, http.MethodGet, "/api/explorer/correlation", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Features []string    `json:"features"`
		Matrix   [][]float64 `json:"matrix"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Features, 2)
	require.Len(t, resp.Matrix, 2)
	assert.InDelta(t, 1.0, resp.Matrix[0][0], 1e-9)
	// feat_0 and feat_1 move in opposite directions in the fixture.
	assert.InDelta(t, -1.0, resp.Matrix[0][1], 1e-9)
}

func TestExplorerRows(t *testing.T) {
	h := testRouter(t, testData(), &fakeStore{})
	rec := doRequest(t, h, http.MethodGet, "/api/explorer/rows?limit=2&class=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Columns []string        `json:"columns"`
		Rows    [][]interface{} `json:"rows"`
		Total   int             `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"txId", "Time step", "class_label", "feat_0", "feat_1"}, resp.Columns)
	require.Len(t, resp.Rows, 1)
	assert.Equal(t, "tx1", resp.Rows[0][0])
	assert.Equal(t, 1, resp.Total)
}
