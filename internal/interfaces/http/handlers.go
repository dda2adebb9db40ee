package http

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"elliptigraph-backend/internal/analytics"
	"elliptigraph-backend/internal/queries"
	"elliptigraph-backend/internal/storage"
	"elliptigraph-backend/pkg/api"
	apperrors "elliptigraph-backend/pkg/errors"
)

func (rt *Router) healthHandler(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
}

// overviewHandler serves the dataset summary for the dashboard landing view.
func (rt *Router) overviewHandler(w http.ResponseWriter, r *http.Request) {
	if rt.data == nil || rt.data.Report == nil {
		api.Error(w, http.StatusServiceUnavailable, "dataset not loaded")
		return
	}
	report := rt.data.Report

	classes := make([]api.ClassCount, 0, len(report.Classes))
	for _, share := range report.Classes {
		classes = append(classes, api.ClassCount{
			Class:   share.Class,
			Label:   share.Label,
			Count:   share.Count,
			Percent: share.Percent,
		})
	}

	series := make([]api.TimeStepBreakdown, 0, len(report.Steps))
	for _, step := range report.Steps {
		series = append(series, api.TimeStepBreakdown{
			TimeStep: step.TimeStep,
			Total:    step.Total,
			ByClass:  step.ByClass,
		})
	}

	api.Success(w, http.StatusOK, api.OverviewResponse{
		Transactions: report.Transactions,
		Edges:        report.Edges,
		Features:     report.Features,
		TimeStepMin:  report.TimeStepMin,
		TimeStepMax:  report.TimeStepMax,
		Classes:      classes,
		TimeSeries:   series,
	})
}

// networkHandler serves a sampled subgraph for visualization: the first
// matching transactions plus every edge between sampled nodes.
func (rt *Router) networkHandler(w http.ResponseWriter, r *http.Request) {
	if rt.data == nil || rt.data.Result == nil {
		api.Error(w, http.StatusServiceUnavailable, "dataset not loaded")
		return
	}

	limit := queryInt(r, "limit", 200)
	if limit > 2000 {
		limit = 2000
	}
	classFilter, hasClassFilter := queryIntOptional(r, "class")

	sampled := make(map[string]bool, limit)
	nodes := make([]api.NetworkNode, 0, limit)
	for i := range rt.data.Result.Rows {
		if len(nodes) >= limit {
			break
		}
		row := &rt.data.Result.Rows[i]
		if hasClassFilter && row.Class != classFilter {
			continue
		}
		sampled[row.TxID] = true
		nodes = append(nodes, api.NetworkNode{
			ID:       row.TxID,
			Class:    row.Class,
			Label:    row.ClassLabel,
			TimeStep: row.TimeStep,
		})
	}

	edges := make([]api.NetworkEdge, 0)
	for _, e := range rt.data.Edges {
		if sampled[e.From] && sampled[e.To] {
			edges = append(edges, api.NetworkEdge{Source: e.From, Target: e.To})
		}
	}

	api.Success(w, http.StatusOK, api.NetworkResponse{Nodes: nodes, Edges: edges})
}

// storeSummaryHandler reports live collection counts from the graph store,
// with a per-class breakdown when the query catalog is wired. A failing
// breakdown query degrades to counts only.
func (rt *Router) storeSummaryHandler(w http.ResponseWriter, r *http.Request) {
	if rt.store == nil {
		api.Error(w, http.StatusServiceUnavailable, "graph store not connected")
		return
	}

	txCount, err := rt.store.Count(r.Context(), storage.CollectionTransactions)
	if err != nil {
		writeError(w, err)
		return
	}
	edgeCount, err := rt.store.Count(r.Context(), storage.CollectionEdges)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := api.StoreSummaryResponse{
		Transactions: txCount,
		Edges:        edgeCount,
	}
	if rt.catalog != nil {
		if exec, err := rt.catalog.Execute(r.Context(), queries.NameCountByClass, queries.Params{}); err == nil {
			resp.ByClass = classCounts(exec.Results)
		}
	}

	api.Success(w, http.StatusOK, resp)
}

// classCounts converts count-by-class rows into typed counts. Numbers in
// store results decode as float64.
func classCounts(results []map[string]interface{}) []api.StoreClassCount {
	counts := make([]api.StoreClassCount, 0, len(results))
	for _, doc := range results {
		label, _ := doc["class_name"].(string)
		counts = append(counts, api.StoreClassCount{
			Class: docInt(doc["class"]),
			Label: label,
			Count: docInt(doc["count"]),
		})
	}
	return counts
}

func docInt(v interface{}) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	}
	return 0
}

func (rt *Router) ingestStatusHandler(w http.ResponseWriter, r *http.Request) {
	if rt.ingestor == nil {
		api.Error(w, http.StatusServiceUnavailable, "ingestion not configured")
		return
	}

	status := rt.ingestor.Status()
	api.Success(w, http.StatusOK, api.IngestStatusResponse{
		RunID:              status.RunID,
		State:              string(status.State),
		StepsDone:          status.StepsDone,
		StepsTotal:         status.StepsTotal,
		TransactionsLoaded: status.TransactionsLoaded,
		EdgesLoaded:        status.EdgesLoaded,
		FailedSteps:        status.FailedSteps,
	})
}

func (rt *Router) catalogHandler(w http.ResponseWriter, r *http.Request) {
	if rt.catalog == nil {
		api.Error(w, http.StatusServiceUnavailable, "query catalog not available")
		return
	}
	api.Success(w, http.StatusOK, api.CatalogResponse{
		Simple:  rt.catalog.Names(queries.TierSimple),
		Complex: rt.catalog.Names(queries.TierComplex),
	})
}

// executeQueryHandler runs one catalog query with optional JSON parameters.
func (rt *Router) executeQueryHandler(w http.ResponseWriter, r *http.Request) {
	if rt.catalog == nil {
		api.Error(w, http.StatusServiceUnavailable, "query catalog not available")
		return
	}

	tier := queries.Tier(chi.URLParam(r, "tier"))
	if tier != queries.TierSimple && tier != queries.TierComplex {
		api.Error(w, http.StatusBadRequest, "tier must be simple or complex")
		return
	}
	name := chi.URLParam(r, "name")

	var req api.QueryRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
			api.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if err := rt.validate.Struct(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid query parameters")
		return
	}

	exec, err := rt.catalog.Execute(r.Context(), name, queries.Params{
		TxID:      req.TxID,
		FromTxID:  req.FromTxID,
		ToTxID:    req.ToTxID,
		TimeStep:  req.TimeStep,
		MinDegree: req.MinDegree,
		Limit:     req.Limit,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if exec.Tier != tier {
		api.Error(w, http.StatusNotFound, "query does not belong to this tier")
		return
	}

	api.Success(w, http.StatusOK, api.QueryResponse{
		Name:       exec.Name,
		Tier:       string(exec.Tier),
		Params:     exec.Params,
		DurationMS: exec.Duration.Milliseconds(),
		Count:      len(exec.Results),
		Results:    exec.Results,
	})
}

func (rt *Router) correlationHandler(w http.ResponseWriter, r *http.Request) {
	if rt.data == nil || rt.data.Result == nil {
		api.Error(w, http.StatusServiceUnavailable, "dataset not loaded")
		return
	}

	features, matrix := analytics.Correlation(rt.data.Result)
	api.Success(w, http.StatusOK, api.CorrelationResponse{
		Features: features,
		Matrix:   matrix,
	})
}

// rowsHandler serves a filtered sample of processed rows for the explorer
// table.
func (rt *Router) rowsHandler(w http.ResponseWriter, r *http.Request) {
	if rt.data == nil || rt.data.Result == nil {
		api.Error(w, http.StatusServiceUnavailable, "dataset not loaded")
		return
	}
	res := rt.data.Result

	limit := queryInt(r, "limit", 100)
	if limit > 1000 {
		limit = 1000
	}
	classFilter, hasClassFilter := queryIntOptional(r, "class")
	maxFeatures := 5
	if len(res.FeatureColumns) < maxFeatures {
		maxFeatures = len(res.FeatureColumns)
	}

	columns := append([]string{"txId", "Time step", "class_label"}, res.FeatureColumns[:maxFeatures]...)

	total := 0
	rows := make([][]interface{}, 0, limit)
	for i := range res.Rows {
		row := &res.Rows[i]
		if hasClassFilter && row.Class != classFilter {
			continue
		}
		total++
		if len(rows) >= limit {
			continue
		}
		record := make([]interface{}, 0, len(columns))
		record = append(record, row.TxID, row.TimeStep, row.ClassLabel)
		for j := 0; j < maxFeatures; j++ {
			record = append(record, row.Features[j])
		}
		rows = append(rows, record)
	}

	api.Success(w, http.StatusOK, api.ExplorerRowsResponse{
		Columns: columns,
		Rows:    rows,
		Total:   total,
	})
}

// writeError maps typed application errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case apperrors.IsNotFound(err):
		api.Error(w, http.StatusNotFound, err.Error())
	case apperrors.IsValidation(err):
		api.Error(w, http.StatusBadRequest, err.Error())
	case apperrors.IsUnavailable(err):
		api.Error(w, http.StatusServiceUnavailable, err.Error())
	default:
		api.Error(w, http.StatusInternalServerError, err.Error())
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

func queryIntOptional(r *http.Request, key string) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
