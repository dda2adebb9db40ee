// Package api defines the contracts for API requests and responses.
// It decouples the API structure from the internal domain models.
package api

// OverviewResponse summarizes the processed dataset for the dashboard
// landing view.
type OverviewResponse struct {
	Transactions int                 `json:"transactions"`
	Edges        int                 `json:"edges"`
	Features     int                 `json:"features"`
	TimeStepMin  int                 `json:"timeStepMin"`
	TimeStepMax  int                 `json:"timeStepMax"`
	Classes      []ClassCount        `json:"classes"`
	TimeSeries   []TimeStepBreakdown `json:"timeSeries"`
}

// ClassCount is one slice of the class distribution pie.
type ClassCount struct {
	Class   int     `json:"class"`
	Label   string  `json:"label"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// TimeStepBreakdown is the per-time-step transaction count, split by class.
type TimeStepBreakdown struct {
	TimeStep int         `json:"timeStep"`
	Total    int         `json:"total"`
	ByClass  map[int]int `json:"byClass"`
}

// NetworkResponse is the structure for the network visualization: a sampled
// subgraph of transactions and the edges between them.
type NetworkResponse struct {
	Nodes []NetworkNode `json:"nodes"`
	Edges []NetworkEdge `json:"edges"`
}

type NetworkNode struct {
	ID       string `json:"id"`
	Class    int    `json:"class"`
	Label    string `json:"label"`
	TimeStep int    `json:"timeStep"`
}

type NetworkEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// StoreSummaryResponse carries live collection counts from the graph
// store, with a per-class breakdown when the query catalog is available.
type StoreSummaryResponse struct {
	Transactions int64             `json:"transactions"`
	Edges        int64             `json:"edges"`
	ByClass      []StoreClassCount `json:"byClass,omitempty"`
}

// StoreClassCount is a live per-class transaction count from the store.
type StoreClassCount struct {
	Class int    `json:"class"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// QueryRequest parameterizes a catalog query execution. TimeStep is a
// pointer so an explicit 0 can be told apart from an omitted field.
type QueryRequest struct {
	TxID      string `json:"txId,omitempty"`
	FromTxID  string `json:"fromTxId,omitempty"`
	ToTxID    string `json:"toTxId,omitempty"`
	TimeStep  *int   `json:"timeStep,omitempty" validate:"omitempty,gte=0"`
	MinDegree int    `json:"minDegree,omitempty" validate:"gte=0"`
	Limit     int    `json:"limit,omitempty" validate:"gte=0,lte=1000"`
}

// QueryResponse is the result envelope for a single catalog query.
type QueryResponse struct {
	Name       string                   `json:"name"`
	Tier       string                   `json:"tier"`
	Params     map[string]interface{}   `json:"params,omitempty"`
	DurationMS int64                    `json:"durationMs"`
	Count      int                      `json:"count"`
	Results    []map[string]interface{} `json:"results"`
}

// CatalogResponse lists the available catalog queries per tier.
type CatalogResponse struct {
	Simple  []string `json:"simple"`
	Complex []string `json:"complex"`
}

// CorrelationResponse is the feature correlation matrix for the explorer.
type CorrelationResponse struct {
	Features []string    `json:"features"`
	Matrix   [][]float64 `json:"matrix"`
}

// ExplorerRowsResponse is a filtered sample of processed rows.
type ExplorerRowsResponse struct {
	Columns []string        `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
	Total   int             `json:"total"`
}

// IngestStatusResponse reports the state of the streaming ingestion run.
type IngestStatusResponse struct {
	RunID              string `json:"runId"`
	State              string `json:"state"`
	StepsDone          int    `json:"stepsDone"`
	StepsTotal         int    `json:"stepsTotal"`
	FailedSteps        int    `json:"failedSteps"`
	TransactionsLoaded int    `json:"transactionsLoaded"`
	EdgesLoaded        int    `json:"edgesLoaded"`
}

// ErrorResponse is a standardized error message for API responses.
type ErrorResponse struct {
	Error string `json:"error"`
}
