// Package ingest streams the preprocessed dataset into the graph store in
// time-step order, one batch per step, pausing between batches to simulate
// a live transaction feed.
package ingest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"elliptigraph-backend/internal/config"
	"elliptigraph-backend/internal/dataset"
	"elliptigraph-backend/internal/observability"
	"elliptigraph-backend/internal/preprocess"
	"elliptigraph-backend/internal/storage"
)

// State describes where an ingestion run currently is.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDone     State = "done"
	StateCanceled State = "canceled"
)

// Status is a snapshot of the current run, served by the dashboard API.
type Status struct {
	RunID              string
	State              State
	StepsDone          int
	StepsTotal         int
	FailedSteps        int
	TransactionsLoaded int
	EdgesLoaded        int
}

// Summary is the final result of a completed run.
type Summary struct {
	RunID                string
	StepsProcessed       int
	FailedSteps          int
	TransactionsInserted int
	EdgesInserted        int
	Duration             time.Duration
}

// Ingestor performs the streaming ingestion.
type Ingestor struct {
	store   storage.Store
	cfg     config.Ingest
	logger  *zap.Logger
	metrics *observability.Collector

	mu     sync.RWMutex
	status Status
}

// NewIngestor creates an ingestor. metrics may be nil when metrics are
// disabled.
func NewIngestor(store storage.Store, cfg config.Ingest, metrics *observability.Collector, logger *zap.Logger) *Ingestor {
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = 5
	}
	return &Ingestor{
		store:   store,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		status:  Status{State: StateIdle},
	}
}

// Status returns a snapshot of the current run.
func (ing *Ingestor) Status() Status {
	ing.mu.RLock()
	defer ing.mu.RUnlock()
	return ing.status
}

// Run streams the processed rows and their edges into the store, batched by
// time step in ascending order. Each edge is ingested at the first step in
// which either endpoint appears. A failed batch is logged and counted, and
// the stream moves on to the next step; only context cancellation aborts
// the run.
func (ing *Ingestor) Run(ctx context.Context, res *preprocess.Result, edges []dataset.Edge) (*Summary, error) {
	started := time.Now()
	runID := uuid.NewString()

	byStep := groupByStep(res.Rows)
	steps := make([]int, 0, len(byStep))
	for step := range byStep {
		steps = append(steps, step)
	}
	sort.Ints(steps)

	if ing.cfg.SampleSteps > 0 && ing.cfg.SampleSteps < len(steps) {
		steps = steps[:ing.cfg.SampleSteps]
		ing.logger.Info("Ingesting a sample of time steps",
			zap.Int("sample_steps", len(steps)),
		)
	}

	ing.setStatus(Status{RunID: runID, State: StateRunning, StepsTotal: len(steps)})
	ing.logger.Info("Starting streaming ingestion",
		zap.String("run_id", runID),
		zap.Int("time_steps", len(steps)),
		zap.Duration("step_sleep", ing.cfg.StepSleep),
	)

	edgeIndex := buildEdgeIndex(edges)
	ingestedEdges := make([]bool, len(edges))

	summary := &Summary{RunID: runID}
	for i, step := range steps {
		select {
		case <-ctx.Done():
			summary.Duration = time.Since(started)
			ing.setStatusState(runID, StateCanceled, summary, len(steps))
			ing.logger.Warn("Streaming ingestion canceled",
				zap.String("run_id", runID),
				zap.Int("steps_done", summary.StepsProcessed),
			)
			return summary, ctx.Err()
		default:
		}

		stepStart := time.Now()
		stepFailed := false

		rows := byStep[step]
		txInserted, err := ing.store.InsertTransactions(ctx, transactionDocs(res.FeatureColumns, rows))
		if err != nil {
			stepFailed = true
			ing.logger.Warn("Transaction batch failed, continuing to next step",
				zap.String("run_id", runID),
				zap.Int("time_step", step),
				zap.Error(err),
			)
		}
		summary.TransactionsInserted += txInserted

		edgeDocs := collectStepEdges(edges, edgeIndex, ingestedEdges, rows)
		edgesInserted, err := ing.store.InsertEdges(ctx, edgeDocs)
		if err != nil {
			stepFailed = true
			ing.logger.Warn("Edge batch failed, continuing to next step",
				zap.String("run_id", runID),
				zap.Int("time_step", step),
				zap.Error(err),
			)
		}
		summary.EdgesInserted += edgesInserted
		summary.StepsProcessed++
		if stepFailed {
			summary.FailedSteps++
		}

		if ing.metrics != nil {
			ing.metrics.TransactionsIngested.Add(float64(txInserted))
			ing.metrics.EdgesIngested.Add(float64(edgesInserted))
			ing.metrics.IngestSteps.Inc()
			ing.metrics.StepDuration.Observe(time.Since(stepStart).Seconds())
		}

		ing.setStatus(Status{
			RunID:              runID,
			State:              StateRunning,
			StepsDone:          summary.StepsProcessed,
			StepsTotal:         len(steps),
			FailedSteps:        summary.FailedSteps,
			TransactionsLoaded: summary.TransactionsInserted,
			EdgesLoaded:        summary.EdgesInserted,
		})

		if (i+1)%ing.cfg.ProgressEvery == 0 || i+1 == len(steps) {
			ing.logger.Info("Ingestion progress",
				zap.Int("step", i+1),
				zap.Int("of", len(steps)),
				zap.Int("time_step", step),
				zap.Int("step_transactions", txInserted),
				zap.Int("step_edges", edgesInserted),
				zap.Int("total_transactions", summary.TransactionsInserted),
				zap.Int("total_edges", summary.EdgesInserted),
			)
		}

		if i+1 < len(steps) && ing.cfg.StepSleep > 0 {
			select {
			case <-ctx.Done():
				summary.Duration = time.Since(started)
				ing.setStatusState(runID, StateCanceled, summary, len(steps))
				ing.logger.Warn("Streaming ingestion canceled",
					zap.String("run_id", runID),
					zap.Int("steps_done", summary.StepsProcessed),
				)
				return summary, ctx.Err()
			case <-time.After(ing.cfg.StepSleep):
			}
		}
	}

	summary.Duration = time.Since(started)
	ing.setStatusState(runID, StateDone, summary, len(steps))
	ing.logger.Info("Ingestion complete",
		zap.String("run_id", runID),
		zap.Int("transactions", summary.TransactionsInserted),
		zap.Int("edges", summary.EdgesInserted),
		zap.Int("failed_steps", summary.FailedSteps),
		zap.Duration("duration", summary.Duration),
	)
	return summary, nil
}

func (ing *Ingestor) setStatus(s Status) {
	ing.mu.Lock()
	ing.status = s
	ing.mu.Unlock()
}

func (ing *Ingestor) setStatusState(runID string, state State, summary *Summary, total int) {
	ing.setStatus(Status{
		RunID:              runID,
		State:              state,
		StepsDone:          summary.StepsProcessed,
		StepsTotal:         total,
		FailedSteps:        summary.FailedSteps,
		TransactionsLoaded: summary.TransactionsInserted,
		EdgesLoaded:        summary.EdgesInserted,
	})
}

// groupByStep partitions processed rows by time step.
func groupByStep(rows []preprocess.Row) map[int][]preprocess.Row {
	byStep := make(map[int][]preprocess.Row)
	for i := range rows {
		byStep[rows[i].TimeStep] = append(byStep[rows[i].TimeStep], rows[i])
	}
	return byStep
}

// transactionDocs converts processed rows into vertex documents. Feature
// values are keyed by column name so AQL queries can address them.
func transactionDocs(columns []string, rows []preprocess.Row) []storage.TransactionDoc {
	docs := make([]storage.TransactionDoc, len(rows))
	for i := range rows {
		features := make(map[string]float64, len(columns))
		for j, col := range columns {
			features[col] = rows[i].Features[j]
		}
		docs[i] = storage.TransactionDoc{
			Key:      rows[i].TxID,
			TimeStep: rows[i].TimeStep,
			Class:    rows[i].Class,
			Features: features,
		}
	}
	return docs
}

// buildEdgeIndex maps a txId to the indices of edges touching it.
func buildEdgeIndex(edges []dataset.Edge) map[string][]int {
	index := make(map[string][]int)
	for i, e := range edges {
		index[e.From] = append(index[e.From], i)
		if e.To != e.From {
			index[e.To] = append(index[e.To], i)
		}
	}
	return index
}

// collectStepEdges gathers the edges touching this step's transactions that
// have not been ingested by an earlier step, marking them as done.
func collectStepEdges(edges []dataset.Edge, index map[string][]int, done []bool, rows []preprocess.Row) []storage.EdgeDoc {
	docs := make([]storage.EdgeDoc, 0)
	for i := range rows {
		for _, ei := range index[rows[i].TxID] {
			if done[ei] {
				continue
			}
			done[ei] = true
			docs = append(docs, storage.NewEdgeDoc(edges[ei].From, edges[ei].To))
		}
	}
	return docs
}
