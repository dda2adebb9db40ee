// Package queries implements the fixed catalog of parameterized graph
// queries executed against the store: per-class aggregations, traversals,
// degree computations, and shortest paths, in two tiers (simple, complex).
package queries

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"elliptigraph-backend/internal/config"
	"elliptigraph-backend/internal/observability"
	apperrors "elliptigraph-backend/pkg/errors"
)

var errNotEnoughTransactions = apperrors.NewNotFound("not enough transactions in the store to sample a pair")

// Runner is the slice of the graph store the catalog needs.
type Runner interface {
	Query(ctx context.Context, query string, bindVars map[string]interface{}) ([]map[string]interface{}, error)
}

// Tier separates the two halves of the catalog.
type Tier string

const (
	TierSimple  Tier = "simple"
	TierComplex Tier = "complex"
)

// Params parameterizes a catalog query. Zero values fall back to the
// configured defaults, and missing transaction ids are sampled from the
// store. TimeStep is a pointer because 0 is a legitimate explicit value;
// nil means "use the default".
type Params struct {
	TxID      string
	FromTxID  string
	ToTxID    string
	TimeStep  *int
	MinDegree int
	Limit     int
}

// Execution records one catalog query run.
type Execution struct {
	Name     string
	Tier     Tier
	Params   map[string]interface{}
	Duration time.Duration
	Results  []map[string]interface{}
}

type definition struct {
	tier Tier
	run  func(ctx context.Context, c *Catalog, p Params) (map[string]interface{}, []map[string]interface{}, error)
}

// Catalog executes the fixed query set against a store.
type Catalog struct {
	store   Runner
	metrics *observability.Collector
	logger  *zap.Logger
	defs    map[string]definition

	mu  sync.RWMutex
	cfg config.Query
}

// NewCatalog creates the query catalog. metrics may be nil.
func NewCatalog(store Runner, cfg config.Query, metrics *observability.Collector, logger *zap.Logger) *Catalog {
	if cfg.ResultLimit <= 0 {
		cfg.ResultLimit = 100
	}
	c := &Catalog{
		store:   store,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
	}
	c.defs = map[string]definition{
		// Simple tier
		NameCountByClass:       {TierSimple, runCountByClass},
		NameOutgoingEdges:      {TierSimple, runOutgoingEdges},
		NameAvgTimeStepByClass: {TierSimple, runAvgTimeStepByClass},
		NameTotalEdges:         {TierSimple, runTotalEdges},
		NameAfterTimeStep:      {TierSimple, runAfterTimeStep},
		// Complex tier
		NameTwoHopNeighbors: {TierComplex, runTwoHopNeighbors},
		NameIllicitClusters: {TierComplex, runIllicitClusters},
		NameTemporalPattern: {TierComplex, runTemporalPatterns},
		NameHighDegreeNodes: {TierComplex, runHighDegreeNodes},
		NameShortestPaths:   {TierComplex, runShortestPaths},
	}
	return c
}

// Names returns the catalog query names for a tier, sorted.
func (c *Catalog) Names(tier Tier) []string {
	names := make([]string, 0, len(c.defs))
	for name, def := range c.defs {
		if def.tier == tier {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Execute runs one catalog query by name. Unknown names are NotFound.
func (c *Catalog) Execute(ctx context.Context, name string, p Params) (*Execution, error) {
	def, ok := c.defs[name]
	if !ok {
		return nil, apperrors.NewNotFound(fmt.Sprintf("unknown catalog query %q", name))
	}

	started := time.Now()
	params, results, err := def.run(ctx, c, c.applyDefaults(p))
	duration := time.Since(started)

	if c.metrics != nil {
		c.metrics.ObserveQuery(string(def.tier), name, duration, err)
	}
	if err != nil {
		c.logger.Warn("Catalog query failed",
			zap.String("query", name),
			zap.Error(err),
		)
		return nil, apperrors.Wrap(err, fmt.Sprintf("query %s failed", name))
	}

	c.logger.Debug("Catalog query executed",
		zap.String("query", name),
		zap.Duration("duration", duration),
		zap.Int("results", len(results)),
	)

	return &Execution{
		Name:     name,
		Tier:     def.tier,
		Params:   params,
		Duration: duration,
		Results:  results,
	}, nil
}

// RunAll executes the full catalog, one tier after the other. Individual
// query failures are logged and skipped so a partial store still produces
// a report, matching the best-effort behavior of the pipeline.
func (c *Catalog) RunAll(ctx context.Context) []*Execution {
	executions := make([]*Execution, 0, len(c.defs))
	for _, tier := range []Tier{TierSimple, TierComplex} {
		for _, name := range c.Names(tier) {
			exec, err := c.Execute(ctx, name, Params{})
			if err != nil {
				continue
			}
			executions = append(executions, exec)
		}
	}
	return executions
}

// SetDefaults swaps the configured query defaults. Called on configuration
// hot reload; in-flight executions keep the defaults they started with.
func (c *Catalog) SetDefaults(cfg config.Query) {
	if cfg.ResultLimit <= 0 {
		cfg.ResultLimit = 100
	}
	c.mu.Lock()
	c.cfg = cfg
	c.mu.Unlock()
}

func (c *Catalog) applyDefaults(p Params) Params {
	c.mu.RLock()
	cfg := c.cfg
	c.mu.RUnlock()

	if p.TimeStep == nil {
		v := cfg.DefaultTimeStep
		p.TimeStep = &v
	}
	if p.MinDegree <= 0 {
		p.MinDegree = cfg.DefaultMinDegree
	}
	if p.Limit <= 0 {
		p.Limit = cfg.ResultLimit
	}
	return p
}

// sampleTxIDs pulls up to n transaction keys from the store, used when the
// caller does not name a transaction.
func (c *Catalog) sampleTxIDs(ctx context.Context, n int) ([]string, error) {
	docs, err := c.store.Query(ctx,
		"FOR tx IN transactions LIMIT @n RETURN {key: tx._key}",
		map[string]interface{}{"n": n},
	)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(docs))
	for _, doc := range docs {
		if key, ok := doc["key"].(string); ok {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return nil, apperrors.NewNotFound("no transactions in the store to sample")
	}
	return keys, nil
}
