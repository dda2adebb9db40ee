package queries

import (
	"context"

	"elliptigraph-backend/internal/storage"
)

// Simple tier query names.
const (
	NameCountByClass       = "count-by-class"
	NameOutgoingEdges      = "outgoing-edges"
	NameAvgTimeStepByClass = "avg-time-step-by-class"
	NameTotalEdges         = "total-edges"
	NameAfterTimeStep      = "after-time-step"
)

const aqlCountByClass = `
FOR tx IN transactions
    COLLECT class = tx.class INTO group
    RETURN {
        class: class,
        count: LENGTH(group),
        class_name: class == 1 ? 'Licit' :
                    class == 2 ? 'Illicit' :
                    class == 3 ? 'Suspected' : 'Unknown'
    }
`

func runCountByClass(ctx context.Context, c *Catalog, p Params) (map[string]interface{}, []map[string]interface{}, error) {
	results, err := c.store.Query(ctx, aqlCountByClass, nil)
	return nil, results, err
}

const aqlOutgoingEdges = `
FOR edge IN tx_edges
    FILTER edge._from == @tx_id
    LIMIT @limit
    RETURN {
        from: edge._from,
        to: edge._to
    }
`

func runOutgoingEdges(ctx context.Context, c *Catalog, p Params) (map[string]interface{}, []map[string]interface{}, error) {
	txID := p.TxID
	if txID == "" {
		keys, err := c.sampleTxIDs(ctx, 1)
		if err != nil {
			return nil, nil, err
		}
		txID = keys[0]
	}

	results, err := c.store.Query(ctx, aqlOutgoingEdges, map[string]interface{}{
		"tx_id": storage.TransactionID(txID),
		"limit": p.Limit,
	})
	return map[string]interface{}{"txId": txID}, results, err
}

const aqlAvgTimeStepByClass = `
FOR tx IN transactions
    COLLECT class = tx.class INTO group
    RETURN {
        class: class,
        avg_time_step: AVG(group[*].tx.time_step),
        transaction_count: LENGTH(group)
    }
`

func runAvgTimeStepByClass(ctx context.Context, c *Catalog, p Params) (map[string]interface{}, []map[string]interface{}, error) {
	results, err := c.store.Query(ctx, aqlAvgTimeStepByClass, nil)
	return nil, results, err
}

const aqlTotalEdges = `
RETURN {
    total_edges: LENGTH(tx_edges)
}
`

func runTotalEdges(ctx context.Context, c *Catalog, p Params) (map[string]interface{}, []map[string]interface{}, error) {
	results, err := c.store.Query(ctx, aqlTotalEdges, nil)
	return nil, results, err
}

const aqlAfterTimeStep = `
FOR tx IN transactions
    FILTER tx.time_step > @time_step
    COLLECT class = tx.class INTO group
    RETURN {
        class: class,
        count: LENGTH(group),
        min_time_step: MIN(group[*].tx.time_step),
        max_time_step: MAX(group[*].tx.time_step)
    }
`

func runAfterTimeStep(ctx context.Context, c *Catalog, p Params) (map[string]interface{}, []map[string]interface{}, error) {
	results, err := c.store.Query(ctx, aqlAfterTimeStep, map[string]interface{}{
		"time_step": *p.TimeStep,
	})
	return map[string]interface{}{"timeStep": *p.TimeStep}, results, err
}
