package queries

import (
	"context"

	"elliptigraph-backend/internal/storage"
)

// Complex tier query names.
const (
	NameTwoHopNeighbors = "two-hop-neighbors"
	NameIllicitClusters = "illicit-clusters"
	NameTemporalPattern = "temporal-patterns"
	NameHighDegreeNodes = "high-degree-nodes"
	NameShortestPaths   = "shortest-paths"
)

const aqlTwoHopNeighbors = `
LET first_hop = (
    FOR edge1 IN tx_edges
    FILTER edge1._from == @start_tx
    RETURN edge1._to
)
LET second_hop = (
    FOR hop1 IN first_hop
    FOR edge2 IN tx_edges
    FILTER edge2._from == hop1
    RETURN edge2._to
)
RETURN {
    source_tx: @start_tx,
    first_hop_count: LENGTH(first_hop),
    second_hop_count: LENGTH(second_hop),
    unique_second_hop: LENGTH(UNIQUE(second_hop))
}
`

func runTwoHopNeighbors(ctx context.Context, c *Catalog, p Params) (map[string]interface{}, []map[string]interface{}, error) {
	txID := p.TxID
	if txID == "" {
		keys, err := c.sampleTxIDs(ctx, 1)
		if err != nil {
			return nil, nil, err
		}
		txID = keys[0]
	}

	results, err := c.store.Query(ctx, aqlTwoHopNeighbors, map[string]interface{}{
		"start_tx": storage.TransactionID(txID),
	})
	return map[string]interface{}{"txId": txID}, results, err
}

const aqlIllicitClusters = `
FOR tx IN transactions
    FILTER tx.class == 2
    LET connected = (
        FOR edge IN tx_edges
        FILTER edge._from == tx._id OR edge._to == tx._id
        FOR neighbor IN transactions
        FILTER neighbor._id == (edge._from == tx._id ? edge._to : edge._from)
        RETURN neighbor
    )
    LIMIT @limit
    RETURN {
        illicit_tx: tx._key,
        time_step: tx.time_step,
        connected_count: LENGTH(connected),
        connected_classes: UNIQUE(connected[*].class)
    }
`

func runIllicitClusters(ctx context.Context, c *Catalog, p Params) (map[string]interface{}, []map[string]interface{}, error) {
	results, err := c.store.Query(ctx, aqlIllicitClusters, map[string]interface{}{
		"limit": p.Limit,
	})
	return nil, results, err
}

const aqlTemporalPatterns = `
FOR tx IN transactions
    COLLECT time_step = tx.time_step, class = tx.class INTO group
    RETURN {
        time_step: time_step,
        class: class,
        transaction_count: LENGTH(group),
        edge_activity: LENGTH(
            FOR edge IN tx_edges
            FOR from_tx IN transactions
            FILTER from_tx._id == edge._from AND from_tx.time_step == time_step
            RETURN edge
        )
    }
`

func runTemporalPatterns(ctx context.Context, c *Catalog, p Params) (map[string]interface{}, []map[string]interface{}, error) {
	results, err := c.store.Query(ctx, aqlTemporalPatterns, nil)
	return nil, results, err
}

const aqlHighDegreeNodes = `
FOR tx IN transactions
    LET in_degree = LENGTH(
        FOR edge IN tx_edges
        FILTER edge._to == tx._id
        RETURN edge
    )
    LET out_degree = LENGTH(
        FOR edge IN tx_edges
        FILTER edge._from == tx._id
        RETURN edge
    )
    LET total_degree = in_degree + out_degree
    FILTER total_degree >= @min_degree
    SORT total_degree DESC
    LIMIT @limit
    RETURN {
        transaction: tx._key,
        class: tx.class,
        time_step: tx.time_step,
        in_degree: in_degree,
        out_degree: out_degree,
        total_degree: total_degree
    }
`

func runHighDegreeNodes(ctx context.Context, c *Catalog, p Params) (map[string]interface{}, []map[string]interface{}, error) {
	results, err := c.store.Query(ctx, aqlHighDegreeNodes, map[string]interface{}{
		"min_degree": p.MinDegree,
		"limit":      p.Limit,
	})
	return map[string]interface{}{"minDegree": p.MinDegree}, results, err
}

const aqlShortestPaths = `
FOR path IN K_SHORTEST_PATHS @from_tx TO @to_tx GRAPH 'tx_graph'
    LIMIT 3
    RETURN {
        path_length: LENGTH(path.edges),
        vertices: path.vertices[*]._key,
        vertex_classes: (
            FOR v IN path.vertices
            RETURN v.class
        )
    }
`

func runShortestPaths(ctx context.Context, c *Catalog, p Params) (map[string]interface{}, []map[string]interface{}, error) {
	from, to := p.FromTxID, p.ToTxID
	if from == "" || to == "" {
		keys, err := c.sampleTxIDs(ctx, 2)
		if err != nil {
			return nil, nil, err
		}
		if len(keys) < 2 {
			return nil, nil, errNotEnoughTransactions
		}
		if from == "" {
			from = keys[0]
		}
		if to == "" {
			to = keys[1]
		}
	}

	results, err := c.store.Query(ctx, aqlShortestPaths, map[string]interface{}{
		"from_tx": storage.TransactionID(from),
		"to_tx":   storage.TransactionID(to),
	})
	return map[string]interface{}{"fromTxId": from, "toTxId": to}, results, err
}
