// Package storage defines the graph store abstraction the ingestion and
// query layers are written against. The ArangoDB implementation lives in
// the arango subpackage; tests substitute fakes.
package storage

import (
	"context"
	"fmt"
)

// Collection and graph names inside the graph database.
const (
	CollectionTransactions = "transactions"
	CollectionEdges        = "tx_edges"
	GraphName              = "tx_graph"
)

// TransactionDoc is the vertex document for one transaction.
type TransactionDoc struct {
	Key      string             `json:"_key"`
	TimeStep int                `json:"time_step"`
	Class    int                `json:"class"`
	Features map[string]float64 `json:"features"`
}

// EdgeDoc is the edge document linking two transaction vertices.
type EdgeDoc struct {
	From string `json:"_from"`
	To   string `json:"_to"`
}

// TransactionID returns the fully qualified document id for a txId.
func TransactionID(key string) string {
	return fmt.Sprintf("%s/%s", CollectionTransactions, key)
}

// NewEdgeDoc builds an edge document from two txIds.
func NewEdgeDoc(from, to string) EdgeDoc {
	return EdgeDoc{From: TransactionID(from), To: TransactionID(to)}
}

// Store is the graph store surface used by the rest of the service.
type Store interface {
	// Setup idempotently creates the database, collections, and named graph.
	Setup(ctx context.Context) error

	// InsertTransactions batch-inserts vertex documents, returning how many
	// were actually created. Key conflicts are skipped, not fatal.
	InsertTransactions(ctx context.Context, docs []TransactionDoc) (int, error)

	// InsertEdges batch-inserts edge documents, returning how many were
	// actually created.
	InsertEdges(ctx context.Context, docs []EdgeDoc) (int, error)

	// Query executes an AQL query with bind variables and returns the
	// result documents.
	Query(ctx context.Context, query string, bindVars map[string]interface{}) ([]map[string]interface{}, error)

	// Count returns the number of documents in a collection.
	Count(ctx context.Context, collection string) (int64, error)
}
