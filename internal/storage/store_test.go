package storage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"elliptigraph-backend/internal/storage"
)

func TestTransactionID(t *testing.T) {
	assert.Equal(t, "transactions/230425980", storage.TransactionID("230425980"))
}

func TestNewEdgeDoc(t *testing.T) {
	edge := storage.NewEdgeDoc("tx1", "tx2")
	assert.Equal(t, "transactions/tx1", edge.From)
	assert.Equal(t, "transactions/tx2", edge.To)
}
