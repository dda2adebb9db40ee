package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCollectorIsSingleton(t *testing.T) {
	first := NewCollector("elliptigraph")
	second := NewCollector("ignored_namespace")

	// The second namespace is intentionally dropped; the first collector
	// keeps serving the whole process.
	assert.Same(t, first, second)
	assert.Same(t, first.Registry(), second.Registry())
}

func TestObserveRecordsMetrics(t *testing.T) {
	c := NewCollector("elliptigraph")

	c.ObserveHTTP("GET", "/api/overview", "200", 5*time.Millisecond)
	c.ObserveQuery("simple", "count_by_class", 3*time.Millisecond, nil)
	c.ObserveQuery("simple", "count_by_class", 3*time.Millisecond, assert.AnError)

	families, err := c.Registry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["elliptigraph_http_requests_total"])
	assert.True(t, names["elliptigraph_query_executions_total"])
}
