package classifycache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetExactHit(t *testing.T) {
	c := New(10, 0.85)
	c.Put("List the files", Decision{Route: "tool_execution"})

	decision, ok := c.Get("  list   the files  ")
	require.True(t, ok)
	assert.Equal(t, "tool_execution", decision.Route)
}

func TestGetFuzzyHitAboveThreshold(t *testing.T) {
	c := New(10, 0.6)
	c.Put("refactor the auth module for clarity", Decision{Route: "full_pipeline"})

	decision, ok := c.Get("refactor the auth module for readability")
	require.True(t, ok)
	assert.Equal(t, "full_pipeline", decision.Route)
}

func TestGetMissBelowThreshold(t *testing.T) {
	c := New(10, 0.85)
	c.Put("list the files", Decision{Route: "tool_execution"})

	_, ok := c.Get("write a function that sorts a list")
	assert.False(t, ok)
}

func TestEvictionIsStrictLRU(t *testing.T) {
	c := New(2, 0.99)
	c.Put("first query", Decision{Route: "a"})
	c.Put("second query", Decision{Route: "b"})
	c.Put("third query", Decision{Route: "c"})

	_, ok := c.Get("first query")
	assert.False(t, ok, "oldest entry should have been evicted")

	_, ok = c.Get("third query")
	assert.True(t, ok)
}

func TestJaccardEmptySetsAreSimilar(t *testing.T) {
	assert.Equal(t, 1.0, jaccard(map[string]struct{}{}, map[string]struct{}{}))
}
