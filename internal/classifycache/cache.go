// Package classifycache implements the LRU + fuzzy-match cache in front of
// the LLM-based route classifier, so repeated or near-duplicate queries
// never need a round trip to the model.
package classifycache

import (
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCapacity is the cache size used when none is configured.
const DefaultCapacity = 100

// DefaultSimilarityThreshold is the minimum Jaccard similarity for a fuzzy
// hit to be accepted.
const DefaultSimilarityThreshold = 0.85

// Decision is the cached classification outcome for a query.
type Decision struct {
	Route      string
	Confidence float64
	NeedsRAG   bool
	Mode       string
}

// Cache is an LRU keyed on normalized query text, with a fallback scan over
// token sets for near-duplicate queries.
type Cache struct {
	mu         sync.Mutex
	lru        *lru.Cache[string, Decision]
	threshold  float64
	tokenSets  map[string]map[string]struct{}
	insertions []string // not populated; token-set pruning walks lru.Keys() instead
}

// New builds a Cache with the given capacity and similarity threshold. A
// capacity or threshold ≤ 0 falls back to the package defaults.
func New(capacity int, threshold float64) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	backing, _ := lru.New[string, Decision](capacity)
	return &Cache{
		lru:       backing,
		threshold: threshold,
		tokenSets: make(map[string]map[string]struct{}, capacity),
	}
}

// Normalize lowercases, trims, and collapses internal whitespace — the
// canonical key form used for both exact and fuzzy lookups.
func Normalize(query string) string {
	fields := strings.Fields(strings.ToLower(query))
	return strings.Join(fields, " ")
}

// Get looks up query, first by exact normalized key, then by Jaccard
// similarity over whitespace-token sets. It returns the matched decision
// and true on a hit.
func (c *Cache) Get(query string) (Decision, bool) {
	key := Normalize(query)

	c.mu.Lock()
	defer c.mu.Unlock()

	if decision, ok := c.lru.Get(key); ok {
		return decision, true
	}

	queryTokens := tokenSet(key)
	bestScore := 0.0
	bestKey := ""
	for candidateKey, candidateTokens := range c.tokenSets {
		score := jaccard(queryTokens, candidateTokens)
		if score > bestScore {
			bestScore = score
			bestKey = candidateKey
		}
	}
	if bestKey != "" && bestScore >= c.threshold {
		if decision, ok := c.lru.Get(bestKey); ok {
			return decision, true
		}
	}
	return Decision{}, false
}

// Put inserts or overwrites the decision for query under its normalized
// key, evicting the least-recently-used entry if the cache is at capacity.
func (c *Cache) Put(query string, decision Decision) {
	key := Normalize(query)

	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := c.lru.Add(key, decision)
	c.tokenSets[key] = tokenSet(key)
	if evicted {
		c.pruneTokenSets()
	}
}

// pruneTokenSets drops token-set entries for keys no longer present in the
// LRU, keeping the fuzzy-scan index in sync with actual cache contents.
func (c *Cache) pruneTokenSets() {
	live := c.lru.Keys()
	liveSet := make(map[string]struct{}, len(live))
	for _, k := range live {
		liveSet[k] = struct{}{}
	}
	for k := range c.tokenSets {
		if _, ok := liveSet[k]; !ok {
			delete(c.tokenSets, k)
		}
	}
}

// Len returns the number of entries currently cached.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func tokenSet(normalized string) map[string]struct{} {
	tokens := strings.Fields(normalized)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// jaccard computes |a∩b| / |a∪b|. Two empty sets are defined as perfectly
// similar; an empty union (impossible unless both are empty) is zero.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	intersection := 0
	for t := range a {
		if _, ok := b[t]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}
