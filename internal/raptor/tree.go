package raptor

import (
	"context"
	"fmt"
	"strings"

	"neuro/internal/llmprovider"
)

// TreeNode is a node in the RAPTOR tree (spec §4.6). Level 0 nodes are raw
// chunks; nodes above level 0 hold an LLM-synthesized summary of their
// children's text.
type TreeNode struct {
	ID        string    `json:"id"`
	Level     int       `json:"level"`
	Children  []string  `json:"children,omitempty"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
}

// Summarizer produces a textual summary of concatenated member texts.
type Summarizer interface {
	Summarize(ctx context.Context, memberTexts []string) (string, error)
}

// heavyModelSummarizer prompts the heavy model to synthesize a cluster
// summary, matching call_heavy_model_direct's "never uses tools" contract
// (spec §4.8).
type heavyModelSummarizer struct {
	heavy llmprovider.Client
}

// NewHeavyModelSummarizer returns a Summarizer backed by heavy.
func NewHeavyModelSummarizer(heavy llmprovider.Client) Summarizer {
	return &heavyModelSummarizer{heavy: heavy}
}

func (s *heavyModelSummarizer) Summarize(ctx context.Context, memberTexts []string) (string, error) {
	var sb strings.Builder
	for i, text := range memberTexts {
		fmt.Fprintf(&sb, "--- excerpt %d ---\n%s\n", i+1, text)
	}

	resp, err := s.heavy.Complete(ctx, llmprovider.Request{
		Messages: []llmprovider.Message{
			{Role: "system", Content: "Summarize the following related code/documentation excerpts into a concise paragraph that preserves the key identifiers, responsibilities, and relationships a developer would need to locate the right excerpt later."},
			{Role: "user", Content: sb.String()},
		},
		Temperature: 0.2,
		MaxTokens:   512,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}

// BuildLevel clusters the given leaf/summary nodes by embedding similarity,
// summarizes each cluster, and returns the next tree level (spec §4.6 step
// 5). branchingCap bounds how many clusters survive this pass; threshold is
// the minimum cosine similarity for a merge to proceed. newID is called
// once per produced node to mint its ID.
func BuildLevel(ctx context.Context, nodes []TreeNode, branchingCap int, threshold float64, summarizer Summarizer, newID func() string) ([]TreeNode, error) {
	if len(nodes) == 0 {
		return nil, nil
	}

	embeddings := make([][]float32, len(nodes))
	for i, n := range nodes {
		embeddings[i] = n.Embedding
	}
	clusters := AgglomerativeCluster(embeddings, branchingCap, threshold)

	level := nodes[0].Level + 1
	next := make([]TreeNode, 0, len(clusters))
	for _, members := range clusters {
		if len(members) == 1 {
			// Singleton clusters pass through unchanged rather than being
			// re-wrapped in a trivial parent; this keeps the tree from
			// growing a chain of one-child levels for isolated chunks.
			n := nodes[members[0]]
			n.Level = level
			next = append(next, n)
			continue
		}

		texts := make([]string, len(members))
		childIDs := make([]string, len(members))
		for i, idx := range members {
			texts[i] = nodes[idx].Text
			childIDs[i] = nodes[idx].ID
		}

		summary, err := summarizer.Summarize(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("summarize cluster at level %d: %w", level, err)
		}

		next = append(next, TreeNode{
			ID:       newID(),
			Level:    level,
			Children: childIDs,
			Text:     summary,
			// Embedding is left nil and filled by the caller once the
			// summary text has been embedded; see Engine.buildFull.
		})
	}
	return next, nil
}
