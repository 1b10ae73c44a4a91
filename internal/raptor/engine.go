package raptor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"neuro/internal/progress"

	"github.com/google/uuid"
)

// EngineConfig bounds the build pipeline (spec §4.6).
type EngineConfig struct {
	ChunkMaxChars   int
	ChunkOverlap    int
	MaxClusterSize  int
	MaxTreeDepth    int
	MinSimilarity   float64
	QuickIndexFiles int
}

// DefaultEngineConfig mirrors the spec's stated defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		ChunkMaxChars:   2000,
		ChunkOverlap:    200,
		MaxClusterSize:  10,
		MaxTreeDepth:    4,
		MinSimilarity:   0.6,
		QuickIndexFiles: 200,
	}
}

// Engine owns the RAPTOR index lifecycle for a single project root: the
// quick (chunk-only) index, the background full (embedded + clustered)
// build, retrieval, and incremental updates.
type Engine struct {
	root    string
	config  EngineConfig
	tracker *FileTracker
	embed   Embedder
	summ    Summarizer
	store   *Store
	bus     *progress.Bus

	mu       sync.Mutex
	snapshot map[string]time.Time

	building atomic.Bool
}

// NewEngine constructs an Engine over root, backed by embed for vectors
// and summ for tree-level summarization. bus may be nil.
func NewEngine(root string, config EngineConfig, embed Embedder, summ Summarizer, store *Store, bus *progress.Bus) *Engine {
	return &Engine{
		root:    root,
		config:  config,
		tracker: NewFileTracker(root),
		embed:   embed,
		summ:    summ,
		store:   store,
		bus:     bus,
	}
}

// Store returns the underlying index store.
func (e *Engine) Store() *Store { return e.store }

// InitializeRaptor runs the quick index synchronously and spawns the full
// build as a background goroutine (spec §4.9 lifecycle). A zero-chunk
// quick index outcome is a soft failure: it disables enrichment but does
// not return an error.
func (e *Engine) InitializeRaptor(ctx context.Context) error {
	e.emitRaptorStatus(ctx, "indexing")
	chunks, snapshot, err := e.quickIndex(ctx)
	if err != nil {
		e.emitRaptorStatus(ctx, fmt.Sprintf("quick index failed: %v", err))
		return nil
	}

	e.mu.Lock()
	e.snapshot = snapshot
	e.mu.Unlock()

	if len(chunks) == 0 {
		e.emitRaptorStatus(ctx, "quick index found no source files")
		return nil
	}

	go e.buildFull(context.WithoutCancel(ctx), chunks)
	return nil
}

// RebuildRaptor clears the index store and re-enters the build
// synchronously (spec §4.9 rebuild_raptor).
func (e *Engine) RebuildRaptor(ctx context.Context) error {
	if err := e.store.Reset(ctx); err != nil {
		return err
	}
	e.mu.Lock()
	e.snapshot = nil
	e.mu.Unlock()

	chunks, snapshot, err := e.quickIndex(ctx)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.snapshot = snapshot
	e.mu.Unlock()

	e.buildFull(ctx, chunks)
	return nil
}

// quickIndex walks the project, chunks every recognized file, and installs
// the result into chunk_map without computing embeddings (spec §4.6 step
// 3).
func (e *Engine) quickIndex(ctx context.Context) ([]Chunk, map[string]time.Time, error) {
	snapshot, err := e.tracker.Snapshot()
	if err != nil {
		return nil, nil, fmt.Errorf("walk project root: %w", err)
	}

	var allChunks []Chunk
	for path := range snapshot {
		lang, _ := LanguageForPath(path)
		content, err := readFileCapped(path, maxReadBytes)
		if err != nil {
			continue
		}
		allChunks = append(allChunks, ChunkText(path, lang, content, e.config.ChunkMaxChars, e.config.ChunkOverlap)...)
	}

	e.store.PutChunks(allChunks)
	return allChunks, snapshot, nil
}

// buildFull computes embeddings for chunks and recursively clusters and
// summarizes them into a tree (spec §4.6 steps 4-6).
func (e *Engine) buildFull(ctx context.Context, chunks []Chunk) {
	if !e.building.CompareAndSwap(false, true) {
		return
	}
	defer e.building.Store(false)

	if len(chunks) == 0 {
		e.emitRaptorComplete(ctx)
		return
	}

	e.emitRaptorProgress(ctx, "embedding", 0, len(chunks), "")
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	embeddings, err := e.embed.Embed(ctx, texts)
	if err != nil {
		e.emitRaptorStatus(ctx, fmt.Sprintf("embedding failed: %v", err))
		return
	}

	fileMtimes := make(map[string]int64)
	e.mu.Lock()
	for path, mtime := range e.snapshot {
		fileMtimes[path] = mtime.Unix()
	}
	e.mu.Unlock()

	if err := e.store.IndexEmbeddings(ctx, chunks, embeddings, fileMtimes); err != nil {
		e.emitRaptorStatus(ctx, fmt.Sprintf("indexing failed: %v", err))
		return
	}
	e.emitRaptorProgress(ctx, "embedding", len(chunks), len(chunks), "")

	level := make([]TreeNode, len(chunks))
	for i, c := range chunks {
		level[i] = TreeNode{ID: c.ID, Level: 0, Text: c.Text, Embedding: embeddings[i]}
	}

	var allLevels []TreeNode
	allLevels = append(allLevels, level...)

	for depth := 1; depth <= e.config.MaxTreeDepth && len(level) > 1; depth++ {
		e.emitRaptorProgress(ctx, "clustering", depth, e.config.MaxTreeDepth, fmt.Sprintf("%d nodes", len(level)))

		branchingCap := len(level) / 2
		if branchingCap < 1 {
			branchingCap = 1
		}
		next, err := BuildLevel(ctx, level, branchingCap, e.config.MinSimilarity, e.summ, func() string { return uuid.NewString() })
		if err != nil {
			e.emitRaptorStatus(ctx, fmt.Sprintf("clustering failed at depth %d: %v", depth, err))
			return
		}
		if len(next) == 0 || len(next) == len(level) {
			break
		}

		summaryTexts := make([]string, 0, len(next))
		summaryIdx := make([]int, 0, len(next))
		for i, n := range next {
			if n.Level == level[0].Level+1 && n.Embedding == nil {
				summaryTexts = append(summaryTexts, n.Text)
				summaryIdx = append(summaryIdx, i)
			}
		}
		if len(summaryTexts) > 0 {
			summaryEmbeddings, err := e.embed.Embed(ctx, summaryTexts)
			if err != nil {
				e.emitRaptorStatus(ctx, fmt.Sprintf("summary embedding failed: %v", err))
				return
			}
			for i, idx := range summaryIdx {
				next[idx].Embedding = summaryEmbeddings[i]
			}
		}

		allLevels = append(allLevels, next...)
		level = next
	}

	var rootID string
	if len(level) == 1 {
		rootID = level[0].ID
	} else if len(level) > 1 {
		// Level cap reached before convergence: synthesize a final root
		// over whatever nodes remain.
		rootNode, err := e.synthesizeRoot(ctx, level)
		if err == nil {
			allLevels = append(allLevels, rootNode)
			rootID = rootNode.ID
		}
	}

	if err := e.store.IndexTree(ctx, allLevels, rootID); err != nil {
		e.emitRaptorStatus(ctx, fmt.Sprintf("tree indexing failed: %v", err))
		return
	}
	e.emitRaptorComplete(ctx)
}

func (e *Engine) synthesizeRoot(ctx context.Context, level []TreeNode) (TreeNode, error) {
	texts := make([]string, len(level))
	embeddings := make([][]float32, len(level))
	childIDs := make([]string, len(level))
	for i, n := range level {
		texts[i] = n.Text
		embeddings[i] = n.Embedding
		childIDs[i] = n.ID
	}
	summary, err := e.summ.Summarize(ctx, texts)
	if err != nil {
		return TreeNode{}, err
	}
	rootEmbeddings, err := e.embed.Embed(ctx, []string{summary})
	if err != nil {
		return TreeNode{}, err
	}
	return TreeNode{
		ID:        uuid.NewString(),
		Level:     level[0].Level + 1,
		Children:  childIDs,
		Text:      summary,
		Embedding: rootEmbeddings[0],
	}, nil
}

// Retrieve answers retrieve(query, limit) (spec §4.6 Retrieval). When
// embeddings are unavailable it falls back to substring keyword matching
// over chunk_map.
func (e *Engine) Retrieve(ctx context.Context, query string, limit int) (string, error) {
	if limit <= 0 {
		limit = 5
	}

	if !e.store.FullIndexReady() {
		return e.keywordFallback(query, limit), nil
	}

	queryEmbeddings, err := e.embed.Embed(ctx, []string{query})
	if err != nil || len(queryEmbeddings) == 0 {
		return e.keywordFallback(query, limit), nil
	}

	results, err := e.store.QueryEmbedding(ctx, queryEmbeddings[0], limit*2)
	if err != nil || len(results) == 0 {
		return e.keywordFallback(query, limit), nil
	}

	seen := make(map[string]bool)
	var sb strings.Builder
	count := 0
	for _, r := range results {
		if count >= limit {
			break
		}
		spanKey := r.Metadata["source_file"] + ":" + r.Metadata["start_byte"] + "-" + r.Metadata["end_byte"]
		if r.Metadata["kind"] == "summary" {
			spanKey = "summary:" + r.ID
		}
		if seen[spanKey] {
			continue
		}
		seen[spanKey] = true
		count++

		if count > 1 {
			sb.WriteString("---\n")
		}
		if r.Metadata["kind"] == "summary" {
			fmt.Fprintf(&sb, "[summary]\n%s\n", r.Content)
		} else {
			fmt.Fprintf(&sb, "%s:%s-%s\n%s\n", r.Metadata["source_file"], r.Metadata["start_byte"], r.Metadata["end_byte"], r.Content)
		}
	}
	return sb.String(), nil
}

func (e *Engine) keywordFallback(query string, limit int) string {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return ""
	}
	chunkMap := e.store.ChunkMapSnapshot()

	var sb strings.Builder
	count := 0
	for _, c := range chunkMap {
		if count >= limit {
			break
		}
		if strings.Contains(strings.ToLower(c.Text), needle) {
			if count > 0 {
				sb.WriteString("---\n")
			}
			fmt.Fprintf(&sb, "%s:%d-%d\n%s\n", c.SourceFile, c.StartByte, c.EndByte, c.Text)
			count++
		}
	}
	return sb.String()
}

// UpdateIfNeeded snapshots the file tracker, diffs against the previously
// stored snapshot, removes deleted files' chunks, re-chunks modified
// files, and triggers a focused rebuild bounded by project size (spec
// §4.6 Incremental update). It installs the new snapshot on completion.
func (e *Engine) UpdateIfNeeded(ctx context.Context) (modified, deleted []string, err error) {
	newSnapshot, err := e.tracker.Snapshot()
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot project root: %w", err)
	}

	e.mu.Lock()
	oldSnapshot := e.snapshot
	e.mu.Unlock()

	modified, deleted = Diff(oldSnapshot, newSnapshot)
	if len(modified) == 0 && len(deleted) == 0 {
		return nil, nil, nil
	}

	for _, path := range deleted {
		if err := e.store.RemoveFile(ctx, path); err != nil {
			return modified, deleted, fmt.Errorf("remove %s: %w", path, err)
		}
	}

	var rechunked []Chunk
	for _, path := range modified {
		lang, ok := LanguageForPath(path)
		if !ok {
			continue
		}
		content, err := readFileCapped(path, maxReadBytes)
		if err != nil {
			continue
		}
		if err := e.store.RemoveFile(ctx, path); err != nil {
			return modified, deleted, fmt.Errorf("remove stale chunks for %s: %w", path, err)
		}
		rechunked = append(rechunked, ChunkText(path, lang, content, e.config.ChunkMaxChars, e.config.ChunkOverlap)...)
	}

	e.store.PutChunks(rechunked)
	e.mu.Lock()
	e.snapshot = newSnapshot
	e.mu.Unlock()

	if len(rechunked) > 0 {
		allChunks := make([]Chunk, 0, len(e.store.ChunkMapSnapshot()))
		for _, c := range e.store.ChunkMapSnapshot() {
			allChunks = append(allChunks, c)
		}
		go e.buildFull(context.WithoutCancel(ctx), allChunks)
	}
	return modified, deleted, nil
}

func (e *Engine) emitRaptorStatus(ctx context.Context, text string) {
	if e.bus != nil {
		e.bus.RaptorStatus(ctx, text)
	}
}

func (e *Engine) emitRaptorProgress(ctx context.Context, stage string, current, total int, detail string) {
	if e.bus != nil {
		e.bus.RaptorProgress(ctx, stage, current, total, detail)
	}
}

func (e *Engine) emitRaptorComplete(ctx context.Context) {
	if e.bus != nil {
		e.bus.RaptorComplete(ctx)
	}
}
