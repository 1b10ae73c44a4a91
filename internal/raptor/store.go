package raptor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/philippgille/chromem-go"
)

const persistSchemaVersion = 1

// persistedState is the on-disk shape of a Store snapshot (spec §4.6
// Persisted state). Embeddings are stored as plain float arrays; the
// format is private to this module and rejected on a schema mismatch.
type persistedState struct {
	SchemaVersion     int                  `json:"schema_version"`
	ChunkMap          map[string]Chunk     `json:"chunk_map"`
	ChunkEmbeddings   map[string][]float32 `json:"chunk_embeddings"`
	Nodes             map[string]TreeNode  `json:"nodes"`
	RootID            string               `json:"root_id"`
	IndexedFiles      map[string]int64     `json:"indexed_files"`
	IndexingComplete  bool                 `json:"indexing_complete"`
}

// Store holds the RAPTOR index: the flat chunk map, the tree built over
// it, and a chromem-go vector index used for cosine-similarity retrieval
// across both leaf chunks and summary nodes.
type Store struct {
	mu sync.RWMutex

	chunkMap        map[string]Chunk
	chunkEmbeddings map[string][]float32
	nodes           map[string]TreeNode
	rootID          string
	indexedFiles    map[string]int64 // path -> mtime unix

	indexingComplete bool
	fullIndexReady   bool

	collectionName string
	collection     *chromem.Collection
}

// NewStore creates an empty Store backed by an in-memory chromem-go
// collection named collection.
func NewStore(collection string) (*Store, error) {
	db := chromem.NewDB()
	coll, err := db.GetOrCreateCollection(collection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create vector collection: %w", err)
	}
	return &Store{
		chunkMap:        make(map[string]Chunk),
		chunkEmbeddings: make(map[string][]float32),
		nodes:           make(map[string]TreeNode),
		indexedFiles:    make(map[string]int64),
		collectionName:  collection,
		collection:      coll,
	}, nil
}

// IndexingComplete reports whether the quick index has populated chunk_map.
func (s *Store) IndexingComplete() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexingComplete
}

// FullIndexReady reports whether the embedded/clustered tree has finished
// building.
func (s *Store) FullIndexReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fullIndexReady
}

// PutChunks installs chunk-level entries into chunk_map and marks quick
// indexing complete. It does not touch the vector collection; embeddings
// are added separately once computed.
func (s *Store) PutChunks(chunks []Chunk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chunks {
		s.chunkMap[c.ID] = c
	}
	s.indexingComplete = true
}

// RemoveFile drops every chunk attributed to path from chunk_map and the
// vector collection, and removes path from indexed_files.
func (s *Store) RemoveFile(ctx context.Context, path string) error {
	s.mu.Lock()
	var toDelete []string
	for id, c := range s.chunkMap {
		if c.SourceFile == path {
			toDelete = append(toDelete, id)
			delete(s.chunkMap, id)
			delete(s.chunkEmbeddings, id)
		}
	}
	delete(s.indexedFiles, path)
	s.mu.Unlock()

	if len(toDelete) == 0 {
		return nil
	}
	return s.collection.Delete(ctx, nil, nil, toDelete...)
}

// IndexEmbeddings stores chunk-level embeddings in the vector collection
// and records path mtimes in indexed_files.
func (s *Store) IndexEmbeddings(ctx context.Context, chunks []Chunk, embeddings [][]float32, fileMtimes map[string]int64) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("chunk/embedding count mismatch: %d vs %d", len(chunks), len(embeddings))
	}

	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = chromem.Document{
			ID:        c.ID,
			Embedding: embeddings[i],
			Content:   c.Text,
			Metadata: map[string]string{
				"source_file": c.SourceFile,
				"start_byte":  fmt.Sprintf("%d", c.StartByte),
				"end_byte":    fmt.Sprintf("%d", c.EndByte),
				"language":    c.Language,
				"kind":        "chunk",
				"level":       "0",
			},
		}
	}
	if err := s.collection.AddDocuments(ctx, docs, 4); err != nil {
		return fmt.Errorf("index chunk embeddings: %w", err)
	}

	s.mu.Lock()
	for i, c := range chunks {
		s.chunkEmbeddings[c.ID] = embeddings[i]
	}
	for path, mtime := range fileMtimes {
		s.indexedFiles[path] = mtime
	}
	s.mu.Unlock()
	return nil
}

// IndexTree replaces the summary-node levels of the tree with nodes and
// sets rootID, then publishes full-index-ready (spec §4.6 step 6). Nodes
// above level 0 are also added to the vector collection so retrieval can
// surface summaries.
func (s *Store) IndexTree(ctx context.Context, nodes []TreeNode, rootID string) error {
	docs := make([]chromem.Document, 0, len(nodes))
	s.mu.Lock()
	for _, n := range nodes {
		s.nodes[n.ID] = n
		if n.Level == 0 {
			continue
		}
		docs = append(docs, chromem.Document{
			ID:        n.ID,
			Embedding: n.Embedding,
			Content:   n.Text,
			Metadata: map[string]string{
				"kind":  "summary",
				"level": fmt.Sprintf("%d", n.Level),
			},
		})
	}
	s.rootID = rootID
	s.mu.Unlock()

	if len(docs) == 0 {
		s.mu.Lock()
		s.fullIndexReady = true
		s.mu.Unlock()
		return nil
	}
	if err := s.collection.AddDocuments(ctx, docs, 4); err != nil {
		return fmt.Errorf("index tree summaries: %w", err)
	}
	s.mu.Lock()
	s.fullIndexReady = true
	s.mu.Unlock()
	return nil
}

// Reset clears the entire index: chunk_map, nodes, root id, indexed files,
// and the vector collection (spec §4.9 rebuild_raptor).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	name := s.collectionName
	s.chunkMap = make(map[string]Chunk)
	s.chunkEmbeddings = make(map[string][]float32)
	s.nodes = make(map[string]TreeNode)
	s.rootID = ""
	s.indexedFiles = make(map[string]int64)
	s.indexingComplete = false
	s.fullIndexReady = false
	s.mu.Unlock()

	db := chromem.NewDB()
	coll, err := db.GetOrCreateCollection(name, nil, nil)
	if err != nil {
		return fmt.Errorf("reset vector collection: %w", err)
	}
	s.mu.Lock()
	s.collection = coll
	s.mu.Unlock()
	return nil
}

// QueryEmbedding runs a similarity search over chunk and summary nodes
// using a precomputed query embedding, returning up to limit results.
func (s *Store) QueryEmbedding(ctx context.Context, queryEmbedding []float32, limit int) ([]chromem.Result, error) {
	s.mu.RLock()
	coll := s.collection
	s.mu.RUnlock()

	count := coll.Count()
	if count == 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}
	return coll.QueryEmbedding(ctx, queryEmbedding, limit, nil, nil)
}

// ChunkMapSnapshot returns a shallow copy of the current chunk map, for
// keyword-fallback search and for the coverage invariant check.
func (s *Store) ChunkMapSnapshot() map[string]Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Chunk, len(s.chunkMap))
	for k, v := range s.chunkMap {
		out[k] = v
	}
	return out
}

// NodesSnapshot returns a shallow copy of the current tree nodes.
func (s *Store) NodesSnapshot() map[string]TreeNode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]TreeNode, len(s.nodes))
	for k, v := range s.nodes {
		out[k] = v
	}
	return out
}

// RootID returns the current tree root id, or "" if no tree has been
// built yet.
func (s *Store) RootID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rootID
}

// IndexedFilesSnapshot returns a shallow copy of path->mtime-unix.
func (s *Store) IndexedFilesSnapshot() map[string]int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int64, len(s.indexedFiles))
	for k, v := range s.indexedFiles {
		out[k] = v
	}
	return out
}

// SaveToDisk writes a JSON snapshot of the store to path, creating parent
// directories as needed.
func (s *Store) SaveToDisk(path string) error {
	s.mu.RLock()
	state := persistedState{
		SchemaVersion:    persistSchemaVersion,
		ChunkMap:         s.chunkMap,
		ChunkEmbeddings:  s.chunkEmbeddings,
		Nodes:            s.nodes,
		RootID:           s.rootID,
		IndexedFiles:     s.indexedFiles,
		IndexingComplete: s.indexingComplete,
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal raptor store: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create raptor persist dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadFromDisk restores chunk_map, chunk_embeddings, nodes, root id, and
// indexed_files from a snapshot written by SaveToDisk. The vector
// collection itself is rebuilt separately by RehydrateVectors, since it is
// not part of the JSON snapshot.
func (s *Store) LoadFromDisk(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read raptor store: %w", err)
	}

	var state persistedState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("unmarshal raptor store: %w", err)
	}
	if state.SchemaVersion != persistSchemaVersion {
		return fmt.Errorf("raptor store schema version %d unsupported (expected %d)", state.SchemaVersion, persistSchemaVersion)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if state.ChunkMap != nil {
		s.chunkMap = state.ChunkMap
	}
	if state.ChunkEmbeddings != nil {
		s.chunkEmbeddings = state.ChunkEmbeddings
	}
	if state.Nodes != nil {
		s.nodes = state.Nodes
	}
	if state.IndexedFiles != nil {
		s.indexedFiles = state.IndexedFiles
	}
	s.rootID = state.RootID
	s.indexingComplete = state.IndexingComplete
	return nil
}

// RehydrateVectors re-adds every chunk and summary node's embedding to the
// (freshly constructed) vector collection after LoadFromDisk. Call this
// once after LoadFromDisk so QueryEmbedding works without a full rebuild.
func (s *Store) RehydrateVectors(ctx context.Context) error {
	s.mu.RLock()
	var docs []chromem.Document
	for id, emb := range s.chunkEmbeddings {
		c, ok := s.chunkMap[id]
		if !ok || len(emb) == 0 {
			continue
		}
		docs = append(docs, chromem.Document{
			ID:        id,
			Embedding: emb,
			Content:   c.Text,
			Metadata: map[string]string{
				"source_file": c.SourceFile,
				"start_byte":  fmt.Sprintf("%d", c.StartByte),
				"end_byte":    fmt.Sprintf("%d", c.EndByte),
				"language":    c.Language,
				"kind":        "chunk",
				"level":       "0",
			},
		})
	}
	for _, n := range s.nodes {
		if n.Level == 0 || len(n.Embedding) == 0 {
			continue
		}
		docs = append(docs, chromem.Document{
			ID:        n.ID,
			Embedding: n.Embedding,
			Content:   n.Text,
			Metadata:  map[string]string{"kind": "summary", "level": fmt.Sprintf("%d", n.Level)},
		})
	}
	fullIndexReady := s.rootID != ""
	s.mu.RUnlock()

	if len(docs) == 0 {
		return nil
	}
	if err := s.collection.AddDocuments(ctx, docs, 4); err != nil {
		return fmt.Errorf("rehydrate vector collection: %w", err)
	}
	s.mu.Lock()
	s.fullIndexReady = fullIndexReady
	s.mu.Unlock()
	return nil
}
