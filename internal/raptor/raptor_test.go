package raptor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkTextProducesOverlappingWindows(t *testing.T) {
	content := ""
	for i := 0; i < 50; i++ {
		content += "0123456789"
	}
	chunks := ChunkText("main.go", "go", content, 100, 20)
	require.NotEmpty(t, chunks)

	for i := 1; i < len(chunks); i++ {
		assert.Equal(t, chunks[i-1].EndByte-20, chunks[i].StartByte)
	}
	assert.Equal(t, len(content), chunks[len(chunks)-1].EndByte)
}

func TestChunkTextEmptyContentProducesNoChunks(t *testing.T) {
	assert.Empty(t, ChunkText("empty.go", "go", "", 100, 20))
}

func TestChunkIDIsStableForIdenticalInput(t *testing.T) {
	a := ChunkID("main.go", 0, 10, "package main")
	b := ChunkID("main.go", 0, 10, "package main")
	assert.Equal(t, a, b)
}

func TestLanguageForPathRecognizesKnownExtensions(t *testing.T) {
	lang, ok := LanguageForPath("internal/foo/bar.go")
	require.True(t, ok)
	assert.Equal(t, "go", lang)

	_, ok = LanguageForPath("image.png")
	assert.False(t, ok)
}

func TestCosineSimilarityIdenticalVectorsIsOne(t *testing.T) {
	v := []float32{1, 2, 3}
	assert.InDelta(t, 1.0, CosineSimilarity(v, v), 1e-9)
}

func TestCosineSimilarityOrthogonalVectorsIsZero(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	assert.InDelta(t, 0.0, CosineSimilarity(a, b), 1e-9)
}

func TestAgglomerativeClusterMergesSimilarVectors(t *testing.T) {
	embeddings := [][]float32{
		{1, 0, 0},
		{0.99, 0.01, 0},
		{0, 1, 0},
		{0, 0.98, 0.02},
	}
	clusters := AgglomerativeCluster(embeddings, 2, 0.8)
	assert.Len(t, clusters, 2)

	total := 0
	for _, c := range clusters {
		total += len(c)
	}
	assert.Equal(t, len(embeddings), total)
}

func TestAgglomerativeClusterStopsAtThreshold(t *testing.T) {
	embeddings := [][]float32{
		{1, 0},
		{0, 1},
	}
	clusters := AgglomerativeCluster(embeddings, 1, 0.99)
	assert.Len(t, clusters, 2)
}

func TestAgglomerativeClusterSingleEmbedding(t *testing.T) {
	clusters := AgglomerativeCluster([][]float32{{1, 2, 3}}, 1, 0.6)
	require.Len(t, clusters, 1)
	assert.Equal(t, []int{0}, clusters[0])
}

func TestFileTrackerSnapshotSkipsIgnoredDirsAndExtensions(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "image.png"), []byte("binary"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "node_modules"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "node_modules", "lib.go"), []byte("package lib"), 0o644))

	tracker := NewFileTracker(dir)
	snapshot, err := tracker.Snapshot()
	require.NoError(t, err)

	assert.Contains(t, snapshot, filepath.Join(dir, "main.go"))
	assert.NotContains(t, snapshot, filepath.Join(dir, "image.png"))
	assert.NotContains(t, snapshot, filepath.Join(dir, "node_modules", "lib.go"))
}

func TestDiffDetectsModifiedAndDeleted(t *testing.T) {
	now := time.Now()
	previous := map[string]time.Time{
		"a.go": now,
		"c.go": now,
	}
	snapshot := map[string]time.Time{
		"a.go": now.Add(time.Hour),
		"b.go": now,
	}

	modified, deleted := Diff(previous, snapshot)
	assert.ElementsMatch(t, []string{"a.go", "b.go"}, modified)
	assert.ElementsMatch(t, []string{"c.go"}, deleted)
}

type fakeEmbedder struct {
	calls int
	dim   int
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text))}
	}
	return out, nil
}

func TestCachedEmbedderAvoidsReEmbeddingSeenText(t *testing.T) {
	inner := &fakeEmbedder{}
	cached := NewCachedEmbedder(inner, 16)

	first, err := cached.Embed(context.Background(), []string{"hello", "world"})
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, 1, inner.calls)

	second, err := cached.Embed(context.Background(), []string{"hello", "new"})
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, first[0], second[0])
}

func TestStoreSaveAndLoadRoundTrip(t *testing.T) {
	store, err := NewStore("test")
	require.NoError(t, err)

	chunks := []Chunk{{ID: "c1", SourceFile: "a.go", StartByte: 0, EndByte: 10, Text: "package a", Language: "go"}}
	store.PutChunks(chunks)
	require.NoError(t, store.IndexEmbeddings(context.Background(), chunks, [][]float32{{1, 2, 3}}, map[string]int64{"a.go": 100}))

	path := filepath.Join(t.TempDir(), "raptor.json")
	require.NoError(t, store.SaveToDisk(path))

	reloaded, err := NewStore("test")
	require.NoError(t, err)
	require.NoError(t, reloaded.LoadFromDisk(path))

	snapshot := reloaded.ChunkMapSnapshot()
	require.Contains(t, snapshot, "c1")
	assert.Equal(t, "package a", snapshot["c1"].Text)
	assert.True(t, reloaded.IndexingComplete())
}

func TestStoreQueryEmbeddingReturnsNilWhenEmpty(t *testing.T) {
	store, err := NewStore("empty")
	require.NoError(t, err)
	results, err := store.QueryEmbedding(context.Background(), []float32{1, 2, 3}, 5)
	require.NoError(t, err)
	assert.Nil(t, results)
}
