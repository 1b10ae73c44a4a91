package raptor

import "math"

// CosineSimilarity returns the cosine similarity of a and b, or 0 when
// either vector is empty, mismatched in length, or zero-norm.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Centroid returns the element-wise mean of vectors. Returns nil for an
// empty input.
func Centroid(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	dim := len(vectors[0])
	sum := make([]float64, dim)
	for _, v := range vectors {
		for i := 0; i < dim && i < len(v); i++ {
			sum[i] += float64(v[i])
		}
	}
	centroid := make([]float32, dim)
	for i, s := range sum {
		centroid[i] = float32(s / float64(len(vectors)))
	}
	return centroid
}

// clusterNode is a working cluster during agglomerative merging: a set of
// member indices into the caller's embedding slice, plus a cached
// centroid.
type clusterNode struct {
	members  []int
	centroid []float32
}

// AgglomerativeCluster groups embeddings by the cosine similarity of
// cluster centroids, repeatedly merging the most similar pair of clusters until
// either the cluster count falls to branchingCap or the best remaining
// pair's similarity drops below threshold (spec §4.6 step 5a). It returns
// the member indices of each resulting cluster.
//
// A single embedding is always its own cluster; a nil or empty input
// returns nil.
func AgglomerativeCluster(embeddings [][]float32, branchingCap int, threshold float64) [][]int {
	if len(embeddings) == 0 {
		return nil
	}
	if branchingCap <= 0 {
		branchingCap = 1
	}

	nodes := make([]*clusterNode, len(embeddings))
	for i, emb := range embeddings {
		nodes[i] = &clusterNode{members: []int{i}, centroid: emb}
	}

	for len(nodes) > branchingCap {
		bestI, bestJ := -1, -1
		bestSim := -1.0
		for i := 0; i < len(nodes); i++ {
			for j := i + 1; j < len(nodes); j++ {
				sim := CosineSimilarity(nodes[i].centroid, nodes[j].centroid)
				if sim > bestSim {
					bestSim = sim
					bestI, bestJ = i, j
				}
			}
		}
		if bestI < 0 || bestSim < threshold {
			break
		}

		merged := &clusterNode{
			members: append(append([]int{}, nodes[bestI].members...), nodes[bestJ].members...),
		}
		memberEmbeddings := make([][]float32, 0, len(merged.members))
		for _, idx := range merged.members {
			memberEmbeddings = append(memberEmbeddings, embeddings[idx])
		}
		merged.centroid = Centroid(memberEmbeddings)

		next := make([]*clusterNode, 0, len(nodes)-1)
		for k, n := range nodes {
			if k == bestI || k == bestJ {
				continue
			}
			next = append(next, n)
		}
		next = append(next, merged)
		nodes = next
	}

	clusters := make([][]int, len(nodes))
	for i, n := range nodes {
		clusters[i] = n.members
	}
	return clusters
}
