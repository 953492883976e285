// Package match resolves query embeddings to employee identities by
// nearest-neighbor search over the loaded signature set.
package match

import (
	"math"

	"github.com/coder/hnsw"

	"github.com/kozaktomas/face-attendance/internal/signature"
)

const (
	// hnswMinSize is the signature count above which the engine builds an
	// HNSW graph for candidate pre-selection. Below it a linear scan is
	// faster and trivially exact.
	hnswMinSize = 128

	// hnswCandidates is how many neighbors the graph pre-selects before
	// exact re-scoring.
	hnswCandidates = 16

	// hnswMaxNeighbors is the M parameter of the graph.
	hnswMaxNeighbors = 16

	// tieEpsilon bounds the floating-point tolerance within which two
	// distances count as an exact tie.
	tieEpsilon = 1e-9
)

// Result is the outcome of matching one query embedding.
type Result struct {
	Name     string  // matched employee, empty when Known is false
	Distance float64 // cosine distance to the matched signature
	Known    bool    // false means Unknown: no signature under the threshold
}

// Engine matches query embeddings against a fixed signature set. The set is
// immutable for the engine's lifetime; a retrained store needs a new engine.
type Engine struct {
	sigs      []signature.Signature
	threshold float64
	graph     *hnsw.Graph[int]
}

// NewEngine builds an engine over the given set. threshold is the maximum
// cosine distance accepted as a positive match.
func NewEngine(set *signature.Set, threshold float64) *Engine {
	e := &Engine{
		sigs:      set.All(),
		threshold: threshold,
	}
	if len(e.sigs) >= hnswMinSize {
		e.graph = buildGraph(e.sigs)
	}
	return e
}

func buildGraph(sigs []signature.Signature) *hnsw.Graph[int] {
	g := hnsw.NewGraph[int]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors)
	g.Distance = hnsw.CosineDistance
	for i := range sigs {
		g.Add(hnsw.MakeNode(i, sigs[i].Embedding))
	}
	return g
}

// Match returns the identity whose signature is nearest to query, or an
// unknown result when the minimum distance is not under the threshold. An
// empty set always yields unknown, never an error. Exact ties break to the
// lexicographically smaller name, so repeated runs with identical inputs
// resolve identically.
func (e *Engine) Match(query []float32) Result {
	if len(e.sigs) == 0 {
		return Result{}
	}

	if e.graph != nil {
		return e.matchAmong(query, e.candidates(query))
	}

	idx := make([]int, len(e.sigs))
	for i := range idx {
		idx[i] = i
	}
	return e.matchAmong(query, idx)
}

// candidates pre-selects nearest signatures from the HNSW graph. The
// candidates are re-scored exactly afterwards, so the result is equal to a
// full linear scan for any realistic roster.
func (e *Engine) candidates(query []float32) []int {
	neighbors := e.graph.Search(query, hnswCandidates)
	idx := make([]int, 0, len(neighbors))
	for _, n := range neighbors {
		idx = append(idx, n.Key)
	}
	return idx
}

// matchAmong runs the exact scan over the given signature indices.
func (e *Engine) matchAmong(query []float32, idx []int) Result {
	best := Result{Distance: math.Inf(1)}
	for _, i := range idx {
		d := CosineDistance(query, e.sigs[i].Embedding)
		switch {
		case d < best.Distance-tieEpsilon:
			best.Name = e.sigs[i].Name
			best.Distance = d
		case d <= best.Distance+tieEpsilon && e.sigs[i].Name < best.Name:
			// Tie within tolerance: keep the lexicographically smaller name.
			best.Name = e.sigs[i].Name
			best.Distance = math.Min(best.Distance, d)
		}
	}

	if best.Distance >= e.threshold {
		return Result{Distance: best.Distance}
	}
	best.Known = true
	return best
}

// CosineDistance computes the cosine distance between two vectors.
// Returns a value between 0 (identical) and 2 (opposite); degenerate input
// (mismatched lengths, zero vectors) maps to the maximum distance.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 2.0
	}

	similarity := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp to [-1, 1] to handle floating point errors.
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}

	return 1 - similarity
}
