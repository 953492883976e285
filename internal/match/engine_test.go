package match

import (
	"fmt"
	"math"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/signature"
)

func newTestSet(sigs ...signature.Signature) *signature.Set {
	dim := 0
	if len(sigs) > 0 {
		dim = len(sigs[0].Embedding)
	}
	return signature.NewSet(dim, sigs)
}

func TestMatch_UnderThreshold(t *testing.T) {
	set := newTestSet(
		signature.Signature{Name: "Asha", Embedding: []float32{1, 0, 0, 0}},
		signature.Signature{Name: "Bala", Embedding: []float32{0, 1, 0, 0}},
	)
	engine := NewEngine(set, 0.35)

	// Close to Asha's signature, far from Bala's.
	result := engine.Match([]float32{0.99, 0.05, 0, 0})

	if !result.Known {
		t.Fatalf("expected a known match, got unknown (distance %f)", result.Distance)
	}
	if result.Name != "Asha" {
		t.Errorf("expected Asha, got %s", result.Name)
	}
	if result.Distance >= 0.35 {
		t.Errorf("expected distance under threshold, got %f", result.Distance)
	}
}

func TestMatch_OverThresholdIsUnknown(t *testing.T) {
	set := newTestSet(
		signature.Signature{Name: "Asha", Embedding: []float32{1, 0, 0, 0}},
	)
	engine := NewEngine(set, 0.35)

	// Orthogonal to everything stored.
	result := engine.Match([]float32{0, 0, 1, 0})

	if result.Known {
		t.Errorf("expected unknown, got %s at distance %f", result.Name, result.Distance)
	}
}

func TestMatch_EmptySetIsUnknown(t *testing.T) {
	engine := NewEngine(newTestSet(), 0.35)

	result := engine.Match([]float32{1, 0, 0, 0})

	if result.Known {
		t.Error("expected unknown for empty set")
	}
}

func TestMatch_TieBreaksLexicographically(t *testing.T) {
	// Two identical embeddings under different names; every query is
	// exactly equidistant from both.
	shared := []float32{1, 0, 0, 0}
	set := newTestSet(
		signature.Signature{Name: "Zoe", Embedding: shared},
		signature.Signature{Name: "Ana", Embedding: shared},
	)
	engine := NewEngine(set, 0.35)

	for i := 0; i < 50; i++ {
		result := engine.Match([]float32{0.98, 0.01, 0, 0})
		if !result.Known {
			t.Fatalf("run %d: expected a match", i)
		}
		if result.Name != "Ana" {
			t.Fatalf("run %d: expected deterministic tie-break to Ana, got %s", i, result.Name)
		}
	}
}

func TestMatch_NearestWins(t *testing.T) {
	set := newTestSet(
		signature.Signature{Name: "Asha", Embedding: []float32{1, 0, 0, 0}},
		signature.Signature{Name: "Bala", Embedding: []float32{0.9, 0.1, 0, 0}},
	)
	engine := NewEngine(set, 0.5)

	result := engine.Match([]float32{0.9, 0.1, 0, 0})

	if result.Name != "Bala" {
		t.Errorf("expected closest signature Bala, got %s", result.Name)
	}
	if result.Distance > 1e-6 {
		t.Errorf("expected near-zero distance, got %f", result.Distance)
	}
}

func TestMatch_HNSWPathAgreesWithScan(t *testing.T) {
	// Enough signatures to trip the HNSW path.
	var sigs []signature.Signature
	for i := 0; i < hnswMinSize+10; i++ {
		angle := float64(i) * 0.01
		sigs = append(sigs, signature.Signature{
			Name:      fmt.Sprintf("employee-%03d", i),
			Embedding: []float32{float32(math.Cos(angle)), float32(math.Sin(angle)), 0, 0},
		})
	}
	set := newTestSet(sigs...)

	accelerated := NewEngine(set, 0.35)
	if accelerated.graph == nil {
		t.Fatal("expected HNSW graph for large set")
	}

	linear := &Engine{sigs: set.All(), threshold: 0.35}

	queries := [][]float32{
		{1, 0, 0, 0},
		{0.7, 0.7, 0, 0},
		{float32(math.Cos(0.5)), float32(math.Sin(0.5)), 0, 0},
	}
	for _, q := range queries {
		a := accelerated.Match(q)
		l := linear.Match(q)
		if a.Known != l.Known || a.Name != l.Name {
			t.Errorf("query %v: accelerated (%v %s) disagrees with scan (%v %s)",
				q, a.Known, a.Name, l.Known, l.Name)
		}
	}
}

func TestCosineDistance(t *testing.T) {
	if d := CosineDistance([]float32{1, 0}, []float32{1, 0}); d > 1e-9 {
		t.Errorf("identical vectors should have distance 0, got %f", d)
	}
	if d := CosineDistance([]float32{1, 0}, []float32{0, 1}); math.Abs(d-1) > 1e-9 {
		t.Errorf("orthogonal vectors should have distance 1, got %f", d)
	}
	if d := CosineDistance([]float32{1, 0}, []float32{-1, 0}); math.Abs(d-2) > 1e-9 {
		t.Errorf("opposite vectors should have distance 2, got %f", d)
	}
	if d := CosineDistance([]float32{1, 0}, []float32{1}); d != 2.0 {
		t.Errorf("mismatched lengths should give max distance, got %f", d)
	}
	if d := CosineDistance([]float32{0, 0}, []float32{1, 0}); d != 2.0 {
		t.Errorf("zero vector should give max distance, got %f", d)
	}
}
