// Package signature persists the trained face signature set. The whole set
// is one gob blob on disk, replaced atomically on every save; there is no
// incremental update path. A retrain always rebuilds and rewrites the blob
// wholesale.
package signature

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ErrStoreMissing is returned by Load when no signature blob exists yet.
// The operator is expected to run a training pass first.
var ErrStoreMissing = errors.New("signature store missing")

const blobVersion = 1

// Signature pairs an employee name with their face embedding.
type Signature struct {
	Name      string
	Embedding []float32
}

// Set is an immutable snapshot of all trained signatures.
type Set struct {
	dim  int
	sigs []Signature
}

// blob is the on-disk layout: parallel name/embedding sequences plus
// metadata for validation.
type blob struct {
	Version    int
	Dim        int
	Names      []string
	Embeddings [][]float32
}

// NewSet builds a set from signatures. Signatures are sorted by name so two
// sets built from the same roster serialize identically.
func NewSet(dim int, sigs []Signature) *Set {
	sorted := make([]Signature, len(sigs))
	copy(sorted, sigs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	return &Set{dim: dim, sigs: sorted}
}

// All returns every signature in name order.
func (s *Set) All() []Signature {
	return s.sigs
}

// Len returns the number of signatures in the set.
func (s *Set) Len() int {
	return len(s.sigs)
}

// Dim returns the embedding dimensionality of the set.
func (s *Set) Dim() int {
	return s.dim
}

// Load reads the signature blob at path. A missing file yields
// ErrStoreMissing, which is fatal to an attendance session but not to the
// process.
func Load(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrStoreMissing, path)
		}
		return nil, fmt.Errorf("opening signature store: %w", err)
	}
	defer f.Close()

	var b blob
	if err := gob.NewDecoder(f).Decode(&b); err != nil {
		return nil, fmt.Errorf("decoding signature store: %w", err)
	}
	if b.Version != blobVersion {
		return nil, fmt.Errorf("unsupported signature store version %d", b.Version)
	}
	if len(b.Names) != len(b.Embeddings) {
		return nil, fmt.Errorf("corrupt signature store: %d names, %d embeddings", len(b.Names), len(b.Embeddings))
	}

	sigs := make([]Signature, len(b.Names))
	for i := range b.Names {
		if len(b.Embeddings[i]) != b.Dim {
			return nil, fmt.Errorf("corrupt signature store: embedding for %q has dim %d, expected %d",
				b.Names[i], len(b.Embeddings[i]), b.Dim)
		}
		sigs[i] = Signature{Name: b.Names[i], Embedding: b.Embeddings[i]}
	}
	return NewSet(b.Dim, sigs), nil
}

// Save writes the set to path. The blob is written to a temporary file in
// the same directory and renamed over the destination, so a crash mid-write
// leaves any previous blob intact.
func Save(path string, set *Set) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp signature store: %w", err)
	}
	tmpPath := tmp.Name()

	b := blob{
		Version:    blobVersion,
		Dim:        set.dim,
		Names:      make([]string, 0, len(set.sigs)),
		Embeddings: make([][]float32, 0, len(set.sigs)),
	}
	for _, sig := range set.sigs {
		b.Names = append(b.Names, sig.Name)
		b.Embeddings = append(b.Embeddings, sig.Embedding)
	}

	if err := gob.NewEncoder(tmp).Encode(&b); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("encoding signature store: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("syncing signature store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp signature store: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing signature store: %w", err)
	}
	return nil
}
