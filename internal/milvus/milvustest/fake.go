// Package milvustest provides an in-memory milvus.Client for tests.
package milvustest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/radutopala/milvus-mcp/internal/milvus"
)

// Collection is the state the fake keeps per collection.
type Collection struct {
	Spec    milvus.CollectionSpec
	Vectors [][]float32
	Docs    []milvus.Document
	Rows    []milvus.Document // Every inserted row; vector-only rows have no text
	Index   *milvus.IndexSpec
	Loaded  bool
}

// Fake is an in-memory milvus.Client. Search ranks by the requested metric and
// numbers rows from 1 in insertion order.
type Fake struct {
	mu          sync.Mutex
	collections map[string]*Collection
	failures    map[string]error
	closed      int
}

var _ milvus.Client = (*Fake)(nil)

// New creates an empty fake.
func New() *Fake {
	return &Fake{
		collections: make(map[string]*Collection),
		failures:    make(map[string]error),
	}
}

// FailOn makes the named method (e.g. "CreateCollection") return err.
func (f *Fake) FailOn(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method] = err
}

// Collection returns a copy of a collection's state.
func (f *Fake) Collection(name string) (Collection, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.collections[name]
	if !ok {
		return Collection{}, false
	}
	return *c, true
}

// Closed reports how many times Close was called.
func (f *Fake) Closed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *Fake) fail(method string) error {
	return f.failures[method]
}

func (f *Fake) get(name string) (*Collection, error) {
	c, ok := f.collections[name]
	if !ok {
		return nil, fmt.Errorf("collection %s not found", name)
	}
	return c, nil
}

func (f *Fake) HasCollection(_ context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("HasCollection"); err != nil {
		return false, err
	}
	_, ok := f.collections[name]
	return ok, nil
}

func (f *Fake) ListCollections(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("ListCollections"); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(f.collections))
	for name := range f.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (f *Fake) CreateCollection(_ context.Context, spec milvus.CollectionSpec) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("CreateCollection"); err != nil {
		return err
	}
	if _, ok := f.collections[spec.Name]; ok {
		return fmt.Errorf("collection %s already exists", spec.Name)
	}
	f.collections[spec.Name] = &Collection{Spec: spec}
	return nil
}

func (f *Fake) DropCollection(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("DropCollection"); err != nil {
		return err
	}
	if _, err := f.get(name); err != nil {
		return err
	}
	delete(f.collections, name)
	return nil
}

func (f *Fake) InsertVectors(_ context.Context, collection string, vectors [][]float32) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("InsertVectors"); err != nil {
		return 0, err
	}
	c, err := f.get(collection)
	if err != nil {
		return 0, err
	}
	if err := checkDimension(c.Spec.Dimension, vectors); err != nil {
		return 0, err
	}
	c.Vectors = append(c.Vectors, vectors...)
	for _, v := range vectors {
		c.Rows = append(c.Rows, milvus.Document{Embedding: v})
	}
	return len(vectors), nil
}

func (f *Fake) InsertDocuments(_ context.Context, collection string, docs []milvus.Document) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("InsertDocuments"); err != nil {
		return 0, err
	}
	c, err := f.get(collection)
	if err != nil {
		return 0, err
	}
	if !c.Spec.WithMetadata {
		return 0, fmt.Errorf("collection %s has no %s field", collection, milvus.FieldText)
	}
	for _, d := range docs {
		if err := checkDimension(c.Spec.Dimension, [][]float32{d.Embedding}); err != nil {
			return 0, err
		}
		c.Vectors = append(c.Vectors, d.Embedding)
		c.Rows = append(c.Rows, d)
	}
	c.Docs = append(c.Docs, docs...)
	return len(docs), nil
}

func (f *Fake) CreateIndex(_ context.Context, collection string, spec milvus.IndexSpec) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("CreateIndex"); err != nil {
		return err
	}
	c, err := f.get(collection)
	if err != nil {
		return err
	}
	c.Index = &spec
	return nil
}

func (f *Fake) LoadCollection(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("LoadCollection"); err != nil {
		return err
	}
	c, err := f.get(name)
	if err != nil {
		return err
	}
	if c.Index == nil {
		return fmt.Errorf("collection %s has no index", name)
	}
	c.Loaded = true
	return nil
}

func (f *Fake) Search(_ context.Context, collection string, query []float32, topK int, metric string) ([]milvus.Hit, error) {
	return f.search("Search", collection, query, topK, metric, false)
}

func (f *Fake) SearchDocuments(_ context.Context, collection string, query []float32, topK int, metric string) ([]milvus.Hit, error) {
	return f.search("SearchDocuments", collection, query, topK, metric, true)
}

func (f *Fake) search(method, collection string, query []float32, topK int, metric string, withText bool) ([]milvus.Hit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(method); err != nil {
		return nil, err
	}
	c, err := f.get(collection)
	if err != nil {
		return nil, err
	}
	if !c.Loaded {
		return nil, fmt.Errorf("collection %s not loaded", collection)
	}
	if withText && !c.Spec.WithMetadata {
		return nil, fmt.Errorf("field %s not exist", milvus.FieldText)
	}
	if err := checkDimension(c.Spec.Dimension, [][]float32{query}); err != nil {
		return nil, err
	}

	hits := make([]milvus.Hit, 0, len(c.Rows))
	for i, row := range c.Rows {
		hit := milvus.Hit{ID: int64(i + 1), Score: score(metric, query, row.Embedding)}
		if withText {
			hit.Text, hit.DocID = row.Text, row.DocID
		}
		hits = append(hits, hit)
	}
	if metric == "IP" || metric == "COSINE" {
		sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	} else {
		sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score < hits[j].Score })
	}
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (f *Fake) Health(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fail("Health")
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return f.fail("Close")
}

// score follows Milvus: squared distance for L2, higher is closer for IP and COSINE.
func score(metric string, a, b []float32) float32 {
	var dot, normA, normB, dist float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
		dist += (x - y) * (x - y)
	}
	switch metric {
	case "IP":
		return float32(dot)
	case "COSINE":
		if normA == 0 || normB == 0 {
			return 0
		}
		return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
	default:
		return float32(dist)
	}
}

func checkDimension(dim int, vectors [][]float32) error {
	if len(vectors) == 0 {
		return errors.New("no vectors")
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), dim)
		}
	}
	return nil
}
