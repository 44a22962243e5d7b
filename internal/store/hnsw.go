package store

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"

	salonerrors "github.com/lanting/salonsearch/internal/errors"
)

// HNSWStore implements VectorStore with a pure-Go HNSW graph persisted
// next to the metadata database. Chunk IDs are mapped to uint64 graph
// keys; deletes are lazy because coder/hnsw misbehaves when the last
// node is removed.
type HNSWStore struct {
	mu    sync.RWMutex
	graph *hnsw.Graph[uint64]
	dims  int
	path  string

	idMap   map[string]uint64
	keyMap  map[uint64]string
	nextKey uint64

	closed bool
}

var _ VectorStore = (*HNSWStore)(nil)

// hnswMeta is the gob-persisted sidecar holding the ID mappings.
type hnswMeta struct {
	IDMap      map[string]uint64
	NextKey    uint64
	Dimensions int
}

// NewHNSWStore creates a vector store for the given dimensions. If path
// is non-empty and an index exists there, it is loaded.
func NewHNSWStore(path string, dims int) (*HNSWStore, error) {
	if dims <= 0 {
		return nil, salonerrors.ValidationError("vector dimensions must be positive", nil)
	}

	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 16
	graph.EfSearch = 40
	graph.Ml = 0.25

	s := &HNSWStore{
		graph:  graph,
		dims:   dims,
		path:   path,
		idMap:  make(map[string]uint64),
		keyMap: make(map[uint64]string),
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := s.load(path); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

// Add inserts vectors keyed by chunk ID. An existing ID is replaced via
// lazy deletion of its old graph node. Vectors are normalized so cosine
// distance behaves regardless of provider scaling.
func (s *HNSWStore) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) != len(vectors) {
		return salonerrors.ValidationError(
			fmt.Sprintf("ids and vectors length mismatch: %d vs %d", len(ids), len(vectors)), nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return salonerrors.StorageError("vector store is closed", nil)
	}

	for _, v := range vectors {
		if len(v) != s.dims {
			return salonerrors.New(salonerrors.ErrCodeDimensionMismatch,
				fmt.Sprintf("expected %d dimensions, got %d", s.dims, len(v)), nil)
		}
	}

	for i, id := range ids {
		if oldKey, exists := s.idMap[id]; exists {
			delete(s.keyMap, oldKey)
			delete(s.idMap, id)
		}

		key := s.nextKey
		s.nextKey++

		vec := make([]float32, len(vectors[i]))
		copy(vec, vectors[i])
		normalize(vec)

		s.graph.Add(hnsw.MakeNode(key, vec))
		s.idMap[id] = key
		s.keyMap[key] = id
	}
	return nil
}

// Search returns the k nearest chunks by cosine similarity, best-first.
// Lazily deleted nodes are filtered out of the results.
func (s *HNSWStore) Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, salonerrors.StorageError("vector store is closed", nil)
	}
	if len(query) != s.dims {
		return nil, salonerrors.New(salonerrors.ErrCodeDimensionMismatch,
			fmt.Sprintf("expected %d dimensions, got %d", s.dims, len(query)), nil)
	}
	if s.graph.Len() == 0 {
		return []*VectorResult{}, nil
	}

	q := make([]float32, len(query))
	copy(q, query)
	normalize(q)

	nodes := s.graph.Search(q, k)
	results := make([]*VectorResult, 0, len(nodes))
	for _, node := range nodes {
		id, ok := s.keyMap[node.Key]
		if !ok {
			continue // lazily deleted
		}
		dist := s.graph.Distance(q, node.Value)
		results = append(results, &VectorResult{
			ChunkID: id,
			Score:   1 - dist/2, // cosine distance 0..2 -> similarity 1..0
		})
	}
	return results, nil
}

// Delete removes chunk vectors by ID. The graph nodes stay behind but
// are invisible to Search.
func (s *HNSWStore) Delete(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return salonerrors.StorageError("vector store is closed", nil)
	}

	for _, id := range ids {
		if key, ok := s.idMap[id]; ok {
			delete(s.keyMap, key)
			delete(s.idMap, id)
		}
	}
	return nil
}

// Count returns the number of live vectors.
func (s *HNSWStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, salonerrors.StorageError("vector store is closed", nil)
	}
	return len(s.idMap), nil
}

// Save persists the graph and ID mappings atomically (temp file plus
// rename). A store created with an empty path is memory-only.
func (s *HNSWStore) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return salonerrors.StorageError("vector store is closed", nil)
	}
	if s.path == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return salonerrors.StorageError("create vector store directory", err)
	}

	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return salonerrors.StorageError("create vector index file", err)
	}
	if err := s.graph.Export(f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return salonerrors.StorageError("export vector graph", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return salonerrors.StorageError("close vector index file", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return salonerrors.StorageError("rename vector index file", err)
	}

	return s.saveMeta()
}

func (s *HNSWStore) saveMeta() error {
	metaPath := s.path + ".meta"
	tmp := metaPath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return salonerrors.StorageError("create vector metadata file", err)
	}
	meta := hnswMeta{IDMap: s.idMap, NextKey: s.nextKey, Dimensions: s.dims}
	if err := gob.NewEncoder(f).Encode(meta); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return salonerrors.StorageError("encode vector metadata", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return salonerrors.StorageError("close vector metadata file", err)
	}
	if err := os.Rename(tmp, metaPath); err != nil {
		_ = os.Remove(tmp)
		return salonerrors.StorageError("rename vector metadata file", err)
	}
	return nil
}

func (s *HNSWStore) load(path string) error {
	metaPath := path + ".meta"
	mf, err := os.Open(metaPath)
	if err != nil {
		return salonerrors.New(salonerrors.ErrCodeCorruptIndex,
			"vector index present but metadata missing", err)
	}
	defer func() { _ = mf.Close() }()

	var meta hnswMeta
	if err := gob.NewDecoder(mf).Decode(&meta); err != nil {
		return salonerrors.New(salonerrors.ErrCodeCorruptIndex,
			"decode vector metadata", err)
	}
	if meta.Dimensions != s.dims {
		return salonerrors.New(salonerrors.ErrCodeDimensionMismatch,
			fmt.Sprintf("stored index has %d dimensions, configured %d", meta.Dimensions, s.dims), nil)
	}

	s.idMap = meta.IDMap
	s.nextKey = meta.NextKey
	s.keyMap = make(map[uint64]string, len(meta.IDMap))
	for id, key := range s.idMap {
		s.keyMap[key] = id
	}

	f, err := os.Open(path)
	if err != nil {
		return salonerrors.StorageError("open vector index file", err)
	}
	defer func() { _ = f.Close() }()

	// Import needs an io.ByteReader.
	if err := s.graph.Import(bufio.NewReader(f)); err != nil {
		return salonerrors.New(salonerrors.ErrCodeCorruptIndex, "import vector graph", err)
	}
	return nil
}

// Close releases the graph. Safe to call more than once.
func (s *HNSWStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.graph = nil
	return nil
}

// normalize scales v to unit length in place.
func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
