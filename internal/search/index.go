package search

import (
	"encoding/gob"
	"os"
	"sort"
	"sync"

	"github.com/uniconhq/unicon-backend/internal/model"
)

// Index is a flat L2 similarity index over article embeddings, persisted to
// a single file and reloaded at process start. It is deliberately exact:
// the corpus is one campus forum, not a billion vectors.
type Index struct {
	mu   sync.RWMutex
	path string
	dim  int

	ids     []int64
	vectors []model.Vector
	pos     map[int64]int
}

// indexFile is the on-disk shape.
type indexFile struct {
	Dim     int
	IDs     []int64
	Vectors []model.Vector
}

func NewIndex(path string, dim int) *Index {
	return &Index{path: path, dim: dim, pos: map[int64]int{}}
}

// Load reads the index file. A missing or corrupt file leaves the index
// empty and returns false so the caller can rebuild from the database.
func (idx *Index) Load() bool {
	f, err := os.Open(idx.path)
	if err != nil {
		return false
	}
	defer f.Close()

	var stored indexFile
	if err := gob.NewDecoder(f).Decode(&stored); err != nil || stored.Dim != idx.dim {
		return false
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.ids = stored.IDs
	idx.vectors = stored.Vectors
	idx.pos = make(map[int64]int, len(stored.IDs))
	for i, id := range stored.IDs {
		idx.pos[id] = i
	}
	return true
}

// Add registers (or replaces) one vector and persists the index file. The
// lock is held across the write so concurrent adds cannot interleave a
// stale snapshot over a newer one.
func (idx *Index) Add(id int64, vector model.Vector) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.insert(id, vector)
	return idx.save()
}

// Replace swaps the whole index for the given vectors and persists once.
// Rebuilds go through here; a per-row Add would rewrite the file per
// article.
func (idx *Index) Replace(ids []int64, vectors []model.Vector) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.ids = nil
	idx.vectors = nil
	idx.pos = map[int64]int{}
	for i, id := range ids {
		idx.insert(id, vectors[i])
	}
	return idx.save()
}

// insert assumes the lock is held.
func (idx *Index) insert(id int64, vector model.Vector) {
	if i, ok := idx.pos[id]; ok {
		idx.vectors[i] = vector
		return
	}
	idx.pos[id] = len(idx.ids)
	idx.ids = append(idx.ids, id)
	idx.vectors = append(idx.vectors, vector)
}

// Search returns up to k ids ranked by ascending L2 distance to the query.
func (idx *Index) Search(query model.Vector, k int) []int64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	type scored struct {
		id   int64
		dist float32
	}
	ranked := make([]scored, 0, len(idx.ids))
	for i, id := range idx.ids {
		ranked = append(ranked, scored{id: id, dist: l2(query, idx.vectors[i])})
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].dist < ranked[j].dist })

	if k > len(ranked) {
		k = len(ranked)
	}
	out := make([]int64, k)
	for i := 0; i < k; i++ {
		out[i] = ranked[i].id
	}
	return out
}

// Len reports the number of indexed vectors.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.ids)
}

// save assumes the lock is held.
func (idx *Index) save() error {
	stored := indexFile{Dim: idx.dim, IDs: idx.ids, Vectors: idx.vectors}

	tmp := idx.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(f).Encode(&stored); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, idx.path)
}

func l2(a, b model.Vector) float32 {
	var sum float32
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	// Dimension mismatch pushes the candidate away.
	for i := n; i < len(a); i++ {
		sum += a[i] * a[i]
	}
	for i := n; i < len(b); i++ {
		sum += b[i] * b[i]
	}
	return sum
}
