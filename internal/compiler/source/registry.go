// Package source implements the source registry: it assigns every loaded
// chunk (main file or import) a small stable integer index so that spans
// can pack {source index, line} into a single uint32 (see token.Position.Pack).
package source

import (
	"hash/fnv"

	"github.com/tidwall/btree"
)

// MaxSources is the hard ceiling imposed by the BCLine encoding: the index
// occupies 8 bits.
const MaxSources = 256

// Info describes one registered source.
type Info struct {
	Index        int
	Path         string
	Filename     string
	Namespace    string
	ParentIndex  int // -1 for the root chunk
	ImportLine   int
	StartingLine int
	TotalLines   int
}

// Registry owns the set of loaded sources for one compilation unit. It is
// not safe for concurrent use; like the rest of this core, callers own a
// registry exclusively for the duration of one parse.
type Registry struct {
	sources    []Info
	byPathHash *btree.Map[uint64, int]
	byNS       map[string]int
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		byPathHash: &btree.Map[uint64, int]{},
		byNS:       make(map[string]int),
	}
}

func pathHash(path string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(path))
	return h.Sum64()
}

// Register assigns Path a new index, unless Path was already registered, in
// which case the existing index is returned (idempotent on path hash).
func (r *Registry) Register(path, filename string, parentIndex, importLine int) (int, error) {
	hash := pathHash(path)
	if idx, ok := r.byPathHash.Get(hash); ok {
		return idx, nil
	}
	if len(r.sources) >= MaxSources {
		return 0, ErrTooManySources
	}
	idx := len(r.sources)
	r.sources = append(r.sources, Info{
		Index:       idx,
		Path:        path,
		Filename:    filename,
		ParentIndex: parentIndex,
		ImportLine:  importLine,
	})
	r.byPathHash.Set(hash, idx)
	return idx, nil
}

// FindByPathHash looks up a previously registered source by the FNV-1a hash
// of its resolved path.
func (r *Registry) FindByPathHash(hash uint64) (int, bool) {
	return r.byPathHash.Get(hash)
}

// FindByNamespace looks up a source that declared the given namespace name.
func (r *Registry) FindByNamespace(name string) (int, bool) {
	idx, ok := r.byNS[name]
	return idx, ok
}

// SetNamespace records that source idx declared namespace name. Namespace
// conflicts across files are tolerated: a later SetNamespace for the same
// name simply overwrites the mapping, and the parser reports the overwrite
// as a warning when it observes one.
func (r *Registry) SetNamespace(idx int, name string) {
	r.byNS[name] = idx
	if idx >= 0 && idx < len(r.sources) {
		r.sources[idx].Namespace = name
	}
}

// Get returns the registered Info for idx.
func (r *Registry) Get(idx int) (Info, bool) {
	if idx < 0 || idx >= len(r.sources) {
		return Info{}, false
	}
	return r.sources[idx], true
}

// All returns every registered source in registration order.
func (r *Registry) All() []Info {
	out := make([]Info, len(r.sources))
	copy(out, r.sources)
	return out
}

// Len reports how many sources are registered.
func (r *Registry) Len() int { return len(r.sources) }
