package stores

import (
	"path/filepath"

	"github.com/zkamm/rollup/internal/domain"
	"github.com/zkamm/rollup/internal/field"
	"github.com/zkamm/rollup/internal/merkle"
	"github.com/zkamm/rollup/internal/rolluperr"
	"github.com/zkamm/rollup/internal/storage"
)

// PoolsTreeHeight is fixed to match the external circuit (spec §3).
const PoolsTreeHeight = 21

// PoolsStore is the domain store over Pool entities. It differs from
// Balances/Burns/Liquidities in using a StaticMerkleTree -- "the pool tree
// is a static (fully materialised) tree in the current source but the
// contract in §4.6 is identical" (spec §4.6) -- so its leaf-write is a
// direct SetLeaf rather than a tree-growing PushLeaf.
type PoolsStore struct {
	list   *storage.DynamicList
	tree   *merkle.StaticMerkleTree
	hasher field.EntityHasher
	index  map[domain.PoolKey]uint64
}

// OpenPoolsStore opens (or creates) the Pools store under dir.
func OpenPoolsStore(dir string, hasher field.EntityHasher) (*PoolsStore, error) {
	list, err := storage.OpenDynamicList(filepath.Join(dir, "records"), domain.PoolSize)
	if err != nil {
		return nil, err
	}
	tree, err := merkle.OpenStaticMerkleTree(filepath.Join(dir, "tree.bin"), PoolsTreeHeight, hasher)
	if err != nil {
		return nil, err
	}

	s := &PoolsStore{list: list, tree: tree, hasher: hasher, index: make(map[domain.PoolKey]uint64)}

	if err := list.ForEach(func(buf []byte, index uint64) error {
		var a [domain.PoolSize]byte
		copy(a[:], buf)
		p := domain.PoolFromBytes(a)
		s.index[p.Key()] = index
		return nil
	}); err != nil {
		return nil, err
	}

	return s, nil
}

// Push appends a new pool, erroring with ErrAlreadyExists if the
// (base_token_id, quote_token_id) pair is already mapped.
func (s *PoolsStore) Push(p domain.Pool) (uint64, error) {
	k := p.Key()
	if _, ok := s.index[k]; ok {
		return 0, rolluperr.ErrAlreadyExists
	}
	b := p.ToBytes()
	idx, err := s.list.Push(b[:])
	if err != nil {
		return 0, err
	}
	s.index[k] = idx
	return idx, nil
}

// PushLeaf writes p's leaf hash at its list index; for a static tree every
// slot already exists, so this is simply SetLeaf.
func (s *PoolsStore) PushLeaf(p domain.Pool) error {
	idx, ok := s.index[p.Key()]
	if !ok {
		return rolluperr.ErrDoesntExist
	}
	return s.tree.SetLeaf(idx, s.hasher.HashFields(p.ToFields()[:]))
}

// Update rewrites p's bytes at its list index.
func (s *PoolsStore) Update(p domain.Pool) error {
	idx, ok := s.index[p.Key()]
	if !ok {
		return rolluperr.ErrDoesntExist
	}
	b := p.ToBytes()
	return s.list.Set(idx, b[:])
}

// UpdateLeaf recomputes p's leaf hash and writes it at its tree index.
func (s *PoolsStore) UpdateLeaf(p domain.Pool) error {
	idx, ok := s.index[p.Key()]
	if !ok {
		return rolluperr.ErrDoesntExist
	}
	return s.tree.SetLeaf(idx, s.hasher.HashFields(p.ToFields()[:]))
}

// Get returns the pool mapped to key and its list/tree index.
func (s *PoolsStore) Get(key domain.PoolKey) (domain.Pool, uint64, error) {
	idx, ok := s.index[key]
	if !ok {
		return domain.Pool{}, 0, rolluperr.ErrDoesntExist
	}
	buf, err := s.list.Get(idx)
	if err != nil {
		return domain.Pool{}, 0, err
	}
	var a [domain.PoolSize]byte
	copy(a[:], buf)
	return domain.PoolFromBytes(a), idx, nil
}

// GetByIndex returns the pool at a known list/tree index directly.
func (s *PoolsStore) GetByIndex(index uint64) (domain.Pool, error) {
	buf, err := s.list.Get(index)
	if err != nil {
		return domain.Pool{}, err
	}
	var a [domain.PoolSize]byte
	copy(a[:], buf)
	return domain.PoolFromBytes(a), nil
}

// GetMany returns every pool satisfying match.
func (s *PoolsStore) GetMany(match func(domain.PoolKey) bool) ([]domain.Pool, error) {
	var out []domain.Pool
	for k, idx := range s.index {
		if !match(k) {
			continue
		}
		buf, err := s.list.Get(idx)
		if err != nil {
			return nil, err
		}
		var a [domain.PoolSize]byte
		copy(a[:], buf)
		out = append(out, domain.PoolFromBytes(a))
	}
	return out, nil
}

// Len returns the number of pools currently stored.
func (s *PoolsStore) Len() (uint64, error) { return s.list.Len() }

// GetSingleWitness passes through to the tree.
func (s *PoolsStore) GetSingleWitness(index uint64) (merkle.SingleMerkleWitness, error) {
	return s.tree.GetSingleWitness(index)
}

// GetNewSingleWitness returns the witness for the next not-yet-pushed
// index; a fresh static-tree slot is already a valid zero leaf.
func (s *PoolsStore) GetNewSingleWitness() (merkle.SingleMerkleWitness, error) {
	next, err := s.list.Len()
	if err != nil {
		return merkle.SingleMerkleWitness{}, err
	}
	return s.tree.GetSingleWitness(next)
}

// GetRoot passes through to the tree.
func (s *PoolsStore) GetRoot() (field.Field, error) { return s.tree.GetRoot() }

// Close releases the list's and tree's underlying file handles.
func (s *PoolsStore) Close() error {
	if err := s.list.Close(); err != nil {
		return err
	}
	return s.tree.Close()
}
