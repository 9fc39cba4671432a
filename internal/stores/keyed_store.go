// Package stores implements the domain stores layered on the generic
// DynamicList/DynamicMerkleTree/StaticMerkleTree primitives: keyed views
// with uniqueness invariants, in-memory indexes rebuilt at startup, and the
// value-write/leaf-write separation the generator's two-phase commit
// depends on (spec §4.6, §9 "Polymorphism over entity kind").
package stores

import (
	"path/filepath"

	"github.com/zkamm/rollup/internal/field"
	"github.com/zkamm/rollup/internal/merkle"
	"github.com/zkamm/rollup/internal/rolluperr"
	"github.com/zkamm/rollup/internal/storage"
)

// KeyedStore is a DynamicList + DynamicMerkleTree pair with an in-memory
// natural-key index, parameterised over an entity type E and its natural
// key K (spec §9: "a reasonable implementation factors out a generic
// KeyedStore<E, H, L, K>"). Balances, Burns, and Liquidities are all
// instances of this shape; Pools and Withdrawals differ (static tree) and
// are implemented separately in pools.go / withdrawals.go.
type KeyedStore[E any, K comparable] struct {
	list   *storage.DynamicList
	tree   *merkle.DynamicMerkleTree
	hasher field.EntityHasher

	toBytes   func(E) []byte
	fromBytes func([]byte) E
	toFields  func(E, field.EntityHasher) []field.Field
	keyOf     func(E) K

	index map[K]uint64
}

// KeyedStoreConfig bundles the per-entity codec functions OpenKeyedStore
// needs; each concrete store (balances.go, burns.go, liquidities.go)
// supplies one.
type KeyedStoreConfig[E any, K comparable] struct {
	RecordSize int
	TreeHeight int
	ToBytes    func(E) []byte
	FromBytes  func([]byte) E
	ToFields   func(E, field.EntityHasher) []field.Field
	KeyOf      func(E) K
}

// OpenKeyedStore opens the list and tree under dir (named "records" and
// "tree" respectively) and rebuilds the in-memory index via ForEach (spec
// §9: "well-defined init ... startup for_each rebuild of the in-memory
// indexes").
func OpenKeyedStore[E any, K comparable](dir string, hasher field.EntityHasher, cfg KeyedStoreConfig[E, K]) (*KeyedStore[E, K], error) {
	list, err := storage.OpenDynamicList(filepath.Join(dir, "records"), cfg.RecordSize)
	if err != nil {
		return nil, err
	}
	tree, err := merkle.OpenDynamicMerkleTree(filepath.Join(dir, "tree"), cfg.TreeHeight, hasher)
	if err != nil {
		return nil, err
	}

	s := &KeyedStore[E, K]{
		list: list, tree: tree, hasher: hasher,
		toBytes: cfg.ToBytes, fromBytes: cfg.FromBytes, toFields: cfg.ToFields, keyOf: cfg.KeyOf,
		index: make(map[K]uint64),
	}

	if err := list.ForEach(func(buf []byte, index uint64) error {
		e := s.fromBytes(buf)
		s.index[s.keyOf(e)] = index
		return nil
	}); err != nil {
		return nil, err
	}

	return s, nil
}

// Push appends entity to the list, erroring with ErrAlreadyExists if its
// natural key is already mapped (spec §4.6). Does not touch the tree.
func (s *KeyedStore[E, K]) Push(e E) (uint64, error) {
	k := s.keyOf(e)
	if _, ok := s.index[k]; ok {
		return 0, rolluperr.ErrAlreadyExists
	}
	idx, err := s.list.Push(s.toBytes(e))
	if err != nil {
		return 0, err
	}
	s.index[k] = idx
	return idx, nil
}

// PushLeaf appends hash(entity.to_fields()) to the tree at the matching
// index (spec §4.6). Must be called after the corresponding Push, once the
// external prover has accepted the mutation.
func (s *KeyedStore[E, K]) PushLeaf(e E) (uint64, error) {
	return s.tree.PushLeaf(s.hasher.HashFields(s.toFields(e, s.hasher)))
}

// Update rewrites the bytes at entity's natural-key list index, erroring
// with ErrDoesntExist if the key has no mapping (spec §4.6). Does not
// touch the tree.
func (s *KeyedStore[E, K]) Update(e E) error {
	idx, ok := s.index[s.keyOf(e)]
	if !ok {
		return rolluperr.ErrDoesntExist
	}
	return s.list.Set(idx, s.toBytes(e))
}

// UpdateLeaf recomputes entity's leaf hash and writes it at its natural-key
// tree index (spec §4.6).
func (s *KeyedStore[E, K]) UpdateLeaf(e E) error {
	idx, ok := s.index[s.keyOf(e)]
	if !ok {
		return rolluperr.ErrDoesntExist
	}
	return s.tree.SetLeaf(idx, s.hasher.HashFields(s.toFields(e, s.hasher)))
}

// Get returns the entity mapped to key and its list/tree index.
func (s *KeyedStore[E, K]) Get(key K) (E, uint64, error) {
	idx, ok := s.index[key]
	if !ok {
		var zero E
		return zero, 0, rolluperr.ErrDoesntExist
	}
	buf, err := s.list.Get(idx)
	if err != nil {
		var zero E
		return zero, 0, err
	}
	return s.fromBytes(buf), idx, nil
}

// GetByIndex returns the entity at a known list/tree index directly,
// bypassing the natural-key index (used by RPC handlers that already have
// an index, e.g. from a prior GetMany).
func (s *KeyedStore[E, K]) GetByIndex(index uint64) (E, error) {
	buf, err := s.list.Get(index)
	if err != nil {
		var zero E
		return zero, err
	}
	return s.fromBytes(buf), nil
}

// GetMany returns every entity whose key satisfies match, used for partial-
// key queries (spec §4.6: "get_many(partial_key)"), e.g. every Liquidity a
// given provider holds across all pools.
func (s *KeyedStore[E, K]) GetMany(match func(K) bool) ([]E, error) {
	var out []E
	for k, idx := range s.index {
		if !match(k) {
			continue
		}
		buf, err := s.list.Get(idx)
		if err != nil {
			return nil, err
		}
		out = append(out, s.fromBytes(buf))
	}
	return out, nil
}

// Len returns the number of entities currently stored.
func (s *KeyedStore[E, K]) Len() (uint64, error) { return s.list.Len() }

// GetSingleWitness passes through to the tree.
func (s *KeyedStore[E, K]) GetSingleWitness(index uint64) (merkle.SingleMerkleWitness, error) {
	return s.tree.GetSingleWitness(index)
}

// GetDoubleWitness passes through to the tree.
func (s *KeyedStore[E, K]) GetDoubleWitness(i1, i2 uint64) (merkle.DoubleMerkleWitness, error) {
	return s.tree.GetDoubleWitness(i1, i2)
}

// GetNewSingleWitness passes through to the tree, for the next not-yet-
// pushed leaf index.
func (s *KeyedStore[E, K]) GetNewSingleWitness() (merkle.SingleMerkleWitness, error) {
	return s.tree.GetUnusedSingleWitness()
}

// GetRoot passes through to the tree.
func (s *KeyedStore[E, K]) GetRoot() (field.Field, error) { return s.tree.GetRoot() }

// Close releases the list's and tree's underlying file handles.
func (s *KeyedStore[E, K]) Close() error {
	if err := s.list.Close(); err != nil {
		return err
	}
	return s.tree.Close()
}
