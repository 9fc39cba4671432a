package stores

import (
	"encoding/binary"
	"path/filepath"

	"github.com/zkamm/rollup/internal/domain"
	"github.com/zkamm/rollup/internal/field"
	"github.com/zkamm/rollup/internal/merkle"
	"github.com/zkamm/rollup/internal/rolluperr"
	"github.com/zkamm/rollup/internal/storage"
)

// WithdrawalsTreeHeight is fixed to match the external circuit (spec §3).
const WithdrawalsTreeHeight = 19

const burnIndexRecordSize = 8

// WithdrawalsStore is the domain store over Withdrawal entities. It is
// backed by a static tree like Pools, plus a second append-only list
// mapping each Burns-DB position to the Withdrawals-DB index it
// aggregates into (spec §4.6). Update rewrites only the withdrawal record;
// the burn-position list grows only through RecordBurnWithdrawal. A burn
// debits one Burns-DB entry but
// credits the withdrawer's running Withdrawals-DB total, and
// GetBridgeWitnesses (spec §6.5) needs to go from a burn's position straight
// to its withdrawal's witness without a second natural-key lookup.
type WithdrawalsStore struct {
	records   *storage.DynamicList
	tree      *merkle.StaticMerkleTree
	burnIndex *storage.DynamicList
	hasher    field.EntityHasher
	index     map[domain.WithdrawalKey]uint64
}

// OpenWithdrawalsStore opens (or creates) the Withdrawals store under dir.
func OpenWithdrawalsStore(dir string, hasher field.EntityHasher) (*WithdrawalsStore, error) {
	records, err := storage.OpenDynamicList(filepath.Join(dir, "records"), domain.WithdrawalSize)
	if err != nil {
		return nil, err
	}
	tree, err := merkle.OpenStaticMerkleTree(filepath.Join(dir, "tree.bin"), WithdrawalsTreeHeight, hasher)
	if err != nil {
		return nil, err
	}
	burnIndex, err := storage.OpenDynamicList(filepath.Join(dir, "burn_index"), burnIndexRecordSize)
	if err != nil {
		return nil, err
	}

	s := &WithdrawalsStore{records: records, tree: tree, burnIndex: burnIndex, hasher: hasher, index: make(map[domain.WithdrawalKey]uint64)}

	if err := records.ForEach(func(buf []byte, index uint64) error {
		var a [domain.WithdrawalSize]byte
		copy(a[:], buf)
		w := domain.WithdrawalFromBytes(a)
		s.index[w.Key()] = index
		return nil
	}); err != nil {
		return nil, err
	}

	return s, nil
}

// Push appends a new withdrawal record, erroring with ErrAlreadyExists if
// the (withdrawer, token_id) pair is already mapped.
func (s *WithdrawalsStore) Push(w domain.Withdrawal) (uint64, error) {
	k := w.Key()
	if _, ok := s.index[k]; ok {
		return 0, rolluperr.ErrAlreadyExists
	}
	b := w.ToBytes()
	idx, err := s.records.Push(b[:])
	if err != nil {
		return 0, err
	}
	s.index[k] = idx
	return idx, nil
}

// PushLeaf / UpdateLeaf both reduce to SetLeaf on the fully materialised
// static tree.
func (s *WithdrawalsStore) PushLeaf(w domain.Withdrawal) error { return s.writeLeaf(w) }
func (s *WithdrawalsStore) UpdateLeaf(w domain.Withdrawal) error { return s.writeLeaf(w) }

func (s *WithdrawalsStore) writeLeaf(w domain.Withdrawal) error {
	idx, ok := s.index[w.Key()]
	if !ok {
		return rolluperr.ErrDoesntExist
	}
	return s.tree.SetLeaf(idx, s.hasher.HashFields(toWithdrawalFields(w, s.hasher)))
}

func toWithdrawalFields(w domain.Withdrawal, h field.EntityHasher) []field.Field {
	f := w.ToFields(h)
	return f[:]
}

// Update rewrites w's bytes at its list index.
func (s *WithdrawalsStore) Update(w domain.Withdrawal) error {
	idx, ok := s.index[w.Key()]
	if !ok {
		return rolluperr.ErrDoesntExist
	}
	b := w.ToBytes()
	return s.records.Set(idx, b[:])
}

// Get returns the withdrawal mapped to key and its list/tree index.
func (s *WithdrawalsStore) Get(key domain.WithdrawalKey) (domain.Withdrawal, uint64, error) {
	idx, ok := s.index[key]
	if !ok {
		return domain.Withdrawal{}, 0, rolluperr.ErrDoesntExist
	}
	buf, err := s.records.Get(idx)
	if err != nil {
		return domain.Withdrawal{}, 0, err
	}
	var a [domain.WithdrawalSize]byte
	copy(a[:], buf)
	return domain.WithdrawalFromBytes(a), idx, nil
}

// GetByIndex returns the withdrawal at a known list/tree index directly.
func (s *WithdrawalsStore) GetByIndex(index uint64) (domain.Withdrawal, error) {
	buf, err := s.records.Get(index)
	if err != nil {
		return domain.Withdrawal{}, err
	}
	var a [domain.WithdrawalSize]byte
	copy(a[:], buf)
	return domain.WithdrawalFromBytes(a), nil
}

// RecordBurnWithdrawal appends withdrawalIndex to the burn-position index
// list. Callers must call this once per burn, in increasing burn-position
// order (the list is append-only and positional, so burnPosition must
// equal the list's current length).
func (s *WithdrawalsStore) RecordBurnWithdrawal(burnPosition, withdrawalIndex uint64) error {
	length, err := s.burnIndex.Len()
	if err != nil {
		return err
	}
	if burnPosition != length {
		return rolluperr.ErrUnusableIndex
	}
	var buf [burnIndexRecordSize]byte
	binary.LittleEndian.PutUint64(buf[:], withdrawalIndex)
	_, err = s.burnIndex.Push(buf[:])
	return err
}

// WithdrawalIndexForBurn returns the Withdrawals-DB index a given burn
// position aggregated into, used by GetBridgeWitnesses (spec §6.5).
func (s *WithdrawalsStore) WithdrawalIndexForBurn(burnPosition uint64) (uint64, error) {
	buf, err := s.burnIndex.Get(burnPosition)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf), nil
}

// GetSingleWitness passes through to the tree.
func (s *WithdrawalsStore) GetSingleWitness(index uint64) (merkle.SingleMerkleWitness, error) {
	return s.tree.GetSingleWitness(index)
}

// GetNewSingleWitness returns the witness for the next not-yet-pushed
// index; a fresh static-tree slot is already a valid zero leaf.
func (s *WithdrawalsStore) GetNewSingleWitness() (merkle.SingleMerkleWitness, error) {
	next, err := s.records.Len()
	if err != nil {
		return merkle.SingleMerkleWitness{}, err
	}
	return s.tree.GetSingleWitness(next)
}

// GetRoot passes through to the tree.
func (s *WithdrawalsStore) GetRoot() (field.Field, error) { return s.tree.GetRoot() }

// Close releases every underlying file handle.
func (s *WithdrawalsStore) Close() error {
	if err := s.records.Close(); err != nil {
		return err
	}
	if err := s.burnIndex.Close(); err != nil {
		return err
	}
	return s.tree.Close()
}
