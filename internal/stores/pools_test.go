package stores

import (
	"testing"

	"github.com/zkamm/rollup/internal/domain"
	"github.com/zkamm/rollup/internal/field"
	"github.com/zkamm/rollup/internal/rolluperr"
)

func mustOpenPools(t *testing.T) *PoolsStore {
	t.Helper()
	s, err := OpenPoolsStore(t.TempDir(), field.DefaultHasher())
	if err != nil {
		t.Fatalf("OpenPoolsStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPoolsPushGetUpdate(t *testing.T) {
	s := mustOpenPools(t)
	p := domain.Pool{
		BaseTokenID: field.U256FromUint64(1), QuoteTokenID: field.U256FromUint64(2),
		BaseTokenAmount: 1000, QuoteTokenAmount: 2000,
		TotalLiquidityPoints: field.U256FromUint64(2000000),
	}

	idx, err := s.Push(p)
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if err := s.PushLeaf(p); err != nil {
		t.Fatalf("PushLeaf: %v", err)
	}

	got, gotIdx, err := s.Get(p.Key())
	if err != nil || got != p || gotIdx != idx {
		t.Fatalf("Get = %+v,%d,%v want %+v,%d,nil", got, gotIdx, err, p, idx)
	}

	p.BaseTokenAmount = 1100
	if err := s.Update(p); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := s.UpdateLeaf(p); err != nil {
		t.Fatalf("UpdateLeaf: %v", err)
	}
	got, _, err = s.Get(p.Key())
	if err != nil || got.BaseTokenAmount != 1100 {
		t.Fatalf("Get after update = %+v, err %v", got, err)
	}
}

func TestPoolsPushDuplicateFails(t *testing.T) {
	s := mustOpenPools(t)
	p := domain.Pool{BaseTokenID: field.U256FromUint64(1), QuoteTokenID: field.U256FromUint64(2)}
	if _, err := s.Push(p); err != nil {
		t.Fatalf("first Push: %v", err)
	}
	if _, err := s.Push(p); err != rolluperr.ErrAlreadyExists {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestPoolsWitnessSoundness(t *testing.T) {
	s := mustOpenPools(t)
	p := domain.Pool{BaseTokenID: field.U256FromUint64(1), QuoteTokenID: field.U256FromUint64(2), BaseTokenAmount: 5, QuoteTokenAmount: 6}
	idx, err := s.Push(p)
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if err := s.PushLeaf(p); err != nil {
		t.Fatalf("PushLeaf: %v", err)
	}

	w, err := s.GetSingleWitness(idx)
	if err != nil {
		t.Fatalf("GetSingleWitness: %v", err)
	}
	root, err := s.GetRoot()
	if err != nil {
		t.Fatalf("GetRoot: %v", err)
	}

	hasher := field.DefaultHasher()
	leaf := hasher.HashFields(p.ToFields()[:])
	if recomputed := w.CalculateRoot(hasher, leaf); !recomputed.Eq(root) {
		t.Fatalf("witness did not recompute root")
	}
}
