package stores

import (
	"testing"

	"github.com/zkamm/rollup/internal/domain"
	"github.com/zkamm/rollup/internal/field"
	"github.com/zkamm/rollup/internal/rolluperr"
)

func mustOpenBalances(t *testing.T) *BalancesStore {
	t.Helper()
	s, err := OpenBalancesStore(t.TempDir(), field.DefaultHasher())
	if err != nil {
		t.Fatalf("OpenBalancesStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testBalanceAddr(t *testing.T) domain.Address {
	t.Helper()
	a, err := domain.ParseAddress("B62qoTFrus93Ryi1VzbFakzErBBmcikHEq27vhMkU4FfjGfCovv41fb")
	if err != nil {
		t.Fatalf("ParseAddress: %v", err)
	}
	return a
}

func TestBalancesPushThenGet(t *testing.T) {
	s := mustOpenBalances(t)
	b := domain.Balance{Owner: testBalanceAddr(t), TokenID: field.U256FromUint64(0), TokenAmount: 150}

	idx, err := s.Push(b)
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if idx != 0 {
		t.Fatalf("first push index = %d, want 0", idx)
	}

	got, gotIdx, err := s.Get(b.Key())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != b || gotIdx != idx {
		t.Fatalf("Get = %+v,%d want %+v,%d", got, gotIdx, b, idx)
	}
}

func TestBalancesPushDuplicateKeyFails(t *testing.T) {
	s := mustOpenBalances(t)
	b := domain.Balance{Owner: testBalanceAddr(t), TokenID: field.U256FromUint64(0), TokenAmount: 450}

	if _, err := s.Push(b); err != nil {
		t.Fatalf("first Push: %v", err)
	}
	if _, err := s.Push(b); err == nil {
		t.Fatalf("expected second Push with same key to fail")
	} else if err != rolluperr.ErrAlreadyExists {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestBalancesUpdateMissingKeyFails(t *testing.T) {
	s := mustOpenBalances(t)
	b := domain.Balance{Owner: testBalanceAddr(t), TokenID: field.U256FromUint64(0), TokenAmount: 1}
	if err := s.Update(b); err != rolluperr.ErrDoesntExist {
		t.Fatalf("err = %v, want ErrDoesntExist", err)
	}
}

func TestBalancesPushUpdateRootProgresses(t *testing.T) {
	s := mustOpenBalances(t)
	root0, err := s.GetRoot()
	if err != nil {
		t.Fatalf("GetRoot: %v", err)
	}

	b := domain.Balance{Owner: testBalanceAddr(t), TokenID: field.U256FromUint64(0), TokenAmount: 150}
	if _, err := s.Push(b); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if _, err := s.PushLeaf(b); err != nil {
		t.Fatalf("PushLeaf: %v", err)
	}
	root1, err := s.GetRoot()
	if err != nil {
		t.Fatalf("GetRoot: %v", err)
	}
	if root1.Eq(root0) {
		t.Fatalf("root did not change after PushLeaf")
	}

	b.TokenAmount = 90
	if err := s.Update(b); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := s.UpdateLeaf(b); err != nil {
		t.Fatalf("UpdateLeaf: %v", err)
	}
	root2, err := s.GetRoot()
	if err != nil {
		t.Fatalf("GetRoot: %v", err)
	}
	if root2.Eq(root1) {
		t.Fatalf("root did not change after UpdateLeaf")
	}

	got, _, err := s.Get(b.Key())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.TokenAmount != 90 {
		t.Fatalf("TokenAmount = %d, want 90", got.TokenAmount)
	}
}

func TestBalancesGetManyByOwner(t *testing.T) {
	s := mustOpenBalances(t)
	owner := testBalanceAddr(t)
	for _, tid := range []uint64{1, 2, 3} {
		b := domain.Balance{Owner: owner, TokenID: field.U256FromUint64(tid), TokenAmount: tid * 10}
		if _, err := s.Push(b); err != nil {
			t.Fatalf("Push(%d): %v", tid, err)
		}
	}

	got, err := s.GetMany(func(k domain.BalanceKey) bool { return k.Owner == owner })
	if err != nil {
		t.Fatalf("GetMany: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("GetMany returned %d balances, want 3", len(got))
	}
}

func TestBalancesRebuildIndexOnReopen(t *testing.T) {
	dir := t.TempDir()
	hasher := field.DefaultHasher()

	s1, err := OpenBalancesStore(dir, hasher)
	if err != nil {
		t.Fatalf("OpenBalancesStore: %v", err)
	}
	b := domain.Balance{Owner: testBalanceAddr(t), TokenID: field.U256FromUint64(0), TokenAmount: 150}
	if _, err := s1.Push(b); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := OpenBalancesStore(dir, hasher)
	if err != nil {
		t.Fatalf("reopen OpenBalancesStore: %v", err)
	}
	defer s2.Close()

	got, _, err := s2.Get(b.Key())
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if got != b {
		t.Fatalf("Get after reopen = %+v, want %+v", got, b)
	}

	if _, err := s2.Push(b); err != rolluperr.ErrAlreadyExists {
		t.Fatalf("expected rebuilt index to reject duplicate push, got %v", err)
	}
}
