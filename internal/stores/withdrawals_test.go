package stores

import (
	"testing"

	"github.com/zkamm/rollup/internal/domain"
	"github.com/zkamm/rollup/internal/field"
	"github.com/zkamm/rollup/internal/rolluperr"
)

func mustOpenWithdrawals(t *testing.T) *WithdrawalsStore {
	t.Helper()
	s, err := OpenWithdrawalsStore(t.TempDir(), field.DefaultHasher())
	if err != nil {
		t.Fatalf("OpenWithdrawalsStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestWithdrawalsPushAndBurnIndex(t *testing.T) {
	s := mustOpenWithdrawals(t)
	w := domain.Withdrawal{Withdrawer: testBalanceAddr(t), TokenID: field.U256FromUint64(1), TokenAmount: 100}

	idx, err := s.Push(w)
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if err := s.PushLeaf(w); err != nil {
		t.Fatalf("PushLeaf: %v", err)
	}

	if err := s.RecordBurnWithdrawal(0, idx); err != nil {
		t.Fatalf("RecordBurnWithdrawal: %v", err)
	}

	got, err := s.WithdrawalIndexForBurn(0)
	if err != nil {
		t.Fatalf("WithdrawalIndexForBurn: %v", err)
	}
	if got != idx {
		t.Fatalf("WithdrawalIndexForBurn(0) = %d, want %d", got, idx)
	}
}

func TestWithdrawalsRecordBurnWithdrawalRequiresContiguity(t *testing.T) {
	s := mustOpenWithdrawals(t)
	w := domain.Withdrawal{Withdrawer: testBalanceAddr(t), TokenID: field.U256FromUint64(1), TokenAmount: 100}
	idx, _ := s.Push(w)

	if err := s.RecordBurnWithdrawal(1, idx); err != rolluperr.ErrUnusableIndex {
		t.Fatalf("err = %v, want ErrUnusableIndex", err)
	}
	if err := s.RecordBurnWithdrawal(0, idx); err != nil {
		t.Fatalf("RecordBurnWithdrawal(0): %v", err)
	}
}

func TestWithdrawalsUpdateAggregatesAmount(t *testing.T) {
	s := mustOpenWithdrawals(t)
	w := domain.Withdrawal{Withdrawer: testBalanceAddr(t), TokenID: field.U256FromUint64(1), TokenAmount: 100}
	if _, err := s.Push(w); err != nil {
		t.Fatalf("Push: %v", err)
	}

	w.TokenAmount += 50
	if err := s.Update(w); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, _, err := s.Get(w.Key())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.TokenAmount != 150 {
		t.Fatalf("TokenAmount = %d, want 150", got.TokenAmount)
	}
}
