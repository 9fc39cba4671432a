package queue

import (
	"testing"

	"github.com/zkamm/rollup/internal/domain"
	"github.com/zkamm/rollup/internal/field"
)

func testTx(t *testing.T) domain.Transaction {
	t.Helper()
	addr, err := domain.ParseAddress("B62qoTFrus93Ryi1VzbFakzErBBmcikHEq27vhMkU4FfjGfCovv41fb")
	if err != nil {
		t.Fatalf("ParseAddress: %v", err)
	}
	var sig domain.Signature
	return domain.NewBurnTokens(addr, sig, field.U256FromUint64(1), 100)
}

func TestMempoolPushPopFIFO(t *testing.T) {
	m, err := OpenMempool(t.TempDir())
	if err != nil {
		t.Fatalf("OpenMempool: %v", err)
	}
	defer m.Close()

	tx1 := testTx(t)
	tx2 := testTx(t)
	tx2.Amount1 = 200

	if err := m.Push(tx1); err != nil {
		t.Fatalf("Push tx1: %v", err)
	}
	if err := m.Push(tx2); err != nil {
		t.Fatalf("Push tx2: %v", err)
	}

	got1, ok, err := m.Pop()
	if err != nil || !ok {
		t.Fatalf("Pop 1: ok=%v err=%v", ok, err)
	}
	if got1.Amount1 != tx1.Amount1 {
		t.Fatalf("Pop 1 = %+v, want %+v", got1, tx1)
	}

	got2, ok, err := m.Pop()
	if err != nil || !ok {
		t.Fatalf("Pop 2: ok=%v err=%v", ok, err)
	}
	if got2.Amount1 != tx2.Amount1 {
		t.Fatalf("Pop 2 = %+v, want %+v", got2, tx2)
	}

	_, ok, err = m.Pop()
	if err != nil {
		t.Fatalf("Pop empty: %v", err)
	}
	if ok {
		t.Fatalf("Pop on empty mempool returned ok=true")
	}
}

func TestProofpoolPushPopFIFO(t *testing.T) {
	p, err := OpenProofpool(t.TempDir())
	if err != nil {
		t.Fatalf("OpenProofpool: %v", err)
	}
	defer p.Close()

	tx := testTx(t)
	st := domain.StatefulTransaction{
		Transaction: tx,
		BurnState:   &domain.BurnTokensState{UserBurnTokenAmount: 100, UserBalanceTokenAmount: 500},
	}
	if err := p.Push(st); err != nil {
		t.Fatalf("Push: %v", err)
	}

	got, ok, err := p.Pop()
	if err != nil || !ok {
		t.Fatalf("Pop: ok=%v err=%v", ok, err)
	}
	if got.Transaction.Amount1 != tx.Amount1 || got.Transaction.Kind != tx.Kind {
		t.Fatalf("Pop tx = %+v, want %+v", got.Transaction, tx)
	}
	if got.BurnState == nil || *got.BurnState != *st.BurnState {
		t.Fatalf("Pop BurnState = %+v, want %+v", got.BurnState, st.BurnState)
	}
}
