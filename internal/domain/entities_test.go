package domain

import (
	"testing"

	"github.com/zkamm/rollup/internal/field"
)

func testAddr(t *testing.T) Address {
	t.Helper()
	a, err := ParseAddress("B62qoTFrus93Ryi1VzbFakzErBBmcikHEq27vhMkU4FfjGfCovv41fb")
	if err != nil {
		t.Fatalf("ParseAddress: %v", err)
	}
	return a
}

func TestBalanceByteRoundTrip(t *testing.T) {
	b := Balance{Owner: testAddr(t), TokenID: field.U256FromUint64(7), TokenAmount: 150}
	got := BalanceFromBytes(b.ToBytes())
	if got != b {
		t.Fatalf("BalanceFromBytes(ToBytes()) = %+v, want %+v", got, b)
	}
}

func TestBurnByteRoundTrip(t *testing.T) {
	b := Burn{Burner: testAddr(t), TokenID: field.U256FromUint64(3), TokenAmount: 42}
	got := BurnFromBytes(b.ToBytes())
	if got != b {
		t.Fatalf("BurnFromBytes(ToBytes()) = %+v, want %+v", got, b)
	}
}

func TestWithdrawalByteRoundTrip(t *testing.T) {
	w := Withdrawal{Withdrawer: testAddr(t), TokenID: field.U256FromUint64(9), TokenAmount: 12}
	got := WithdrawalFromBytes(w.ToBytes())
	if got != w {
		t.Fatalf("WithdrawalFromBytes(ToBytes()) = %+v, want %+v", got, w)
	}
}

func TestDepositByteRoundTrip(t *testing.T) {
	d := Deposit{Depositor: testAddr(t), TokenID: field.U256FromUint64(9), TokenAmount: 12}
	got := DepositFromBytes(d.ToBytes())
	if got != d {
		t.Fatalf("DepositFromBytes(ToBytes()) = %+v, want %+v", got, d)
	}
}

func TestLiquidityByteRoundTrip(t *testing.T) {
	l := Liquidity{
		Provider:     testAddr(t),
		BaseTokenID:  field.U256FromUint64(1),
		QuoteTokenID: field.U256FromUint64(2),
		Points:       field.U256FromUint64(1000),
	}
	got := LiquidityFromBytes(l.ToBytes())
	if got != l {
		t.Fatalf("LiquidityFromBytes(ToBytes()) = %+v, want %+v", got, l)
	}
}

func TestPoolByteRoundTrip(t *testing.T) {
	p := Pool{
		BaseTokenID:          field.U256FromUint64(1),
		QuoteTokenID:         field.U256FromUint64(2),
		BaseTokenAmount:      500,
		QuoteTokenAmount:     900,
		TotalLiquidityPoints: field.U256FromUint64(450000),
	}
	got := PoolFromBytes(p.ToBytes())
	if got != p {
		t.Fatalf("PoolFromBytes(ToBytes()) = %+v, want %+v", got, p)
	}
}

func TestStateRootsByteRoundTrip(t *testing.T) {
	r := StateRoots{
		Balances:    field.U256FromUint64(1),
		Liquidities: field.U256FromUint64(2),
		Pools:       field.U256FromUint64(3),
		Burns:       field.U256FromUint64(4),
	}
	got := StateRootsFromBytes(r.ToBytes())
	if got != r {
		t.Fatalf("StateRootsFromBytes(ToBytes()) = %+v, want %+v", got, r)
	}
}

func TestTxStatusString(t *testing.T) {
	cases := map[TxStatus]string{
		TxPending: "pending", TxRejected: "rejected", TxExecuted: "executed",
		TxProved: "proved", TxSettled: "settled",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Fatalf("TxStatus(%d).String() = %q, want %q", s, got, want)
		}
	}
}

func TestBalanceToFieldsUsesOwnerAndAmount(t *testing.T) {
	h := field.DefaultHasher()
	b := Balance{Owner: testAddr(t), TokenID: field.U256FromUint64(7), TokenAmount: 150}
	fields := b.ToFields(h)
	if !fields[2].Eq(field.FieldFromU256(b.TokenID)) {
		t.Fatalf("fields[2] should be token_id")
	}
	if !fields[3].Eq(field.FieldFromU256(field.U256FromUint64(b.TokenAmount))) {
		t.Fatalf("fields[3] should be token_amount")
	}
}
