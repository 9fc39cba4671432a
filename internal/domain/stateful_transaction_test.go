package domain

import (
	"testing"

	"github.com/zkamm/rollup/internal/field"
)

func TestStatefulTransactionCarriesProvideLiquidityState(t *testing.T) {
	addr := testAddr(t)
	var sig Signature
	tx := NewProvideLiquidity(addr, sig, field.U256FromUint64(1), field.U256FromUint64(2), 100, 200)

	st := StatefulTransaction{
		Transaction: tx,
		ProvideLiquidityState: &ProvideLiquidityState{
			UserLiquidityPoints:      field.U256FromUint64(0),
			PoolBaseTokenAmount:      1000,
			PoolQuoteTokenAmount:     2000,
			PoolTotalLiquidityPoints: field.U256FromUint64(2000000),
			IsFirstProviding:         true,
		},
	}

	if st.Transaction.Kind != TxProvideLiquidity {
		t.Fatalf("expected ProvideLiquidity kind")
	}
	if st.ProvideLiquidityState == nil || !st.ProvideLiquidityState.IsFirstProviding {
		t.Fatalf("expected IsFirstProviding state to be carried")
	}
	if st.BurnState != nil {
		t.Fatalf("unrelated state fields should stay nil")
	}
}
