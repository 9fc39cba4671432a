package rpcserver

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/zkamm/rollup/internal/domain"
	"github.com/zkamm/rollup/internal/field"
	"github.com/zkamm/rollup/internal/metrics"
	"github.com/zkamm/rollup/internal/queue"
	"github.com/zkamm/rollup/internal/stores"
	"github.com/zkamm/rollup/internal/txdb"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	hasher := field.DefaultHasher()

	db, err := txdb.Open(dir + "/txdb")
	if err != nil {
		t.Fatalf("txdb.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	mempool, err := queue.OpenMempool(dir)
	if err != nil {
		t.Fatalf("OpenMempool: %v", err)
	}
	t.Cleanup(func() { mempool.Close() })

	balances, err := stores.OpenBalancesStore(dir, hasher)
	if err != nil {
		t.Fatalf("OpenBalancesStore: %v", err)
	}
	pools, err := stores.OpenPoolsStore(dir, hasher)
	if err != nil {
		t.Fatalf("OpenPoolsStore: %v", err)
	}
	liquidities, err := stores.OpenLiquiditiesStore(dir, hasher)
	if err != nil {
		t.Fatalf("OpenLiquiditiesStore: %v", err)
	}
	burns, err := stores.OpenBurnsStore(dir, hasher)
	if err != nil {
		t.Fatalf("OpenBurnsStore: %v", err)
	}
	withdrawals, err := stores.OpenWithdrawalsStore(dir, hasher)
	if err != nil {
		t.Fatalf("OpenWithdrawalsStore: %v", err)
	}

	return New(db, mempool, balances, pools, liquidities, burns, withdrawals)
}

func TestDispatch_GetTotalTxCount(t *testing.T) {
	s := newTestServer(t)

	var req [domain.TransactionSize]byte
	req[0] = methodGetTotalTxCount
	resp := s.dispatch(req)

	if len(resp) != 9 || resp[0] != kindTotalTxCount {
		t.Fatalf("resp = %v, want kindTotalTxCount + 8 bytes", resp)
	}
	if got := binary.LittleEndian.Uint64(resp[1:]); got != 0 {
		t.Fatalf("tx count = %d, want 0", got)
	}
}

func TestDispatch_UnknownMethod(t *testing.T) {
	s := newTestServer(t)

	var req [domain.TransactionSize]byte
	req[0] = 200
	resp := s.dispatch(req)

	if len(resp) != 1 || resp[0] != kindClientError {
		t.Fatalf("resp = %v, want kindClientError", resp)
	}
}

func TestDispatch_DebugMetrics(t *testing.T) {
	s := newTestServer(t)

	metrics.Standard().Counter(metrics.TxAdmitted).Inc()
	metrics.Standard().Gauge(metrics.MempoolDepth).Set(3)
	metrics.Standard().Histogram(metrics.ProverRoundTripMillis).Observe(12)

	var req [domain.TransactionSize]byte
	req[0] = methodGetDebugMetrics
	resp := s.dispatch(req)

	wantLen := 1 + 8*(len(debugCounters)+len(debugGauges)) + 40*len(debugHistograms) + 1
	if len(resp) != wantLen {
		t.Fatalf("resp len = %d, want %d", len(resp), wantLen)
	}
	if resp[0] != kindDebugMetrics {
		t.Fatalf("resp[0] = %d, want kindDebugMetrics", resp[0])
	}

	off := 1
	admitted := binary.LittleEndian.Uint64(resp[off:])
	if admitted == 0 {
		t.Fatalf("tx_admitted_total = 0, want > 0")
	}

	gaugesOff := off + 8*len(debugCounters)
	mempoolDepth := binary.LittleEndian.Uint64(resp[gaugesOff:])
	if mempoolDepth != 3 {
		t.Fatalf("mempool_depth = %d, want 3", mempoolDepth)
	}

	histOff := gaugesOff + 8*len(debugGauges)
	count := binary.LittleEndian.Uint64(resp[histOff:])
	if count != 1 {
		t.Fatalf("prover histogram count = %d, want 1", count)
	}
	sum := math.Float64frombits(binary.LittleEndian.Uint64(resp[histOff+8:]))
	if sum != 12 {
		t.Fatalf("prover histogram sum = %v, want 12", sum)
	}
}

func TestDispatch_Submit(t *testing.T) {
	s := newTestServer(t)

	var req [domain.TransactionSize]byte
	req[0] = methodBurnTokens
	req[1] = 1 // arbitrary address byte, decoded but not verified until the executor runs
	resp := s.dispatch(req)

	if len(resp) != 9 || resp[0] != kindTxID {
		t.Fatalf("resp = %v, want kindTxID + 8 bytes", resp)
	}
	if got := binary.LittleEndian.Uint64(resp[1:]); got != 0 {
		t.Fatalf("tx id = %d, want 0", got)
	}

	count, err := s.db.TxCount()
	if err != nil {
		t.Fatalf("TxCount: %v", err)
	}
	if count != 1 {
		t.Fatalf("tx count = %d, want 1", count)
	}
}
