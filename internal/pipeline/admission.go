package pipeline

import (
	"github.com/zkamm/rollup/internal/domain"
	"github.com/zkamm/rollup/internal/metrics"
	"github.com/zkamm/rollup/internal/queue"
	"github.com/zkamm/rollup/internal/txdb"
)

// Admit is the single admission path shared by the RPC surface's
// submit_transaction handler and the fetcher's synthesized DepositTokens
// transactions: it reserves the next tx id in the watermark file, then
// pushes the transaction onto the mempool in that same order. Both steps
// must succeed in this order -- a tx id that is reserved but never
// reaches the mempool is indistinguishable from one still Pending. A
// mempool push failure after a successful AddNewTx is returned to the
// caller; Admit neither retries nor releases the id. The RPC surface
// answers it with a server error, and the fetcher logs the failed poll and
// keeps polling.
func Admit(db *txdb.TransactionsDb, mempool *queue.Mempool, tx domain.Transaction) (uint64, error) {
	id, err := db.AddNewTx()
	if err != nil {
		return 0, err
	}
	if err := mempool.Push(tx); err != nil {
		return 0, err
	}
	metrics.Standard().Counter(metrics.TxAdmitted).Inc()
	if depth, derr := mempool.Depth(); derr == nil {
		metrics.Standard().Gauge(metrics.MempoolDepth).Set(int64(depth))
	}
	return id, nil
}
