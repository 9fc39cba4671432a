// Package queue holds the two on-disk FIFOs that sit between the RPC
// surface / fetcher and the pipeline stages: Mempool (pending client and
// deposit transactions awaiting execution) and Proofpool (executed
// transactions awaiting proof generation).
package queue

import (
	"path/filepath"

	"github.com/zkamm/rollup/internal/domain"
	"github.com/zkamm/rollup/internal/storage"
)

// Mempool is a typed FIFO of Transaction frames, populated by the RPC
// server (client-submitted transactions) and the fetcher (synthesized
// DepositTokens transactions) and drained by the executor.
type Mempool struct {
	queue *storage.DynamicQueue
}

// OpenMempool opens (or creates) the mempool queue file under dir.
func OpenMempool(dir string) (*Mempool, error) {
	q, err := storage.OpenDynamicQueue(filepath.Join(dir, "mempool"), domain.TransactionSize)
	if err != nil {
		return nil, err
	}
	return &Mempool{queue: q}, nil
}

// Push appends a transaction to the end of the mempool.
func (m *Mempool) Push(tx domain.Transaction) error {
	b := tx.ToBytes()
	return m.queue.Push(b[:])
}

// Pop removes and returns the oldest transaction, or ok=false if empty.
func (m *Mempool) Pop() (domain.Transaction, bool, error) {
	buf, ok, err := m.queue.Pop()
	if err != nil || !ok {
		return domain.Transaction{}, ok, err
	}
	var a [domain.TransactionSize]byte
	copy(a[:], buf)
	tx, err := domain.TransactionFromBytes(a)
	if err != nil {
		return domain.Transaction{}, false, err
	}
	return tx, true, nil
}

// Depth returns the number of transactions currently queued, for the
// mempool_depth gauge.
func (m *Mempool) Depth() (uint64, error) { return m.queue.Depth() }

// Close releases the underlying file handle.
func (m *Mempool) Close() error { return m.queue.Close() }
