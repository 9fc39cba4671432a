package queue

import (
	"path/filepath"

	"github.com/zkamm/rollup/internal/domain"
	"github.com/zkamm/rollup/internal/storage"
)

// Proofpool is a typed FIFO of executed StatefulTransaction frames,
// populated by the executor and drained by the generator. The original
// Proofpool (proofpool/src/proofpool.rs) queues plain Transaction frames
// and relies on the generator reading store state at pop time to recover
// pre-state; this module's stores are free to keep mutating between a
// push and the generator's eventual pop (the proofpool can back up behind
// a slow prover, spec §5 "Backpressure"), so the generator cannot safely
// recompute a transaction's pre-state from current store contents. The
// executor therefore snapshots the exact pre-state it read into the
// StatefulTransaction frame at push time (see domain.StatefulTransaction),
// and the generator reads it back out unchanged at pop time.
type Proofpool struct {
	queue *storage.DynamicQueue
}

// OpenProofpool opens (or creates) the proofpool queue file under dir.
func OpenProofpool(dir string) (*Proofpool, error) {
	q, err := storage.OpenDynamicQueue(filepath.Join(dir, "proofpool"), domain.StatefulTransactionSize)
	if err != nil {
		return nil, err
	}
	return &Proofpool{queue: q}, nil
}

// Push appends an executed, stateful transaction to the end of the proofpool.
func (p *Proofpool) Push(st domain.StatefulTransaction) error {
	b := st.ToBytes()
	return p.queue.Push(b[:])
}

// Pop removes and returns the oldest stateful transaction, or ok=false if empty.
func (p *Proofpool) Pop() (domain.StatefulTransaction, bool, error) {
	buf, ok, err := p.queue.Pop()
	if err != nil || !ok {
		return domain.StatefulTransaction{}, ok, err
	}
	var a [domain.StatefulTransactionSize]byte
	copy(a[:], buf)
	st, err := domain.StatefulTransactionFromBytes(a)
	if err != nil {
		return domain.StatefulTransaction{}, false, err
	}
	return st, true, nil
}

// Depth returns the number of stateful transactions currently queued, for
// the proofpool_depth gauge.
func (p *Proofpool) Depth() (uint64, error) { return p.queue.Depth() }

// Close releases the underlying file handle.
func (p *Proofpool) Close() error { return p.queue.Close() }
