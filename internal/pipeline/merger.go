package pipeline

import (
	"github.com/zkamm/rollup/internal/metrics"
	"github.com/zkamm/rollup/internal/rlog"
	"github.com/zkamm/rollup/internal/txdb"
)

// Merger drives the merged_until watermark against an external recursive
// merger process (spec §4.10). No original_source file covers the
// merger; this is built directly from spec.md's two-phase watermark
// state machine: a one-time start_merge(0) once two base proofs exist,
// then repeated continue_merge(merged_until) steps, one per additional
// proved transaction.
type Merger struct {
	db     *txdb.TransactionsDb
	runner MergeRunner
	log    *rlog.Logger
}

// MergeRunner is the external recursive-merger process (spec §4.10:
// "the merger process is expected to hold the recursive proof and
// respond with a 1-byte ack"). StartMerge begins a fresh merge chain at
// the given base-proof index; ContinueMerge extends the held chain with
// the next base proof at index.
type MergeRunner interface {
	StartMerge(index uint64) (ok bool, err error)
	ContinueMerge(index uint64) (ok bool, err error)
}

// NewMerger wires a Merger against the shared watermark store.
func NewMerger(db *txdb.TransactionsDb, runner MergeRunner) *Merger {
	return &Merger{db: db, runner: runner, log: rlog.Default().Module("merger")}
}

// StepOnce advances merged_until by at most one step, per spec §4.10:
//   - if proved_until >= 2 and merged_until == 0: request start_merge(0),
//     on success set merged_until = 2.
//   - else if proved_until > merged_until: request
//     continue_merge(merged_until), on success bump merged_until by one.
//   - else there is nothing to do.
//
// advanced reports whether a step was taken; it is false (with a nil
// error) when the pipeline is caught up. A failed runner round leaves
// merged_until untouched, matching the executor/generator's
// leave-watermarks-untouched failure contract.
func (m *Merger) StepOnce() (advanced bool, err error) {
	provedUntil, err := m.db.ProvedUntil()
	if err != nil {
		return false, err
	}
	mergedUntil, err := m.db.MergedUntil()
	if err != nil {
		return false, err
	}

	if mergedUntil == 0 {
		if provedUntil < 2 {
			return false, nil
		}
		timer := metrics.NewTimer(metrics.Standard().Histogram(metrics.MergerRoundTripMillis))
		ok, err := m.runner.StartMerge(0)
		timer.Stop()
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		if err := m.db.SetMergedUntil(2); err != nil {
			return false, err
		}
		metrics.Standard().Counter(metrics.TxMerged).Add(2)
		m.log.Watermark("merged_until", 2).Info("merge chain started")
		return true, nil
	}

	if provedUntil <= mergedUntil {
		return false, nil
	}
	timer := metrics.NewTimer(metrics.Standard().Histogram(metrics.MergerRoundTripMillis))
	ok, err := m.runner.ContinueMerge(mergedUntil)
	timer.Stop()
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if err := m.db.SetMergedUntil(mergedUntil + 1); err != nil {
		return false, err
	}
	metrics.Standard().Counter(metrics.TxMerged).Inc()
	m.log.Watermark("merged_until", mergedUntil+1).Debug("merge chain extended")
	return true, nil
}
