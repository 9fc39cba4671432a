// Package fetcher implements the L1 polling loop that turns deposit and
// withdrawal events from a side-car process into rollup-local state
// (spec §4.11). Grounded on original_source/processes/src/fetcher's
// process.rs (two request kinds, one tokio::time::sleep(60s) loop, the
// "look up burn row then record the withdrawal" shape) and the teacher's
// pkg/sync/fetcher.go poll-loop texture (named Processor type, explicit
// Start/Stop, a single background goroutine).
package fetcher

import (
	"encoding/binary"
	"errors"
	"time"

	"github.com/zkamm/rollup/internal/domain"
	"github.com/zkamm/rollup/internal/eventsdb"
	"github.com/zkamm/rollup/internal/pipeline"
	"github.com/zkamm/rollup/internal/queue"
	"github.com/zkamm/rollup/internal/rlog"
	"github.com/zkamm/rollup/internal/rolluperr"
	"github.com/zkamm/rollup/internal/stores"
	"github.com/zkamm/rollup/internal/txdb"
)

const pollInterval = 60 * time.Second

const (
	methodDeposits    = 0
	methodWithdrawals = 1
)

// SideCar is the L1 event source (spec §4.11: "request frame
// [method_id:1 | from_block:4], response [last_block:4 | count:4 |
// record[95]*count]"). A concrete implementation backs onto
// internal/proverproc's raw WriteFrame/ReadFull.
type SideCar interface {
	WriteFrame(frame []byte) error
	ReadFull(buf []byte) error
}

// Fetcher drives the 60-second poll loop against SideCar, admitting
// DepositTokens transactions through the same path the RPC surface uses
// and updating the Withdrawals store directly (withdrawals sit outside
// the proof system -- domain.StateRoots carries no Withdrawals root --
// so there is no executor/generator handoff for them).
type Fetcher struct {
	sideCar     SideCar
	events      *eventsdb.EventsDb
	db          *txdb.TransactionsDb
	mempool     *queue.Mempool
	burns       *stores.BurnsStore
	withdrawals *stores.WithdrawalsStore
	log         *rlog.Logger

	stop chan struct{}
	done chan struct{}
}

// New wires a Fetcher against the shared pipeline stores.
func New(
	sideCar SideCar,
	events *eventsdb.EventsDb,
	db *txdb.TransactionsDb,
	mempool *queue.Mempool,
	burns *stores.BurnsStore,
	withdrawals *stores.WithdrawalsStore,
) *Fetcher {
	return &Fetcher{
		sideCar: sideCar, events: events, db: db, mempool: mempool,
		burns: burns, withdrawals: withdrawals,
		log:  rlog.Default().Module("fetcher"),
		stop: make(chan struct{}), done: make(chan struct{}),
	}
}

// Name implements service.Service.
func (f *Fetcher) Name() string { return "fetcher" }

// Start implements service.Service: launches the poll loop in its own
// goroutine and returns immediately.
func (f *Fetcher) Start() error {
	go f.run()
	return nil
}

// Stop implements service.Service: signals the poll loop to exit and
// waits for it to do so.
func (f *Fetcher) Stop() error {
	close(f.stop)
	<-f.done
	return nil
}

func (f *Fetcher) run() {
	defer close(f.done)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.stop:
			return
		case <-ticker.C:
			if err := f.pollOnce(); err != nil {
				f.log.Error("poll failed", "error", err)
			}
		}
	}
}

// pollOnce fetches both event streams once and advances the events DB
// watermark, matching process.rs's single per-tick pass over both
// streams followed by one atomic watermark write.
func (f *Fetcher) pollOnce() error {
	fromDeposited, fromWithdrawn, err := f.events.GetLastFetchedBlocks()
	if err != nil {
		return err
	}

	lastDeposited, deposits, err := f.fetchRecords(methodDeposits, fromDeposited)
	if err != nil {
		return err
	}
	for _, d := range deposits {
		if err := f.admitDeposit(d); err != nil {
			return err
		}
	}

	lastWithdrawn, withdrawals, err := f.fetchWithdrawalRecords(fromWithdrawn)
	if err != nil {
		return err
	}
	for _, w := range withdrawals {
		if err := f.recordWithdrawal(w); err != nil {
			return err
		}
	}

	return f.events.SetLastFetchedBlocks(lastDeposited, lastWithdrawn)
}

func (f *Fetcher) admitDeposit(d domain.Deposit) error {
	tx := domain.NewDepositTokens(d.Depositor, d.TokenID, d.TokenAmount)
	_, err := pipeline.Admit(f.db, f.mempool, tx)
	return err
}

// recordWithdrawal looks up the burn row the event discharges and
// either updates its already-linked withdrawal total or, the first time
// that burn position is ever withdrawn, creates the withdrawal row and
// links it (spec §4.11: "looks up the corresponding burn row's index and
// records the withdrawal at that same index"). Withdrawal events are
// assumed to arrive in the same relative order their underlying burns
// were executed in (a burn must precede its own withdrawal causally),
// so RecordBurnWithdrawal's positional append-only ordering constraint
// holds naturally; an event for a burn this rollup hasn't executed yet
// is skipped rather than treated as fatal, since the side-car may be
// slightly ahead of this rollup's own burn processing.
func (f *Fetcher) recordWithdrawal(w domain.Withdrawal) error {
	key := domain.BurnKey{Burner: w.Withdrawer, TokenID: w.TokenID}
	_, burnIdx, err := f.burns.Get(key)
	if errors.Is(err, rolluperr.ErrDoesntExist) {
		f.log.Warn("withdrawal event for unknown burn, skipping", "withdrawer", w.Withdrawer, "token_id", w.TokenID)
		return nil
	}
	if err != nil {
		return err
	}

	withdrawalIdx, err := f.withdrawals.WithdrawalIndexForBurn(burnIdx)
	if errors.Is(err, rolluperr.ErrIndexOutOfBounds) {
		return f.linkNewWithdrawal(burnIdx, w)
	}
	if err != nil {
		return err
	}

	existing, err := f.withdrawals.GetByIndex(withdrawalIdx)
	if err != nil {
		return err
	}
	existing.TokenAmount += w.TokenAmount
	if err := f.withdrawals.Update(existing); err != nil {
		return err
	}
	return f.withdrawals.UpdateLeaf(existing)
}

func (f *Fetcher) linkNewWithdrawal(burnIdx uint64, w domain.Withdrawal) error {
	withdrawalIdx, err := f.withdrawals.Push(w)
	if err != nil {
		return err
	}
	if err := f.withdrawals.PushLeaf(w); err != nil {
		return err
	}
	return f.withdrawals.RecordBurnWithdrawal(burnIdx, withdrawalIdx)
}

// fetchRecords issues one request frame for methodID and decodes its
// response into Deposit records (spec §4.11 wire format).
func (f *Fetcher) fetchRecords(methodID byte, fromBlock uint32) (uint32, []domain.Deposit, error) {
	lastBlock, bufs, err := f.request(methodID, fromBlock)
	if err != nil {
		return 0, nil, err
	}
	deposits := make([]domain.Deposit, 0, len(bufs))
	for _, buf := range bufs {
		var a [domain.DepositSize]byte
		copy(a[:], buf)
		deposits = append(deposits, domain.DepositFromBytes(a))
	}
	return lastBlock, deposits, nil
}

func (f *Fetcher) fetchWithdrawalRecords(fromBlock uint32) (uint32, []domain.Withdrawal, error) {
	lastBlock, bufs, err := f.request(methodWithdrawals, fromBlock)
	if err != nil {
		return 0, nil, err
	}
	out := make([]domain.Withdrawal, 0, len(bufs))
	for _, buf := range bufs {
		var a [domain.WithdrawalSize]byte
		copy(a[:], buf)
		out = append(out, domain.WithdrawalFromBytes(a))
	}
	return lastBlock, out, nil
}

// request performs the common request/response exchange shared by both
// event kinds: write [method_id:1 | from_block:4], read back
// [last_block:4 | count:4 | record[95]*count]. A last_block of 0 in the
// response means "no progress", in which case the caller's own
// from_block is preserved (process.rs: "match u32::from_bytes(&output) {
// 0 => from_block, x => x }").
func (f *Fetcher) request(methodID byte, fromBlock uint32) (uint32, [][]byte, error) {
	var req [5]byte
	req[0] = methodID
	binary.LittleEndian.PutUint32(req[1:], fromBlock)
	if err := f.sideCar.WriteFrame(req[:]); err != nil {
		return 0, nil, err
	}

	var header [8]byte
	if err := f.sideCar.ReadFull(header[:]); err != nil {
		return 0, nil, err
	}
	lastBlock := binary.LittleEndian.Uint32(header[0:4])
	if lastBlock == 0 {
		lastBlock = fromBlock
	}
	count := binary.LittleEndian.Uint32(header[4:8])

	records := make([][]byte, count)
	for i := range records {
		buf := make([]byte, domain.DepositSize)
		if err := f.sideCar.ReadFull(buf); err != nil {
			return 0, nil, err
		}
		records[i] = buf
	}
	return lastBlock, records, nil
}
