// Package rpcserver implements the query/submission surface described in
// spec.md §6.5: a raw TCP protocol, one fixed-size 264-byte request per
// connection, one variable-length tagged response. Grounded on
// original_source/rpc-server's RpcMethod/RpcResponse enums for the wire
// format and method/response tag values, and on the teacher's
// pkg/rpc/server_extended.go for the server lifecycle shape (an
// atomic-bool started flag, a mutex-guarded listener, Start(addr)/Stop(),
// a running request counter) -- adapted from an HTTP handler onto a raw
// net.Listener accept loop, since spec §6.5 assumes no framing beyond TCP
// itself rather than HTTP.
package rpcserver

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"net"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/zkamm/rollup/internal/domain"
	"github.com/zkamm/rollup/internal/metrics"
	"github.com/zkamm/rollup/internal/pipeline"
	"github.com/zkamm/rollup/internal/queue"
	"github.com/zkamm/rollup/internal/rlog"
	"github.com/zkamm/rollup/internal/rolluperr"
	"github.com/zkamm/rollup/internal/stores"
	"github.com/zkamm/rollup/internal/txdb"
)

// ErrServerStarted mirrors the teacher's sentinel for a double Start call.
var ErrServerStarted = errors.New("rpcserver: already started")

// Method codes, taken as-is from the original RpcMethod enum's
// discriminants so a deployment's method numbering is stable across a
// rewrite.
const (
	methodUnknown = 0
	methodGetTotalTxCount = 1
	methodGetTxStatus = 2
	methodGetBalances = 3
	methodGetPools = 4
	methodGetLiquidities = 5
	methodGetBurns = 6
	methodGetBridgeWitnesses = 7
	methodBurnTokens = 8
	methodCreatePool = 9
	methodProvideLiquidity = 10
	methodRemoveLiquidity = 11
	methodBuyTokens = 12
	methodSellTokens = 13
	methodGetDebugMetrics = 14
)

// Response kind tags (spec §6.5).
const (
	kindClientError      = 0
	kindTotalTxCount     = 1
	kindTxStatus         = 2
	kindBalances         = 3
	kindPools            = 4
	kindLiquidities      = 5
	kindBurns            = 6
	kindBridgeWitnesses  = 7
	kindTxID             = 8
	kindServerError      = 9
	kindDebugMetrics     = 10
)

// debugCounters/debugGauges/debugHistograms fix the order the debug
// snapshot serialises its metrics in -- Registry.Snapshot returns a map,
// which has no stable iteration order, so the wire response enumerates
// the standard catalog explicitly instead of ranging over it.
var debugCounters = []string{
	metrics.TxAdmitted, metrics.TxRejected, metrics.TxExecuted,
	metrics.TxProved, metrics.TxMerged, metrics.TxSettled,
}

var debugGauges = []string{metrics.MempoolDepth, metrics.ProofpoolDepth}

var debugHistograms = []string{metrics.ProverRoundTripMillis, metrics.MergerRoundTripMillis}

// writeMethodKind maps the six client-submittable RPC method codes to the
// domain.Transaction kind they build, reusing domain.TransactionFromBytes
// by swapping the method code for its matching TxKind tag before decoding
// -- the request frame is otherwise byte-identical to a Transaction frame
// (spec §6.5: "same layout as §6.2 prefixed by a one-byte method code").
var writeMethodKind = map[byte]domain.TxKind{
	methodBurnTokens:        domain.TxBurnTokens,
	methodCreatePool:        domain.TxCreatePool,
	methodProvideLiquidity:  domain.TxProvideLiquidity,
	methodRemoveLiquidity:   domain.TxRemoveLiquidity,
	methodBuyTokens:         domain.TxBuyTokens,
	methodSellTokens:        domain.TxSellTokens,
}

// Server answers RPC queries and admits new client transactions. It holds
// no business logic of its own beyond decode/dispatch/encode: every
// mutation goes through pipeline.Admit, the same admission path the
// fetcher uses for deposits.
type Server struct {
	db          *txdb.TransactionsDb
	mempool     *queue.Mempool
	balances    *stores.BalancesStore
	pools       *stores.PoolsStore
	liquidities *stores.LiquiditiesStore
	burns       *stores.BurnsStore
	withdrawals *stores.WithdrawalsStore

	mu       sync.Mutex
	listener net.Listener
	started  atomic.Bool

	requests *metrics.Counter
	log      *rlog.Logger
	health   func() map[string]bool
}

// New wires a Server against the shared pipeline stores.
func New(
	db *txdb.TransactionsDb,
	mempool *queue.Mempool,
	balances *stores.BalancesStore,
	pools *stores.PoolsStore,
	liquidities *stores.LiquiditiesStore,
	burns *stores.BurnsStore,
	withdrawals *stores.WithdrawalsStore,
) *Server {
	return &Server{
		db: db, mempool: mempool,
		balances: balances, pools: pools, liquidities: liquidities,
		burns: burns, withdrawals: withdrawals,
		requests: metrics.NewCounter("rpc_requests_total"),
		log:      rlog.Default().Module("rpcserver"),
	}
}

// Name identifies this service for the lifecycle manager.
func (s *Server) Name() string { return "rpcserver" }

// Start listens on addr and serves connections until Stop is called.
// Blocks until the listener is closed.
func (s *Server) Start(addr string) error {
	if s.started.Load() {
		return ErrServerStarted
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	s.started.Store(true)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go s.serveConn(conn)
	}
}

// Addr returns the listener's address. Useful when started on port 0.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop closes the listener, unblocking Start.
func (s *Server) Stop() error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return nil
	}
	return ln.Close()
}

// RequestCount reports how many requests this server has handled.
func (s *Server) RequestCount() int64 { return s.requests.Value() }

// SetHealthCheck wires the debug metrics response to a service health
// snapshot, normally *service.LifecycleManager.HealthCheck. Not taking a
// *service.LifecycleManager directly avoids an import cycle (the daemon
// wires rpcserver into the same manager it is a health source for).
func (s *Server) SetHealthCheck(fn func() map[string]bool) { s.health = fn }

// serveConn handles exactly one request/response exchange per connection
// (spec §6.5: "each request is one HTTP-style request/response exchange").
func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()
	s.requests.Inc()

	var req [domain.TransactionSize]byte
	if _, err := io.ReadFull(conn, req[:]); err != nil {
		s.log.Warn("short read", "error", err)
		conn.Write([]byte{kindClientError})
		return
	}

	resp := s.dispatch(req)
	conn.Write(resp)
}

func (s *Server) dispatch(req [domain.TransactionSize]byte) []byte {
	method := req[0]
	if kind, ok := writeMethodKind[method]; ok {
		return s.handleSubmit(kind, req)
	}

	switch method {
	case methodGetTotalTxCount:
		return s.handleGetTotalTxCount()
	case methodGetTxStatus:
		return s.handleGetTxStatus(binary.LittleEndian.Uint64(req[1:9]))
	case methodGetBalances:
		return s.handleGetBalances(domain.AddressFromBytes(req[1:56]))
	case methodGetPools:
		return s.handleGetPools()
	case methodGetLiquidities:
		return s.handleGetLiquidities(domain.AddressFromBytes(req[1:56]))
	case methodGetBurns:
		return s.handleGetBurns(domain.AddressFromBytes(req[1:56]))
	case methodGetBridgeWitnesses:
		return s.handleGetBridgeWitnesses(binary.LittleEndian.Uint64(req[1:9]))
	case methodGetDebugMetrics:
		return s.handleGetDebugMetrics()
	default:
		return []byte{kindClientError}
	}
}

func (s *Server) handleSubmit(kind domain.TxKind, req [domain.TransactionSize]byte) []byte {
	req[0] = byte(kind)
	tx, err := domain.TransactionFromBytes(req)
	if err != nil {
		return []byte{kindClientError}
	}
	id, err := pipeline.Admit(s.db, s.mempool, tx)
	if err != nil {
		s.log.Error("admit failed", "error", err)
		return []byte{kindServerError}
	}
	out := make([]byte, 9)
	out[0] = kindTxID
	binary.LittleEndian.PutUint64(out[1:], id)
	return out
}

func (s *Server) handleGetTotalTxCount() []byte {
	count, err := s.db.TxCount()
	if err != nil {
		return []byte{kindServerError}
	}
	out := make([]byte, 9)
	out[0] = kindTotalTxCount
	binary.LittleEndian.PutUint64(out[1:], count)
	return out
}

func (s *Server) handleGetTxStatus(txID uint64) []byte {
	status, err := s.db.GetStatus(txID)
	if err != nil {
		return []byte{kindServerError}
	}
	return []byte{kindTxStatus, byte(status)}
}

func (s *Server) handleGetBalances(addr domain.Address) []byte {
	balances, err := s.balances.GetMany(func(k domain.BalanceKey) bool { return k.Owner == addr })
	if err != nil {
		return []byte{kindServerError}
	}
	out := make([]byte, 1, 1+40*len(balances))
	out[0] = kindBalances
	for _, b := range balances {
		tok := b.TokenID.Bytes32()
		out = append(out, tok[:]...)
		out = appendU64(out, b.TokenAmount)
	}
	return out
}

func (s *Server) handleGetPools() []byte {
	pools, err := s.pools.GetMany(func(domain.PoolKey) bool { return true })
	if err != nil {
		return []byte{kindServerError}
	}
	out := make([]byte, 1, 1+112*len(pools))
	out[0] = kindPools
	for _, p := range pools {
		base := p.BaseTokenID.Bytes32()
		quote := p.QuoteTokenID.Bytes32()
		points := p.TotalLiquidityPoints.Bytes32()
		out = append(out, base[:]...)
		out = append(out, quote[:]...)
		out = appendU64(out, p.BaseTokenAmount)
		out = appendU64(out, p.QuoteTokenAmount)
		out = append(out, points[:]...)
	}
	return out
}

func (s *Server) handleGetLiquidities(addr domain.Address) []byte {
	liquidities, err := s.liquidities.GetMany(func(k domain.LiquidityKey) bool { return k.Provider == addr })
	if err != nil {
		return []byte{kindServerError}
	}
	out := make([]byte, 1, 1+96*len(liquidities))
	out[0] = kindLiquidities
	for _, l := range liquidities {
		base := l.BaseTokenID.Bytes32()
		quote := l.QuoteTokenID.Bytes32()
		points := l.Points.Bytes32()
		out = append(out, base[:]...)
		out = append(out, quote[:]...)
		out = append(out, points[:]...)
	}
	return out
}

func (s *Server) handleGetBurns(addr domain.Address) []byte {
	burns, err := s.burns.GetMany(func(k domain.BurnKey) bool { return k.Burner == addr })
	if err != nil {
		return []byte{kindServerError}
	}
	out := make([]byte, 1, 1+40*len(burns))
	out[0] = kindBurns
	for _, b := range burns {
		tok := b.TokenID.Bytes32()
		out = append(out, tok[:]...)
		out = appendU64(out, b.TokenAmount)
	}
	return out
}

// handleGetBridgeWitnesses answers with the Merkle witnesses a bridge
// contract needs to admit a withdrawal: the burn's own witness in the
// Burns tree, and the witness for whatever withdrawal row that burn
// position has been linked to in the Withdrawals tree (spec §6.5;
// burnID is the burn's store index, as returned in e.g. a prior
// GetBurns-driven client-side lookup).
func (s *Server) handleGetBridgeWitnesses(burnID uint64) []byte {
	burnWitness, err := s.burns.GetSingleWitness(burnID)
	if err != nil {
		return []byte{kindServerError}
	}
	withdrawalIdx, err := s.withdrawals.WithdrawalIndexForBurn(burnID)
	if errors.Is(err, rolluperr.ErrIndexOutOfBounds) {
		return []byte{kindClientError}
	}
	if err != nil {
		return []byte{kindServerError}
	}
	withdrawalWitness, err := s.withdrawals.GetSingleWitness(withdrawalIdx)
	if err != nil {
		return []byte{kindServerError}
	}

	out := make([]byte, 1, 1+len(burnWitness.Bytes())+len(withdrawalWitness.Bytes()))
	out[0] = kindBridgeWitnesses
	out = append(out, burnWitness.Bytes()...)
	out = append(out, withdrawalWitness.Bytes()...)
	return out
}

// handleGetDebugMetrics answers with a point-in-time snapshot of the
// pipeline/queue/prover metrics in metrics.Standard() (each named counter
// and gauge as a u64, each named histogram as (count u64, sum, min, max,
// mean float64), in the fixed order debugCounters/debugGauges/debugHistograms
// declare) followed by the lifecycle manager's per-service health (a count
// of 0 when SetHealthCheck was not called): a u8 count, then per service a u8 name
// length, the name bytes, and a 1-byte running flag, in ascending name
// order for a deterministic wire response.
func (s *Server) handleGetDebugMetrics() []byte {
	reg := metrics.Standard()
	out := make([]byte, 1, 1+8*(len(debugCounters)+len(debugGauges))+40*len(debugHistograms))
	out[0] = kindDebugMetrics
	for _, name := range debugCounters {
		out = appendU64(out, uint64(reg.Counter(name).Value()))
	}
	for _, name := range debugGauges {
		out = appendU64(out, uint64(reg.Gauge(name).Value()))
	}
	for _, name := range debugHistograms {
		h := reg.Histogram(name)
		out = appendU64(out, uint64(h.Count()))
		out = appendF64(out, h.Sum())
		out = appendF64(out, h.Min())
		out = appendF64(out, h.Max())
		out = appendF64(out, h.Mean())
	}

	if s.health == nil {
		return append(out, 0)
	}
	health := s.health()
	names := make([]string, 0, len(health))
	for name := range health {
		names = append(names, name)
	}
	sort.Strings(names)

	out = append(out, byte(len(names)))
	for _, name := range names {
		out = append(out, byte(len(name)))
		out = append(out, name...)
		if health[name] {
			out = append(out, 1)
		} else {
			out = append(out, 0)
		}
	}
	return out
}

func appendF64(out []byte, v float64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	return append(out, b[:]...)
}

func appendU64(out []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(out, b[:]...)
}
