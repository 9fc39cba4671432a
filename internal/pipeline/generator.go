package pipeline

import (
	"fmt"

	"github.com/zkamm/rollup/internal/domain"
	"github.com/zkamm/rollup/internal/merkle"
	"github.com/zkamm/rollup/internal/metrics"
	"github.com/zkamm/rollup/internal/queue"
	"github.com/zkamm/rollup/internal/rlog"
	"github.com/zkamm/rollup/internal/rolluperr"
	"github.com/zkamm/rollup/internal/stores"
	"github.com/zkamm/rollup/internal/txdb"
)

// Prover is the external recursive-proving process the generator drives
// (spec §4.9: "writes to prover stdin, reads a 1-byte ack"). A concrete
// subprocess-backed implementation lives in internal/proverproc.
type Prover interface {
	Prove(frame []byte) (accepted bool, err error)
}

// Generator pops one stateful transaction at a time from the proofpool,
// gathers the witnesses its variant needs, serialises a ProverMethod
// frame, and on acceptance commits the matching tree mutations and
// advances proved_until by one. It is single-threaded by construction --
// GenerateOne performs one full round trip to the prover before
// returning -- matching spec §4.9's "at most one prover round-trip in
// flight" (grounded on generator/src/method.rs's single-threaded pop loop).
type Generator struct {
	proofpool   *queue.Proofpool
	db          *txdb.TransactionsDb
	balances    *stores.BalancesStore
	burns       *stores.BurnsStore
	pools       *stores.PoolsStore
	liquidities *stores.LiquiditiesStore
	prover      Prover
	log         *rlog.Logger
}

// NewGenerator wires a Generator against the shared pipeline stores.
func NewGenerator(
	proofpool *queue.Proofpool,
	db *txdb.TransactionsDb,
	balances *stores.BalancesStore,
	burns *stores.BurnsStore,
	pools *stores.PoolsStore,
	liquidities *stores.LiquiditiesStore,
	prover Prover,
) *Generator {
	return &Generator{
		proofpool: proofpool, db: db,
		balances: balances, burns: burns, pools: pools, liquidities: liquidities,
		prover: prover,
		log:    rlog.Default().Module("generator"),
	}
}

// currentRoots reads the four tree roots as they stand before this
// round's mutation is applied (spec §6.3: "bytes [1..129) hold the four
// current state roots").
func (g *Generator) currentRoots() (domain.StateRoots, error) {
	b, err := g.balances.GetRoot()
	if err != nil {
		return domain.StateRoots{}, err
	}
	l, err := g.liquidities.GetRoot()
	if err != nil {
		return domain.StateRoots{}, err
	}
	p, err := g.pools.GetRoot()
	if err != nil {
		return domain.StateRoots{}, err
	}
	bu, err := g.burns.GetRoot()
	if err != nil {
		return domain.StateRoots{}, err
	}
	return domain.StateRoots{
		Balances: b.ToU256(), Liquidities: l.ToU256(), Pools: p.ToU256(), Burns: bu.ToU256(),
	}, nil
}

// GenerateOne pops and proves a single stateful transaction. ok is false
// if the proofpool was empty. A non-nil error always means the round must
// not be considered complete: proved_until is left untouched, the same
// way spec §4.9 describes a failed prover round ("on failure leaves
// watermarks untouched"). A rejected proof (the prover acks false) is
// folded into this same fatal path, wrapping rolluperr.ErrInfallible --
// this module treats prover rejection as a crash-stop condition rather
// than a retryable one, since the executor already validated every
// arithmetic precondition and a prover nack past that point means the
// frame encoding itself disagrees with the circuit (design note 1's
// crash-stop model extended to this stage).
func (g *Generator) GenerateOne() (ok bool, err error) {
	st, ok, err := g.proofpool.Pop()
	if err != nil || !ok {
		return ok, err
	}
	if depth, derr := g.proofpool.Depth(); derr == nil {
		metrics.Standard().Gauge(metrics.ProofpoolDepth).Set(int64(depth))
	}

	roots, err := g.currentRoots()
	if err != nil {
		return true, err
	}

	frame, commit, err := g.buildFrame(st, roots)
	if err != nil {
		return true, err
	}

	timer := metrics.NewTimer(metrics.Standard().Histogram(metrics.ProverRoundTripMillis))
	accepted, err := g.prover.Prove(frame)
	timer.Stop()
	if err != nil {
		return true, err
	}
	if !accepted {
		return true, fmt.Errorf("pipeline: prover rejected frame for %s: %w", st.Transaction.Kind, rolluperr.ErrInfallible)
	}

	if err := commit(); err != nil {
		return true, err
	}

	provedUntil, err := g.db.ProvedUntil()
	if err != nil {
		return true, err
	}
	if err := g.db.SetProvedUntil(provedUntil + 1); err != nil {
		return true, err
	}
	metrics.Standard().Counter(metrics.TxProved).Inc()
	g.log.TxID(provedUntil).Watermark("proved_until", provedUntil+1).Debug("transaction proved", "kind", st.Transaction.Kind)
	return true, nil
}

// buildFrame gathers witnesses against the stores' current (pre-mutation)
// tree state, encodes the ProverMethod frame, and returns a commit
// closure that -- once the prover has acked -- re-reads each touched
// entity's now-current value (already written by the executor's
// Push/Update calls) and writes its leaf, in the same push-vs-update
// shape the witness was gathered against.
func (g *Generator) buildFrame(st domain.StatefulTransaction, roots domain.StateRoots) (frame []byte, commit func() error, err error) {
	tx := st.Transaction
	const earlierProofIndex = 0 // TODO: wire real proof chaining once the prover's recursion contract is implemented.

	switch tx.Kind {
	case domain.TxDepositTokens:
		return g.buildDeposit(tx, st.DepositState, roots, earlierProofIndex)
	case domain.TxBurnTokens:
		return g.buildBurn(tx, st.BurnState, roots, earlierProofIndex)
	case domain.TxCreatePool:
		return g.buildCreatePool(tx, st.CreatePoolState, roots, earlierProofIndex)
	case domain.TxProvideLiquidity:
		return g.buildProvideLiquidity(tx, st.ProvideLiquidityState, roots, earlierProofIndex)
	case domain.TxRemoveLiquidity:
		return g.buildRemoveLiquidity(tx, st.RemoveLiquidityState, roots, earlierProofIndex)
	case domain.TxBuyTokens:
		return g.buildBuyTokens(tx, st.BuyTokensState, roots, earlierProofIndex)
	case domain.TxSellTokens:
		return g.buildSellTokens(tx, st.SellTokensState, roots, earlierProofIndex)
	default:
		return nil, nil, fmt.Errorf("pipeline: generator: unhandled transaction kind %s", tx.Kind)
	}
}

func (g *Generator) balanceWitness(key domain.BalanceKey, isFirst bool) (merkle.SingleMerkleWitness, error) {
	if isFirst {
		return g.balances.GetNewSingleWitness()
	}
	_, idx, err := g.balances.Get(key)
	if err != nil {
		return merkle.SingleMerkleWitness{}, err
	}
	return g.balances.GetSingleWitness(idx)
}

func (g *Generator) commitBalanceLeaf(key domain.BalanceKey, isFirst bool) error {
	post, _, err := g.balances.Get(key)
	if err != nil {
		return err
	}
	if isFirst {
		_, err := g.balances.PushLeaf(post)
		return err
	}
	return g.balances.UpdateLeaf(post)
}

func (g *Generator) buildDeposit(tx domain.Transaction, s *domain.DepositTokensState, roots domain.StateRoots, earlierProofIndex uint64) ([]byte, func() error, error) {
	key := domain.BalanceKey{Owner: tx.Address, TokenID: tx.BaseTokenID}
	witness, err := g.balanceWitness(key, s.IsFirstDepositOfToken)
	if err != nil {
		return nil, nil, err
	}

	frame := DepositTokensFrame(DepositTokensFrameInput{
		StateRoots: roots, EarlierProofIndex: earlierProofIndex,
		SingleBalanceWitness: witness,
		UserAddress:          tx.Address,
		TokenID:              tx.BaseTokenID,
		DepositAmount:        tx.Amount1,
		BalanceAmount:        s.UserTokenBalance,
		IsFirstDeposit:       s.IsFirstDepositOfToken,
	})

	commit := func() error { return g.commitBalanceLeaf(key, s.IsFirstDepositOfToken) }
	return frame[:], commit, nil
}

func (g *Generator) buildBurn(tx domain.Transaction, s *domain.BurnTokensState, roots domain.StateRoots, earlierProofIndex uint64) ([]byte, func() error, error) {
	balKey := domain.BalanceKey{Owner: tx.Address, TokenID: tx.BaseTokenID}
	_, balIdx, err := g.balances.Get(balKey)
	if err != nil {
		return nil, nil, err
	}
	balWitness, err := g.balances.GetSingleWitness(balIdx)
	if err != nil {
		return nil, nil, err
	}

	burnKey := domain.BurnKey{Burner: tx.Address, TokenID: tx.BaseTokenID}
	var burnWitness merkle.SingleMerkleWitness
	if s.IsFirstBurnOfToken {
		burnWitness, err = g.burns.GetNewSingleWitness()
	} else {
		var idx uint64
		_, idx, err = g.burns.Get(burnKey)
		if err == nil {
			burnWitness, err = g.burns.GetSingleWitness(idx)
		}
	}
	if err != nil {
		return nil, nil, err
	}

	frame := BurnTokensFrame(BurnTokensFrameInput{
		StateRoots: roots, EarlierProofIndex: earlierProofIndex,
		SingleBalanceWitness: balWitness,
		SingleBurnWitness:    burnWitness,
		UserAddress:          tx.Address,
		TokenID:              tx.BaseTokenID,
		BurnTokenAmount:      s.UserBurnTokenAmount,
		BalanceTokenAmount:   s.UserBalanceTokenAmount,
		AmountToBurn:         tx.Amount1,
		UserSignature:        tx.Signature,
	})

	commit := func() error {
		postBal, _, err := g.balances.Get(balKey)
		if err != nil {
			return err
		}
		if err := g.balances.UpdateLeaf(postBal); err != nil {
			return err
		}
		postBurn, _, err := g.burns.Get(burnKey)
		if err != nil {
			return err
		}
		if s.IsFirstBurnOfToken {
			_, err := g.burns.PushLeaf(postBurn)
			return err
		}
		return g.burns.UpdateLeaf(postBurn)
	}
	return frame[:], commit, nil
}

func (g *Generator) doubleBalanceWitness(baseKey, quoteKey domain.BalanceKey, baseIsFirst, quoteIsFirst bool) (merkle.DoubleMerkleWitness, error) {
	baseIdx, err := g.balanceIndexOrNext(baseKey, baseIsFirst)
	if err != nil {
		return merkle.DoubleMerkleWitness{}, err
	}
	quoteIdx, err := g.balanceIndexOrNext(quoteKey, quoteIsFirst)
	if err != nil {
		return merkle.DoubleMerkleWitness{}, err
	}
	return g.balances.GetDoubleWitness(baseIdx, quoteIdx)
}

// balanceIndexOrNext returns the tree index a balance witness should be
// gathered against: its existing index, or -- if this round creates the
// balance for the first time -- the tree's next not-yet-pushed slot
// (still a valid, zero-valued witness target; spec §4.4).
func (g *Generator) balanceIndexOrNext(key domain.BalanceKey, isFirst bool) (uint64, error) {
	if !isFirst {
		_, idx, err := g.balances.Get(key)
		return idx, err
	}
	return g.balances.Len()
}

func (g *Generator) buildCreatePool(tx domain.Transaction, s *domain.CreatePoolState, roots domain.StateRoots, earlierProofIndex uint64) ([]byte, func() error, error) {
	poolWitness, err := g.pools.GetNewSingleWitness()
	if err != nil {
		return nil, nil, err
	}
	liqWitness, err := g.liquidities.GetNewSingleWitness()
	if err != nil {
		return nil, nil, err
	}
	baseKey := domain.BalanceKey{Owner: tx.Address, TokenID: tx.BaseTokenID}
	quoteKey := domain.BalanceKey{Owner: tx.Address, TokenID: tx.QuoteTokenID}
	balWitness, err := g.doubleBalanceWitness(baseKey, quoteKey, false, false)
	if err != nil {
		return nil, nil, err
	}

	frame := CreatePoolFrame(CreatePoolFrameInput{
		poolPrefixInput: poolPrefixInput{
			StateRoots: roots, EarlierProofIndex: earlierProofIndex,
			SinglePoolWitness: poolWitness, SingleLiquidityWitness: liqWitness, DoubleBalanceWitness: balWitness,
			BaseTokenID: tx.BaseTokenID, QuoteTokenID: tx.QuoteTokenID,
		},
		UserAddress:                   tx.Address,
		UserLiquidityBaseTokenAmount:  tx.Amount1,
		UserLiquidityQuoteTokenAmount: tx.Amount2,
		UserBalanceBaseTokenAmount:    s.UserBalanceBaseTokenAmount,
		UserBalanceQuoteTokenAmount:   s.UserBalanceQuoteTokenAmount,
		UserSignature:                 tx.Signature,
	})

	poolKey := domain.PoolKey{BaseTokenID: tx.BaseTokenID, QuoteTokenID: tx.QuoteTokenID}
	liqKey := domain.LiquidityKey{Provider: tx.Address, BaseTokenID: tx.BaseTokenID, QuoteTokenID: tx.QuoteTokenID}
	commit := func() error {
		pool, _, err := g.pools.Get(poolKey)
		if err != nil {
			return err
		}
		if err := g.pools.PushLeaf(pool); err != nil {
			return err
		}
		liq, _, err := g.liquidities.Get(liqKey)
		if err != nil {
			return err
		}
		if _, err := g.liquidities.PushLeaf(liq); err != nil {
			return err
		}
		if err := g.commitBalanceLeaf(baseKey, false); err != nil {
			return err
		}
		return g.commitBalanceLeaf(quoteKey, false)
	}
	return frame[:], commit, nil
}

func (g *Generator) buildProvideLiquidity(tx domain.Transaction, s *domain.ProvideLiquidityState, roots domain.StateRoots, earlierProofIndex uint64) ([]byte, func() error, error) {
	poolKey := domain.PoolKey{BaseTokenID: tx.BaseTokenID, QuoteTokenID: tx.QuoteTokenID}
	_, poolIdx, err := g.pools.Get(poolKey)
	if err != nil {
		return nil, nil, err
	}
	poolWitness, err := g.pools.GetSingleWitness(poolIdx)
	if err != nil {
		return nil, nil, err
	}

	liqKey := domain.LiquidityKey{Provider: tx.Address, BaseTokenID: tx.BaseTokenID, QuoteTokenID: tx.QuoteTokenID}
	var liqWitness merkle.SingleMerkleWitness
	if s.IsFirstProviding {
		liqWitness, err = g.liquidities.GetNewSingleWitness()
	} else {
		var idx uint64
		_, idx, err = g.liquidities.Get(liqKey)
		if err == nil {
			liqWitness, err = g.liquidities.GetSingleWitness(idx)
		}
	}
	if err != nil {
		return nil, nil, err
	}

	baseKey := domain.BalanceKey{Owner: tx.Address, TokenID: tx.BaseTokenID}
	quoteKey := domain.BalanceKey{Owner: tx.Address, TokenID: tx.QuoteTokenID}
	balWitness, err := g.doubleBalanceWitness(baseKey, quoteKey, false, false)
	if err != nil {
		return nil, nil, err
	}

	frame := ProvideLiquidityFrame(ProvideLiquidityFrameInput{
		poolPrefixInput: poolPrefixInput{
			StateRoots: roots, EarlierProofIndex: earlierProofIndex,
			SinglePoolWitness: poolWitness, SingleLiquidityWitness: liqWitness, DoubleBalanceWitness: balWitness,
			BaseTokenID: tx.BaseTokenID, QuoteTokenID: tx.QuoteTokenID,
		},
		UserAddress:                        tx.Address,
		UserLiquidityPoints:                s.UserLiquidityPoints,
		UserBalanceBaseTokenAmount:         s.UserBalanceBaseTokenAmount,
		UserBalanceQuoteTokenAmount:        s.UserBalanceQuoteTokenAmount,
		PoolBaseTokenAmount:                s.PoolBaseTokenAmount,
		PoolQuoteTokenAmount:               s.PoolQuoteTokenAmount,
		PoolTotalLiquidityPoints:           s.PoolTotalLiquidityPoints,
		UserBaseTokenAmountToProvide:       tx.Amount1,
		UserQuoteTokenAmountLimitToProvide: tx.Amount2,
		IsFirstProviding:                   s.IsFirstProviding,
		UserSignature:                      tx.Signature,
	})

	commit := func() error {
		pool, _, err := g.pools.Get(poolKey)
		if err != nil {
			return err
		}
		if err := g.pools.UpdateLeaf(pool); err != nil {
			return err
		}
		liq, _, err := g.liquidities.Get(liqKey)
		if err != nil {
			return err
		}
		if s.IsFirstProviding {
			if _, err := g.liquidities.PushLeaf(liq); err != nil {
				return err
			}
		} else if err := g.liquidities.UpdateLeaf(liq); err != nil {
			return err
		}
		if err := g.commitBalanceLeaf(baseKey, false); err != nil {
			return err
		}
		return g.commitBalanceLeaf(quoteKey, false)
	}
	return frame[:], commit, nil
}

func (g *Generator) buildRemoveLiquidity(tx domain.Transaction, s *domain.RemoveLiquidityState, roots domain.StateRoots, earlierProofIndex uint64) ([]byte, func() error, error) {
	poolKey := domain.PoolKey{BaseTokenID: tx.BaseTokenID, QuoteTokenID: tx.QuoteTokenID}
	_, poolIdx, err := g.pools.Get(poolKey)
	if err != nil {
		return nil, nil, err
	}
	poolWitness, err := g.pools.GetSingleWitness(poolIdx)
	if err != nil {
		return nil, nil, err
	}

	liqKey := domain.LiquidityKey{Provider: tx.Address, BaseTokenID: tx.BaseTokenID, QuoteTokenID: tx.QuoteTokenID}
	_, liqIdx, err := g.liquidities.Get(liqKey)
	if err != nil {
		return nil, nil, err
	}
	liqWitness, err := g.liquidities.GetSingleWitness(liqIdx)
	if err != nil {
		return nil, nil, err
	}

	baseKey := domain.BalanceKey{Owner: tx.Address, TokenID: tx.BaseTokenID}
	quoteKey := domain.BalanceKey{Owner: tx.Address, TokenID: tx.QuoteTokenID}
	baseIsFirst := s.UserBalanceBaseTokenAmount == 0 && !g.balanceExists(baseKey)
	quoteIsFirst := s.UserBalanceQuoteTokenAmount == 0 && !g.balanceExists(quoteKey)
	balWitness, err := g.doubleBalanceWitness(baseKey, quoteKey, baseIsFirst, quoteIsFirst)
	if err != nil {
		return nil, nil, err
	}

	frame := RemoveLiquidityFrame(RemoveLiquidityFrameInput{
		poolPrefixInput: poolPrefixInput{
			StateRoots: roots, EarlierProofIndex: earlierProofIndex,
			SinglePoolWitness: poolWitness, SingleLiquidityWitness: liqWitness, DoubleBalanceWitness: balWitness,
			BaseTokenID: tx.BaseTokenID, QuoteTokenID: tx.QuoteTokenID,
		},
		UserAddress:                       tx.Address,
		UserLiquidityPoints:               s.UserLiquidityPoints,
		UserBalanceBaseTokenAmount:        s.UserBalanceBaseTokenAmount,
		UserBalanceQuoteTokenAmount:       s.UserBalanceQuoteTokenAmount,
		PoolBaseTokenAmount:               s.PoolBaseTokenAmount,
		PoolQuoteTokenAmount:              s.PoolQuoteTokenAmount,
		PoolTotalLiquidityPoints:          s.PoolTotalLiquidityPoints,
		UserLiquidityPointsToRemove:       tx.LiquidityPoints,
		UserBaseTokenAmountLimitToRemove:  tx.Amount1,
		UserQuoteTokenAmountLimitToRemove: tx.Amount2,
		UserSignature:                     tx.Signature,
	})

	commit := func() error {
		pool, _, err := g.pools.Get(poolKey)
		if err != nil {
			return err
		}
		if err := g.pools.UpdateLeaf(pool); err != nil {
			return err
		}
		liq, _, err := g.liquidities.Get(liqKey)
		if err != nil {
			return err
		}
		if err := g.liquidities.UpdateLeaf(liq); err != nil {
			return err
		}
		if err := g.commitBalanceLeaf(baseKey, baseIsFirst); err != nil {
			return err
		}
		return g.commitBalanceLeaf(quoteKey, quoteIsFirst)
	}
	return frame[:], commit, nil
}

func (g *Generator) balanceExists(key domain.BalanceKey) bool {
	_, _, err := g.balances.Get(key)
	return err == nil
}

func (g *Generator) buildBuyTokens(tx domain.Transaction, s *domain.BuyTokensState, roots domain.StateRoots, earlierProofIndex uint64) ([]byte, func() error, error) {
	poolKey := domain.PoolKey{BaseTokenID: tx.BaseTokenID, QuoteTokenID: tx.QuoteTokenID}
	_, poolIdx, err := g.pools.Get(poolKey)
	if err != nil {
		return nil, nil, err
	}
	poolWitness, err := g.pools.GetSingleWitness(poolIdx)
	if err != nil {
		return nil, nil, err
	}

	baseKey := domain.BalanceKey{Owner: tx.Address, TokenID: tx.BaseTokenID}
	quoteKey := domain.BalanceKey{Owner: tx.Address, TokenID: tx.QuoteTokenID}
	baseIsFirst := !g.balanceExists(baseKey)
	balWitness, err := g.doubleBalanceWitness(baseKey, quoteKey, baseIsFirst, false)
	if err != nil {
		return nil, nil, err
	}

	frame := BuyTokensFrame(BuyTokensFrameInput{
		swapPrefixInput: swapPrefixInput{
			StateRoots: roots, EarlierProofIndex: earlierProofIndex,
			SinglePoolWitness: poolWitness, DoubleBalanceWitness: balWitness,
			UserAddress: tx.Address, BaseTokenID: tx.BaseTokenID, QuoteTokenID: tx.QuoteTokenID,
			UserBalanceBaseTokenAmount:  s.UserBalanceBaseTokenAmount,
			UserBalanceQuoteTokenAmount: s.UserBalanceQuoteTokenAmount,
			PoolBaseTokenAmount:         s.PoolBaseTokenAmount,
			PoolQuoteTokenAmount:        s.PoolQuoteTokenAmount,
			PoolTotalLiquidityPoints:    s.PoolTotalLiquidityPoints,
		},
		UserBaseTokenAmountToSwap:       tx.Amount1,
		UserQuoteTokenAmountLimitToSwap: tx.Amount2,
		UserSignature:                   tx.Signature,
	})

	commit := func() error {
		pool, _, err := g.pools.Get(poolKey)
		if err != nil {
			return err
		}
		if err := g.pools.UpdateLeaf(pool); err != nil {
			return err
		}
		if err := g.commitBalanceLeaf(baseKey, baseIsFirst); err != nil {
			return err
		}
		return g.commitBalanceLeaf(quoteKey, false)
	}
	return frame[:], commit, nil
}

func (g *Generator) buildSellTokens(tx domain.Transaction, s *domain.SellTokensState, roots domain.StateRoots, earlierProofIndex uint64) ([]byte, func() error, error) {
	poolKey := domain.PoolKey{BaseTokenID: tx.BaseTokenID, QuoteTokenID: tx.QuoteTokenID}
	_, poolIdx, err := g.pools.Get(poolKey)
	if err != nil {
		return nil, nil, err
	}
	poolWitness, err := g.pools.GetSingleWitness(poolIdx)
	if err != nil {
		return nil, nil, err
	}

	baseKey := domain.BalanceKey{Owner: tx.Address, TokenID: tx.BaseTokenID}
	quoteKey := domain.BalanceKey{Owner: tx.Address, TokenID: tx.QuoteTokenID}
	quoteIsFirst := !g.balanceExists(quoteKey)
	balWitness, err := g.doubleBalanceWitness(baseKey, quoteKey, false, quoteIsFirst)
	if err != nil {
		return nil, nil, err
	}

	frame := SellTokensFrame(SellTokensFrameInput{
		swapPrefixInput: swapPrefixInput{
			StateRoots: roots, EarlierProofIndex: earlierProofIndex,
			SinglePoolWitness: poolWitness, DoubleBalanceWitness: balWitness,
			UserAddress: tx.Address, BaseTokenID: tx.BaseTokenID, QuoteTokenID: tx.QuoteTokenID,
			UserBalanceBaseTokenAmount:  s.UserBalanceBaseTokenAmount,
			UserBalanceQuoteTokenAmount: s.UserBalanceQuoteTokenAmount,
			PoolBaseTokenAmount:         s.PoolBaseTokenAmount,
			PoolQuoteTokenAmount:        s.PoolQuoteTokenAmount,
			PoolTotalLiquidityPoints:    s.PoolTotalLiquidityPoints,
		},
		UserBaseTokenAmountLimitToSwap: tx.Amount1,
		UserQuoteTokenAmountToSwap:     tx.Amount2,
		UserSignature:                  tx.Signature,
	})

	commit := func() error {
		pool, _, err := g.pools.Get(poolKey)
		if err != nil {
			return err
		}
		if err := g.pools.UpdateLeaf(pool); err != nil {
			return err
		}
		if err := g.commitBalanceLeaf(baseKey, false); err != nil {
			return err
		}
		return g.commitBalanceLeaf(quoteKey, quoteIsFirst)
	}
	return frame[:], commit, nil
}
