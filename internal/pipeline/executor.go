// Package pipeline implements the three stages that move a transaction
// from admitted to settled: the Executor (mempool -> proofpool, applying
// AMM/balance arithmetic against the domain stores), the Generator
// (proofpool -> external prover -> tree mutations), and the Merger
// (recursive proof aggregation over the proved range). Grounded on
// executor/src/*.rs, generator/src/method.rs, and spec.md §4.8-§4.10 where
// the retrieved pack has no matching file (see DESIGN.md's C13/C14
// entries for the specific gaps).
package pipeline

import (
	"math"

	"github.com/zkamm/rollup/internal/domain"
	"github.com/zkamm/rollup/internal/field"
	"github.com/zkamm/rollup/internal/metrics"
	"github.com/zkamm/rollup/internal/queue"
	"github.com/zkamm/rollup/internal/rlog"
	"github.com/zkamm/rollup/internal/rolluperr"
	"github.com/zkamm/rollup/internal/stores"
	"github.com/zkamm/rollup/internal/txdb"
)

// feeNumerator/feeDenominator implement the 0.1% swap fee (spec §4.8:
// "fee Δq_total = Δq·1001/1000").
const feeNumerator = 1001
const feeDenominator = 1000

// Executor pops one transaction at a time from the mempool, verifies its
// signature, applies its arithmetic contract against the domain stores,
// and either rejects it or hands an executed StatefulTransaction to the
// proofpool -- advancing TransactionsDb's executed_until watermark by
// exactly one either way (spec §4.7, §4.8).
type Executor struct {
	mempool     *queue.Mempool
	proofpool   *queue.Proofpool
	db          *txdb.TransactionsDb
	balances    *stores.BalancesStore
	burns       *stores.BurnsStore
	pools       *stores.PoolsStore
	liquidities *stores.LiquiditiesStore
	verifier    domain.Verifier
	hasher      field.EntityHasher
	log         *rlog.Logger
}

// NewExecutor wires an Executor against the shared pipeline stores.
func NewExecutor(
	mempool *queue.Mempool,
	proofpool *queue.Proofpool,
	db *txdb.TransactionsDb,
	balances *stores.BalancesStore,
	burns *stores.BurnsStore,
	pools *stores.PoolsStore,
	liquidities *stores.LiquiditiesStore,
	verifier domain.Verifier,
	hasher field.EntityHasher,
) *Executor {
	return &Executor{
		mempool: mempool, proofpool: proofpool, db: db,
		balances: balances, burns: burns, pools: pools, liquidities: liquidities,
		verifier: verifier, hasher: hasher,
		log: rlog.Default().Module("executor"),
	}
}

// ExecuteOne pops and processes a single transaction. ok is false if the
// mempool was empty (nothing to do). A non-nil error means a store or
// queue I/O failure; the transaction's outcome (accepted/rejected) is not
// otherwise surfaced -- callers that need it read back TransactionsDb.
func (e *Executor) ExecuteOne() (ok bool, err error) {
	tx, ok, err := e.mempool.Pop()
	if err != nil || !ok {
		return ok, err
	}
	if depth, derr := e.mempool.Depth(); derr == nil {
		metrics.Standard().Gauge(metrics.MempoolDepth).Set(int64(depth))
	}

	txID, err := e.db.ExecutedUntil()
	if err != nil {
		return true, err
	}

	st, rejected, err := e.apply(tx)
	if err != nil {
		return true, err
	}

	if rejected {
		if err := e.db.SetRejected(txID); err != nil {
			return true, err
		}
		metrics.Standard().Counter(metrics.TxRejected).Inc()
		e.log.TxID(txID).Debug("transaction rejected", "kind", tx.Kind)
	} else {
		if err := e.proofpool.Push(*st); err != nil {
			return true, err
		}
		metrics.Standard().Counter(metrics.TxExecuted).Inc()
		if depth, derr := e.proofpool.Depth(); derr == nil {
			metrics.Standard().Gauge(metrics.ProofpoolDepth).Set(int64(depth))
		}
	}

	if err := e.db.SetExecutedUntil(txID + 1); err != nil {
		return true, err
	}
	e.log.Watermark("executed_until", txID+1).Debug("advanced")
	return true, nil
}

// apply dispatches on tx.Kind and runs its arithmetic contract. rejected
// reports a protocol-level precondition failure (insufficient balance,
// slippage limit, overflow, unknown entity, bad signature) distinct from
// err, which is reserved for store/queue I/O failures that should stop
// the pipeline rather than just reject one transaction.
func (e *Executor) apply(tx domain.Transaction) (st *domain.StatefulTransaction, rejected bool, err error) {
	if tx.Kind != domain.TxDepositTokens {
		if !e.verifier.Verify(tx.Signature, tx.Address, tx.ToFields(e.hasher)) {
			return nil, true, nil
		}
	}

	switch tx.Kind {
	case domain.TxDepositTokens:
		return e.applyDeposit(tx)
	case domain.TxBurnTokens:
		return e.applyBurn(tx)
	case domain.TxCreatePool:
		return e.applyCreatePool(tx)
	case domain.TxProvideLiquidity:
		return e.applyProvideLiquidity(tx)
	case domain.TxRemoveLiquidity:
		return e.applyRemoveLiquidity(tx)
	case domain.TxBuyTokens:
		return e.applyBuyTokens(tx)
	case domain.TxSellTokens:
		return e.applySellTokens(tx)
	default:
		return nil, true, nil
	}
}

func addU64(a, b uint64) (uint64, bool) {
	if a > math.MaxUint64-b {
		return 0, false
	}
	return a + b, true
}

func (e *Executor) getBalance(owner domain.Address, tokenID field.U256) (domain.Balance, bool, error) {
	bal, _, err := e.balances.Get(domain.BalanceKey{Owner: owner, TokenID: tokenID})
	if err == nil {
		return bal, true, nil
	}
	if err == rolluperr.ErrDoesntExist {
		return domain.Balance{Owner: owner, TokenID: tokenID}, false, nil
	}
	return domain.Balance{}, false, err
}

// putBalance creates or updates the (owner, tokenID) balance record.
func (e *Executor) putBalance(bal domain.Balance, existed bool) error {
	if existed {
		return e.balances.Update(bal)
	}
	_, err := e.balances.Push(bal)
	return err
}

// creditBalance adds amount to the owner's balance of tokenID, creating
// the record if this is the user's first holding of that token (spec
// §4.8 DepositTokens: "add or create balance").
func (e *Executor) creditBalance(owner domain.Address, tokenID field.U256, amount uint64) (pre uint64, isFirst bool, rejected bool, err error) {
	bal, existed, err := e.getBalance(owner, tokenID)
	if err != nil {
		return 0, false, false, err
	}
	newAmount, ok := addU64(bal.TokenAmount, amount)
	if !ok {
		return 0, false, true, nil
	}
	pre = bal.TokenAmount
	bal.TokenAmount = newAmount
	if err := e.putBalance(bal, existed); err != nil {
		return 0, false, false, err
	}
	return pre, !existed, false, nil
}

func (e *Executor) applyDeposit(tx domain.Transaction) (*domain.StatefulTransaction, bool, error) {
	pre, isFirst, rejected, err := e.creditBalance(tx.Address, tx.BaseTokenID, tx.Amount1)
	if err != nil || rejected {
		return nil, rejected, err
	}
	return &domain.StatefulTransaction{
		Transaction: tx,
		DepositState: &domain.DepositTokensState{
			UserTokenBalance:      pre,
			IsFirstDepositOfToken: isFirst,
		},
	}, false, nil
}

func (e *Executor) applyBurn(tx domain.Transaction) (*domain.StatefulTransaction, bool, error) {
	bal, existed, err := e.getBalance(tx.Address, tx.BaseTokenID)
	if err != nil {
		return nil, false, err
	}
	if !existed || bal.TokenAmount < tx.Amount1 {
		return nil, true, nil
	}
	preBalance := bal.TokenAmount
	bal.TokenAmount -= tx.Amount1
	if err := e.balances.Update(bal); err != nil {
		return nil, false, err
	}

	burn, burnExisted, err := e.burns.Get(domain.BurnKey{Burner: tx.Address, TokenID: tx.BaseTokenID})
	if err != nil && err != rolluperr.ErrDoesntExist {
		return nil, false, err
	}
	preBurn := uint64(0)
	if burnExisted {
		preBurn = burn.TokenAmount
	} else {
		burn = domain.Burn{Burner: tx.Address, TokenID: tx.BaseTokenID}
	}
	newBurnAmount, ok := addU64(preBurn, tx.Amount1)
	if !ok {
		return nil, true, nil
	}
	burn.TokenAmount = newBurnAmount
	if burnExisted {
		err = e.burns.Update(burn)
	} else {
		_, err = e.burns.Push(burn)
	}
	if err != nil {
		return nil, false, err
	}

	return &domain.StatefulTransaction{
		Transaction: tx,
		BurnState: &domain.BurnTokensState{
			UserBurnTokenAmount:    preBurn,
			UserBalanceTokenAmount: preBalance,
			IsFirstBurnOfToken:     !burnExisted,
		},
	}, false, nil
}

func (e *Executor) applyCreatePool(tx domain.Transaction) (*domain.StatefulTransaction, bool, error) {
	baseBal, baseExisted, err := e.getBalance(tx.Address, tx.BaseTokenID)
	if err != nil {
		return nil, false, err
	}
	quoteBal, quoteExisted, err := e.getBalance(tx.Address, tx.QuoteTokenID)
	if err != nil {
		return nil, false, err
	}
	if !baseExisted || !quoteExisted || baseBal.TokenAmount < tx.Amount1 || quoteBal.TokenAmount < tx.Amount2 {
		return nil, true, nil
	}

	if _, _, err := e.pools.Get(domain.PoolKey{BaseTokenID: tx.BaseTokenID, QuoteTokenID: tx.QuoteTokenID}); err == nil {
		return nil, true, nil
	} else if err != rolluperr.ErrDoesntExist {
		return nil, false, err
	}

	preBase, preQuote := baseBal.TokenAmount, quoteBal.TokenAmount
	baseBal.TokenAmount -= tx.Amount1
	quoteBal.TokenAmount -= tx.Amount2
	if err := e.balances.Update(baseBal); err != nil {
		return nil, false, err
	}
	if err := e.balances.Update(quoteBal); err != nil {
		return nil, false, err
	}

	points := field.U256FromUint64(tx.Amount1).Mul(field.U256FromUint64(tx.Amount2))
	pool := domain.Pool{
		BaseTokenID: tx.BaseTokenID, QuoteTokenID: tx.QuoteTokenID,
		BaseTokenAmount: tx.Amount1, QuoteTokenAmount: tx.Amount2,
		TotalLiquidityPoints: points,
	}
	if _, err := e.pools.Push(pool); err != nil {
		return nil, false, err
	}

	liquidity := domain.Liquidity{
		Provider: tx.Address, BaseTokenID: tx.BaseTokenID, QuoteTokenID: tx.QuoteTokenID,
		Points: points,
	}
	if _, err := e.liquidities.Push(liquidity); err != nil {
		return nil, false, err
	}

	return &domain.StatefulTransaction{
		Transaction: tx,
		CreatePoolState: &domain.CreatePoolState{
			UserBalanceBaseTokenAmount:  preBase,
			UserBalanceQuoteTokenAmount: preQuote,
		},
	}, false, nil
}

func (e *Executor) applyProvideLiquidity(tx domain.Transaction) (*domain.StatefulTransaction, bool, error) {
	poolKey := domain.PoolKey{BaseTokenID: tx.BaseTokenID, QuoteTokenID: tx.QuoteTokenID}
	pool, _, err := e.pools.Get(poolKey)
	if err == rolluperr.ErrDoesntExist {
		return nil, true, nil
	} else if err != nil {
		return nil, false, err
	}

	baseBal, baseExisted, err := e.getBalance(tx.Address, tx.BaseTokenID)
	if err != nil {
		return nil, false, err
	}
	quoteBal, quoteExisted, err := e.getBalance(tx.Address, tx.QuoteTokenID)
	if err != nil {
		return nil, false, err
	}
	if !baseExisted || !quoteExisted || baseBal.TokenAmount < tx.Amount1 {
		return nil, true, nil
	}

	B := field.U256FromUint64(pool.BaseTokenAmount)
	Q := field.U256FromUint64(pool.QuoteTokenAmount)
	P := pool.TotalLiquidityPoints
	deltaB := field.U256FromUint64(tx.Amount1)

	newPoints, ok := P.MulDiv(deltaB, B)
	if !ok {
		return nil, true, nil
	}
	deltaQ, ok := deltaB.MulDiv(Q, B)
	if !ok {
		return nil, true, nil
	}
	if deltaQ.Gt(field.U256FromUint64(tx.Amount2)) {
		return nil, true, nil
	}
	deltaQU64, err := deltaQ.MustUint64()
	if err != nil {
		return nil, true, nil
	}
	if quoteBal.TokenAmount < deltaQU64 {
		return nil, true, nil
	}

	preBase, preQuote := baseBal.TokenAmount, quoteBal.TokenAmount
	baseBal.TokenAmount -= tx.Amount1
	quoteBal.TokenAmount -= deltaQU64
	if err := e.balances.Update(baseBal); err != nil {
		return nil, false, err
	}
	if err := e.balances.Update(quoteBal); err != nil {
		return nil, false, err
	}

	newBaseAmount, ok := addU64(pool.BaseTokenAmount, tx.Amount1)
	if !ok {
		return nil, true, nil
	}
	newQuoteAmount, ok := addU64(pool.QuoteTokenAmount, deltaQU64)
	if !ok {
		return nil, true, nil
	}
	pool.BaseTokenAmount = newBaseAmount
	pool.QuoteTokenAmount = newQuoteAmount
	pool.TotalLiquidityPoints = P.Add(newPoints)
	if err := e.pools.Update(pool); err != nil {
		return nil, false, err
	}

	liqKey := domain.LiquidityKey{Provider: tx.Address, BaseTokenID: tx.BaseTokenID, QuoteTokenID: tx.QuoteTokenID}
	liquidity, _, err := e.liquidities.Get(liqKey)
	isFirst := false
	prePoints := field.Zero
	if err == rolluperr.ErrDoesntExist {
		isFirst = true
		liquidity = domain.Liquidity{Provider: tx.Address, BaseTokenID: tx.BaseTokenID, QuoteTokenID: tx.QuoteTokenID}
	} else if err != nil {
		return nil, false, err
	} else {
		prePoints = liquidity.Points
	}
	liquidity.Points = prePoints.Add(newPoints)
	if isFirst {
		if _, err := e.liquidities.Push(liquidity); err != nil {
			return nil, false, err
		}
	} else {
		if err := e.liquidities.Update(liquidity); err != nil {
			return nil, false, err
		}
	}

	return &domain.StatefulTransaction{
		Transaction: tx,
		ProvideLiquidityState: &domain.ProvideLiquidityState{
			UserLiquidityPoints:         prePoints,
			UserBalanceBaseTokenAmount:  preBase,
			UserBalanceQuoteTokenAmount: preQuote,
			PoolBaseTokenAmount:         pool.BaseTokenAmount - tx.Amount1,
			PoolQuoteTokenAmount:        pool.QuoteTokenAmount - deltaQU64,
			PoolTotalLiquidityPoints:    P,
			IsFirstProviding:            isFirst,
		},
	}, false, nil
}

// applyRemoveLiquidity implements spec §4.8's RemoveLiquidity contract
// with base_limit/quote_limit as *minimums* (Δb≥base_limit, Δq≥quote_limit).
// executor/src/remove_liquidity.rs in the retrieved pack instead checks
// the amounts against the limits as maximums (`amount > limit`); spec.md
// is explicit and is treated as authoritative over that file for this one
// divergence -- see DESIGN.md's C13 entry.
func (e *Executor) applyRemoveLiquidity(tx domain.Transaction) (*domain.StatefulTransaction, bool, error) {
	poolKey := domain.PoolKey{BaseTokenID: tx.BaseTokenID, QuoteTokenID: tx.QuoteTokenID}
	pool, _, err := e.pools.Get(poolKey)
	if err == rolluperr.ErrDoesntExist {
		return nil, true, nil
	} else if err != nil {
		return nil, false, err
	}

	liqKey := domain.LiquidityKey{Provider: tx.Address, BaseTokenID: tx.BaseTokenID, QuoteTokenID: tx.QuoteTokenID}
	liquidity, _, err := e.liquidities.Get(liqKey)
	if err == rolluperr.ErrDoesntExist {
		return nil, true, nil
	} else if err != nil {
		return nil, false, err
	}

	p := tx.LiquidityPoints
	if p.Gt(liquidity.Points) {
		return nil, true, nil
	}

	B := field.U256FromUint64(pool.BaseTokenAmount)
	Q := field.U256FromUint64(pool.QuoteTokenAmount)
	P := pool.TotalLiquidityPoints

	deltaB, ok := p.MulDiv(B, P)
	if !ok {
		return nil, true, nil
	}
	deltaQ, ok := p.MulDiv(Q, P)
	if !ok {
		return nil, true, nil
	}
	deltaBU64, err := deltaB.MustUint64()
	if err != nil {
		return nil, true, nil
	}
	deltaQU64, err := deltaQ.MustUint64()
	if err != nil {
		return nil, true, nil
	}
	if deltaBU64 < tx.Amount1 || deltaQU64 < tx.Amount2 {
		return nil, true, nil
	}

	preBasePool, preQuotePool := pool.BaseTokenAmount, pool.QuoteTokenAmount
	pool.BaseTokenAmount -= deltaBU64
	pool.QuoteTokenAmount -= deltaQU64
	pool.TotalLiquidityPoints = P.Sub(p)
	if err := e.pools.Update(pool); err != nil {
		return nil, false, err
	}

	prePoints := liquidity.Points
	liquidity.Points = liquidity.Points.Sub(p)
	if err := e.liquidities.Update(liquidity); err != nil {
		return nil, false, err
	}

	baseBal, baseExisted, err := e.getBalance(tx.Address, tx.BaseTokenID)
	if err != nil {
		return nil, false, err
	}
	preBase := baseBal.TokenAmount
	newBase, ok := addU64(baseBal.TokenAmount, deltaBU64)
	if !ok {
		return nil, true, nil
	}
	baseBal.TokenAmount = newBase
	if err := e.putBalance(baseBal, baseExisted); err != nil {
		return nil, false, err
	}

	quoteBal, quoteExisted, err := e.getBalance(tx.Address, tx.QuoteTokenID)
	if err != nil {
		return nil, false, err
	}
	preQuote := quoteBal.TokenAmount
	newQuote, ok := addU64(quoteBal.TokenAmount, deltaQU64)
	if !ok {
		return nil, true, nil
	}
	quoteBal.TokenAmount = newQuote
	if err := e.putBalance(quoteBal, quoteExisted); err != nil {
		return nil, false, err
	}

	return &domain.StatefulTransaction{
		Transaction: tx,
		RemoveLiquidityState: &domain.RemoveLiquidityState{
			UserLiquidityPoints:         prePoints,
			UserBalanceBaseTokenAmount:  preBase,
			UserBalanceQuoteTokenAmount: preQuote,
			PoolBaseTokenAmount:         preBasePool,
			PoolQuoteTokenAmount:        preQuotePool,
			PoolTotalLiquidityPoints:    P,
		},
	}, false, nil
}

func (e *Executor) applyBuyTokens(tx domain.Transaction) (*domain.StatefulTransaction, bool, error) {
	poolKey := domain.PoolKey{BaseTokenID: tx.BaseTokenID, QuoteTokenID: tx.QuoteTokenID}
	pool, _, err := e.pools.Get(poolKey)
	if err == rolluperr.ErrDoesntExist {
		return nil, true, nil
	} else if err != nil {
		return nil, false, err
	}
	if tx.Amount1 >= pool.BaseTokenAmount {
		return nil, true, nil
	}

	B := field.U256FromUint64(pool.BaseTokenAmount)
	Q := field.U256FromUint64(pool.QuoteTokenAmount)
	newB := pool.BaseTokenAmount - tx.Amount1
	newBField := field.U256FromUint64(newB)

	newQ, ok := B.MulDivCeil(Q, newBField)
	if !ok {
		return nil, true, nil
	}
	deltaQ := newQ.Sub(Q)
	deltaQTotal, ok := deltaQ.MulDivCeil(field.U256FromUint64(feeNumerator), field.U256FromUint64(feeDenominator))
	if !ok {
		return nil, true, nil
	}
	if deltaQTotal.Gt(field.U256FromUint64(tx.Amount2)) {
		return nil, true, nil
	}
	deltaQTotalU64, err := deltaQTotal.MustUint64()
	if err != nil {
		return nil, true, nil
	}

	quoteBal, quoteExisted, err := e.getBalance(tx.Address, tx.QuoteTokenID)
	if err != nil {
		return nil, false, err
	}
	if !quoteExisted || quoteBal.TokenAmount < deltaQTotalU64 {
		return nil, true, nil
	}

	preBasePool, preQuotePool := pool.BaseTokenAmount, pool.QuoteTokenAmount
	newQuotePoolAmount, ok := addU64(pool.QuoteTokenAmount, deltaQTotalU64)
	if !ok {
		return nil, true, nil
	}
	pool.BaseTokenAmount = newB
	pool.QuoteTokenAmount = newQuotePoolAmount
	if err := e.pools.Update(pool); err != nil {
		return nil, false, err
	}

	preQuote := quoteBal.TokenAmount
	quoteBal.TokenAmount -= deltaQTotalU64
	if err := e.balances.Update(quoteBal); err != nil {
		return nil, false, err
	}

	preBase, _, rejected, err := e.creditBalance(tx.Address, tx.BaseTokenID, tx.Amount1)
	if err != nil || rejected {
		return nil, rejected, err
	}

	return &domain.StatefulTransaction{
		Transaction: tx,
		BuyTokensState: &domain.BuyTokensState{
			UserBalanceBaseTokenAmount:  preBase,
			UserBalanceQuoteTokenAmount: preQuote,
			PoolBaseTokenAmount:         preBasePool,
			PoolQuoteTokenAmount:        preQuotePool,
			PoolTotalLiquidityPoints:    pool.TotalLiquidityPoints,
		},
	}, false, nil
}

// applySellTokens is the mirror of BuyTokens: the user supplies an exact
// base amount (Amount1) and requires at least Amount2 of quote back. The
// retrieved pack has no executor/src/sell_tokens.rs (see DESIGN.md's C13
// entry), so this contract is derived directly from spec §4.8's BuyTokens
// description by swapping which leg is exact-in vs exact-out and which
// leg absorbs the 0.1% fee: BuyTokens takes an exact base output and
// charges its fee on the quote paid in; SellTokens takes an exact base
// input and charges its fee on the quote paid out, keeping the fee
// deduction symmetric (always computed on the leg the user receives/pays
// variably, never on the leg fixed by the caller).
func (e *Executor) applySellTokens(tx domain.Transaction) (*domain.StatefulTransaction, bool, error) {
	poolKey := domain.PoolKey{BaseTokenID: tx.BaseTokenID, QuoteTokenID: tx.QuoteTokenID}
	pool, _, err := e.pools.Get(poolKey)
	if err == rolluperr.ErrDoesntExist {
		return nil, true, nil
	} else if err != nil {
		return nil, false, err
	}

	baseBal, baseExisted, err := e.getBalance(tx.Address, tx.BaseTokenID)
	if err != nil {
		return nil, false, err
	}
	if !baseExisted || baseBal.TokenAmount < tx.Amount1 {
		return nil, true, nil
	}

	B := field.U256FromUint64(pool.BaseTokenAmount)
	Q := field.U256FromUint64(pool.QuoteTokenAmount)
	newB, ok := addU64(pool.BaseTokenAmount, tx.Amount1)
	if !ok {
		return nil, true, nil
	}
	newBField := field.U256FromUint64(newB)

	newQ, ok := B.MulDivCeil(Q, newBField)
	if !ok {
		return nil, true, nil
	}
	deltaQRaw := Q.Sub(newQ)
	deltaQToUser, ok := deltaQRaw.MulDiv(field.U256FromUint64(feeDenominator), field.U256FromUint64(feeNumerator))
	if !ok {
		return nil, true, nil
	}
	if deltaQToUser.Lt(field.U256FromUint64(tx.Amount2)) {
		return nil, true, nil
	}
	deltaQToUserU64, err := deltaQToUser.MustUint64()
	if err != nil {
		return nil, true, nil
	}

	preBasePool, preQuotePool := pool.BaseTokenAmount, pool.QuoteTokenAmount
	newQuotePoolAmount := pool.QuoteTokenAmount - deltaQToUserU64
	pool.BaseTokenAmount = newB
	pool.QuoteTokenAmount = newQuotePoolAmount
	if err := e.pools.Update(pool); err != nil {
		return nil, false, err
	}

	preBase := baseBal.TokenAmount
	baseBal.TokenAmount -= tx.Amount1
	if err := e.balances.Update(baseBal); err != nil {
		return nil, false, err
	}

	preQuote, _, rejected, err := e.creditBalance(tx.Address, tx.QuoteTokenID, deltaQToUserU64)
	if err != nil || rejected {
		return nil, rejected, err
	}

	return &domain.StatefulTransaction{
		Transaction: tx,
		SellTokensState: &domain.SellTokensState{
			UserBalanceBaseTokenAmount:  preBase,
			UserBalanceQuoteTokenAmount: preQuote,
			PoolBaseTokenAmount:         preBasePool,
			PoolQuoteTokenAmount:        preQuotePool,
			PoolTotalLiquidityPoints:    pool.TotalLiquidityPoints,
		},
	}, false, nil
}
