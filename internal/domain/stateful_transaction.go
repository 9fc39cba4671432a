package domain

import "github.com/zkamm/rollup/internal/field"

// DepositTokensState is the pre-state a DepositTokens transaction's
// circuit witness needs: the depositor's balance of the deposited token
// before the credit, and whether this is the first time the user has held
// that token (a fresh Balances leaf vs. an update). Grounded verbatim on
// data-structures/src/stateful_transaction.rs's DepositTokensTransactionState.
type DepositTokensState struct {
	UserTokenBalance      uint64
	IsFirstDepositOfToken bool
}

// BurnTokensState is the pre-state a BurnTokens transaction needs: the
// burner's existing burned total and balance before the debit, plus
// whether this is the first burn of that token (a fresh Burns leaf vs. an
// update) -- the generator (C14) needs this distinction and cannot
// recover it after the fact, since by the time it runs the executor has
// already written the post-mutation row to the Burns value list. Grounded
// on BurnTokensTransactionState, extended with the same IsFirst flag
// DepositTokensState already carries for the identical reason.
type BurnTokensState struct {
	UserBurnTokenAmount    uint64
	UserBalanceTokenAmount uint64
	IsFirstBurnOfToken     bool
}

// CreatePoolState is the pre-state a CreatePool transaction needs: the
// creator's balances of both tokens before they are locked into the new
// pool. Grounded verbatim on CreatePoolTransactionState.
type CreatePoolState struct {
	UserBalanceBaseTokenAmount  uint64
	UserBalanceQuoteTokenAmount uint64
}

// ProvideLiquidityState is the pre-state a ProvideLiquidity transaction
// needs: the provider's existing liquidity points and token balances, and
// the pool's reserves and total points, all before the mutation. Grounded
// verbatim on ProvideLiquidityTransactionState.
type ProvideLiquidityState struct {
	UserLiquidityPoints         field.U256
	UserBalanceBaseTokenAmount  uint64
	UserBalanceQuoteTokenAmount uint64
	PoolBaseTokenAmount         uint64
	PoolQuoteTokenAmount        uint64
	PoolTotalLiquidityPoints    field.U256
	IsFirstProviding            bool
}

// RemoveLiquidityState is the pre-state a RemoveLiquidity transaction
// needs: the provider's current points, balances, and the pool's
// reserves/points before the redemption credits the provider. Grounded
// verbatim on RemoveLiquidityTransactionState.
type RemoveLiquidityState struct {
	UserLiquidityPoints         field.U256
	UserBalanceBaseTokenAmount  uint64
	UserBalanceQuoteTokenAmount uint64
	PoolBaseTokenAmount         uint64
	PoolQuoteTokenAmount        uint64
	PoolTotalLiquidityPoints    field.U256
}

// BuyTokensState is the pre-state a BuyTokens transaction needs: the
// buyer's balances and the pool's reserves/points before the trade.
// Grounded verbatim on BuyTokensTransactionState.
type BuyTokensState struct {
	UserBalanceBaseTokenAmount  uint64
	UserBalanceQuoteTokenAmount uint64
	PoolBaseTokenAmount         uint64
	PoolQuoteTokenAmount        uint64
	PoolTotalLiquidityPoints    field.U256
}

// SellTokensState is the pre-state a SellTokens transaction needs,
// identical in shape to BuyTokensState. Grounded verbatim on
// SellTokensTransactionState.
type SellTokensState struct {
	UserBalanceBaseTokenAmount  uint64
	UserBalanceQuoteTokenAmount uint64
	PoolBaseTokenAmount         uint64
	PoolQuoteTokenAmount        uint64
	PoolTotalLiquidityPoints    field.U256
}

// StatefulTransaction pairs a Transaction with the minimal pre-state
// snapshot its circuit witness requires (spec §3 "StatefulTransaction";
// grounded on data-structures/src/stateful_transaction.rs's per-variant
// state enum, which also carries a zero-state CreateGenesis variant not
// reachable from client or fetcher input and so not modeled here).
// Exactly one of the State fields is populated, selected by
// Transaction.Kind -- DepositState exists here even though DepositTokens
// has no client-submitted RPC tag, because the fetcher synthesizes one
// internally from L1 events before handing it to the executor and
// generator.
type StatefulTransaction struct {
	Transaction Transaction

	DepositState          *DepositTokensState
	BurnState             *BurnTokensState
	CreatePoolState       *CreatePoolState
	ProvideLiquidityState *ProvideLiquidityState
	RemoveLiquidityState  *RemoveLiquidityState
	BuyTokensState        *BuyTokensState
	SellTokensState       *SellTokensState
}

// statePayloadSize is sized to the largest per-kind pre-state encoding
// (ProvideLiquidityState, at 97 bytes); every other kind's payload is
// zero-padded to this width.
const statePayloadSize = 97

// StatefulTransactionSize is the fixed on-disk frame size the proofpool
// queue uses. Unlike the original's Proofpool (which queues plain
// Transaction frames and expects the generator to still have the
// pre-mutation store state on hand), this module's executor and generator
// are decoupled by a durable on-disk queue that may outlive a restart, so
// the frame carries the pre-state snapshot the generator needs rather
// than making the generator re-derive it from store state that may have
// moved on by the time it pops -- see DESIGN.md's C10/C13 entries.
const StatefulTransactionSize = TransactionSize + statePayloadSize

// ToBytes serialises the transaction followed by its kind-specific
// pre-state payload, zero-padded to statePayloadSize.
func (st StatefulTransaction) ToBytes() [StatefulTransactionSize]byte {
	var out [StatefulTransactionSize]byte
	txBytes := st.Transaction.ToBytes()
	copy(out[:TransactionSize], txBytes[:])

	payload := out[TransactionSize:]
	switch st.Transaction.Kind {
	case TxDepositTokens:
		s := st.DepositState
		putU64LE(payload[0:8], s.UserTokenBalance)
		if s.IsFirstDepositOfToken {
			payload[8] = 1
		}
	case TxBurnTokens:
		s := st.BurnState
		putU64LE(payload[0:8], s.UserBurnTokenAmount)
		putU64LE(payload[8:16], s.UserBalanceTokenAmount)
		if s.IsFirstBurnOfToken {
			payload[16] = 1
		}
	case TxCreatePool:
		s := st.CreatePoolState
		putU64LE(payload[0:8], s.UserBalanceBaseTokenAmount)
		putU64LE(payload[8:16], s.UserBalanceQuoteTokenAmount)
	case TxProvideLiquidity:
		s := st.ProvideLiquidityState
		pts := s.UserLiquidityPoints.Bytes32()
		copy(payload[0:32], pts[:])
		putU64LE(payload[32:40], s.UserBalanceBaseTokenAmount)
		putU64LE(payload[40:48], s.UserBalanceQuoteTokenAmount)
		putU64LE(payload[48:56], s.PoolBaseTokenAmount)
		putU64LE(payload[56:64], s.PoolQuoteTokenAmount)
		total := s.PoolTotalLiquidityPoints.Bytes32()
		copy(payload[64:96], total[:])
		if s.IsFirstProviding {
			payload[96] = 1
		}
	case TxRemoveLiquidity:
		s := st.RemoveLiquidityState
		pts := s.UserLiquidityPoints.Bytes32()
		copy(payload[0:32], pts[:])
		putU64LE(payload[32:40], s.UserBalanceBaseTokenAmount)
		putU64LE(payload[40:48], s.UserBalanceQuoteTokenAmount)
		putU64LE(payload[48:56], s.PoolBaseTokenAmount)
		putU64LE(payload[56:64], s.PoolQuoteTokenAmount)
		total := s.PoolTotalLiquidityPoints.Bytes32()
		copy(payload[64:96], total[:])
	case TxBuyTokens:
		s := st.BuyTokensState
		putU64LE(payload[0:8], s.UserBalanceBaseTokenAmount)
		putU64LE(payload[8:16], s.UserBalanceQuoteTokenAmount)
		putU64LE(payload[16:24], s.PoolBaseTokenAmount)
		putU64LE(payload[24:32], s.PoolQuoteTokenAmount)
		total := s.PoolTotalLiquidityPoints.Bytes32()
		copy(payload[32:64], total[:])
	case TxSellTokens:
		s := st.SellTokensState
		putU64LE(payload[0:8], s.UserBalanceBaseTokenAmount)
		putU64LE(payload[8:16], s.UserBalanceQuoteTokenAmount)
		putU64LE(payload[16:24], s.PoolBaseTokenAmount)
		putU64LE(payload[24:32], s.PoolQuoteTokenAmount)
		total := s.PoolTotalLiquidityPoints.Bytes32()
		copy(payload[32:64], total[:])
	}
	return out
}

// StatefulTransactionFromBytes deserialises a frame produced by ToBytes.
func StatefulTransactionFromBytes(bytes [StatefulTransactionSize]byte) (StatefulTransaction, error) {
	var txBytes [TransactionSize]byte
	copy(txBytes[:], bytes[:TransactionSize])
	tx, err := TransactionFromBytes(txBytes)
	if err != nil {
		return StatefulTransaction{}, err
	}

	payload := bytes[TransactionSize:]
	st := StatefulTransaction{Transaction: tx}
	switch tx.Kind {
	case TxDepositTokens:
		st.DepositState = &DepositTokensState{
			UserTokenBalance:      getU64LE(payload[0:8]),
			IsFirstDepositOfToken: payload[8] != 0,
		}
	case TxBurnTokens:
		st.BurnState = &BurnTokensState{
			UserBurnTokenAmount:    getU64LE(payload[0:8]),
			UserBalanceTokenAmount: getU64LE(payload[8:16]),
			IsFirstBurnOfToken:     payload[16] != 0,
		}
	case TxCreatePool:
		st.CreatePoolState = &CreatePoolState{
			UserBalanceBaseTokenAmount:  getU64LE(payload[0:8]),
			UserBalanceQuoteTokenAmount: getU64LE(payload[8:16]),
		}
	case TxProvideLiquidity:
		st.ProvideLiquidityState = &ProvideLiquidityState{
			UserLiquidityPoints:         field.U256FromBytes32(payload[0:32]),
			UserBalanceBaseTokenAmount:  getU64LE(payload[32:40]),
			UserBalanceQuoteTokenAmount: getU64LE(payload[40:48]),
			PoolBaseTokenAmount:         getU64LE(payload[48:56]),
			PoolQuoteTokenAmount:        getU64LE(payload[56:64]),
			PoolTotalLiquidityPoints:    field.U256FromBytes32(payload[64:96]),
			IsFirstProviding:            payload[96] != 0,
		}
	case TxRemoveLiquidity:
		st.RemoveLiquidityState = &RemoveLiquidityState{
			UserLiquidityPoints:         field.U256FromBytes32(payload[0:32]),
			UserBalanceBaseTokenAmount:  getU64LE(payload[32:40]),
			UserBalanceQuoteTokenAmount: getU64LE(payload[40:48]),
			PoolBaseTokenAmount:         getU64LE(payload[48:56]),
			PoolQuoteTokenAmount:        getU64LE(payload[56:64]),
			PoolTotalLiquidityPoints:    field.U256FromBytes32(payload[64:96]),
		}
	case TxBuyTokens:
		st.BuyTokensState = &BuyTokensState{
			UserBalanceBaseTokenAmount:  getU64LE(payload[0:8]),
			UserBalanceQuoteTokenAmount: getU64LE(payload[8:16]),
			PoolBaseTokenAmount:         getU64LE(payload[16:24]),
			PoolQuoteTokenAmount:        getU64LE(payload[24:32]),
			PoolTotalLiquidityPoints:    field.U256FromBytes32(payload[32:64]),
		}
	case TxSellTokens:
		st.SellTokensState = &SellTokensState{
			UserBalanceBaseTokenAmount:  getU64LE(payload[0:8]),
			UserBalanceQuoteTokenAmount: getU64LE(payload[8:16]),
			PoolBaseTokenAmount:         getU64LE(payload[16:24]),
			PoolQuoteTokenAmount:        getU64LE(payload[24:32]),
			PoolTotalLiquidityPoints:    field.U256FromBytes32(payload[32:64]),
		}
	}
	return st, nil
}
