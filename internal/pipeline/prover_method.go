package pipeline

import (
	"github.com/zkamm/rollup/internal/domain"
	"github.com/zkamm/rollup/internal/field"
	"github.com/zkamm/rollup/internal/merkle"
)

// MethodTag selects a ProverMethod frame variant (spec §6.3: "variant tag
// in {0..7} (genesis, deposit, burn, create_pool, provide, remove, buy,
// sell)"). Grounded on generator/src/method.rs's Method enum ordering.
type MethodTag uint8

const (
	MethodCreateGenesis MethodTag = iota
	MethodDepositTokens
	MethodBurnTokens
	MethodCreatePool
	MethodProvideLiquidity
	MethodRemoveLiquidity
	MethodBuyTokens
	MethodSellTokens
)

// Witness byte widths (spec §6.3, matching §6.4's 33*L / 67*L formulas
// against this module's fixed tree heights): single_balance 726 = 33*22
// (Balances H=23), single_burn 627 = 33*19 (Burns H=20), single_pool
// 660 = 33*20 (Pools H=21), single_liquidity 693 = 33*21 (Liquidities
// H=22), double_balance 1474 = 67*22 (Balances H=23).
const (
	stateRootsWidth       = 128
	earlierProofIdxWidth  = 8
	singleBalanceWidth    = 726
	singleBurnWidth       = 627
	singlePoolWidth       = 660
	singleLiquidityWidth  = 693
	doubleBalanceWidth    = 1474
)

// ProverMethodFrameSize is sized to the largest variant, RemoveLiquidity.
// generator/src/method.rs's commented-out to_bytes draft uses a 3,328-byte
// buffer and spec §6.3 names "3,291 bytes"; re-deriving the offsets from
// spec's own per-witness sizes (§6.3) against the Method enum's own field
// list (method.rs) gives ProvideLiquidity at 3,292 bytes and RemoveLiquidity
// at 3,323 bytes -- both above spec's stated headline number. Since the
// frame is write-only on the core side (spec §9 open question 2 -- no
// from_bytes, so no byte-exact parsing contract to satisfy) and the
// per-field witness widths are independently verified against §6.4's
// formulas, this implementation trusts the per-field sizes and sizes the
// frame to the largest variant rather than truncating a field to force
// the prose total; see DESIGN.md's C14 entry.
const ProverMethodFrameSize = 1 + stateRootsWidth + earlierProofIdxWidth + singlePoolWidth + singleLiquidityWidth + doubleBalanceWidth + 32 + 32 + domain.AddressSize + 32 + 8 + 8 + 8 + 8 + 32 + 32 + 8 + 8 + 96

func u256Bytes(u field.U256) []byte {
	b := u.Bytes32()
	return b[:]
}

func putU64(dst []byte, v uint64) {
	for i := 0; i < 8; i++ {
		dst[i] = byte(v >> (8 * i))
	}
}

func writeHeader(buf []byte, tag MethodTag, roots domain.StateRoots, earlierProofIndex uint64) int {
	buf[0] = byte(tag)
	rootsBytes := roots.ToBytes()
	copy(buf[1:1+stateRootsWidth], rootsBytes[:])
	offset := 1 + stateRootsWidth
	putU64(buf[offset:offset+8], earlierProofIndex)
	return offset + 8
}

// GenesisFrame encodes the CreateGenesis variant: just the tag and the
// four initial state roots.
func GenesisFrame(roots domain.StateRoots) [ProverMethodFrameSize]byte {
	var out [ProverMethodFrameSize]byte
	out[0] = byte(MethodCreateGenesis)
	rootsBytes := roots.ToBytes()
	copy(out[1:1+stateRootsWidth], rootsBytes[:])
	return out
}

// DepositTokensFrameInput bundles everything the generator gathers for a
// DepositTokens variant (spec §4.9 step 1, generator/src/method.rs).
type DepositTokensFrameInput struct {
	StateRoots          domain.StateRoots
	EarlierProofIndex   uint64
	SingleBalanceWitness merkle.SingleMerkleWitness
	UserAddress         domain.Address
	TokenID             field.U256
	DepositAmount       uint64
	BalanceAmount       uint64
	IsFirstDeposit      bool
}

// DepositTokensFrame encodes the DepositTokens variant.
func DepositTokensFrame(in DepositTokensFrameInput) [ProverMethodFrameSize]byte {
	var out [ProverMethodFrameSize]byte
	offset := writeHeader(out[:], MethodDepositTokens, in.StateRoots, in.EarlierProofIndex)
	copy(out[offset:offset+singleBalanceWidth], in.SingleBalanceWitness.Bytes())
	offset += singleBalanceWidth
	copy(out[offset:offset+domain.AddressSize], in.UserAddress.Bytes())
	offset += domain.AddressSize
	copy(out[offset:offset+32], u256Bytes(in.TokenID))
	offset += 32
	putU64(out[offset:offset+8], in.DepositAmount)
	offset += 8
	putU64(out[offset:offset+8], in.BalanceAmount)
	offset += 8
	if in.IsFirstDeposit {
		out[offset] = 1
	}
	return out
}

// BurnTokensFrameInput bundles the BurnTokens variant's fields.
type BurnTokensFrameInput struct {
	StateRoots           domain.StateRoots
	EarlierProofIndex    uint64
	SingleBalanceWitness merkle.SingleMerkleWitness
	SingleBurnWitness    merkle.SingleMerkleWitness
	UserAddress          domain.Address
	TokenID              field.U256
	BurnTokenAmount      uint64
	BalanceTokenAmount   uint64
	AmountToBurn         uint64
	UserSignature        domain.Signature
}

// BurnTokensFrame encodes the BurnTokens variant.
func BurnTokensFrame(in BurnTokensFrameInput) [ProverMethodFrameSize]byte {
	var out [ProverMethodFrameSize]byte
	offset := writeHeader(out[:], MethodBurnTokens, in.StateRoots, in.EarlierProofIndex)
	copy(out[offset:offset+singleBalanceWidth], in.SingleBalanceWitness.Bytes())
	offset += singleBalanceWidth
	copy(out[offset:offset+singleBurnWidth], in.SingleBurnWitness.Bytes())
	offset += singleBurnWidth
	copy(out[offset:offset+domain.AddressSize], in.UserAddress.Bytes())
	offset += domain.AddressSize
	copy(out[offset:offset+32], u256Bytes(in.TokenID))
	offset += 32
	putU64(out[offset:offset+8], in.BurnTokenAmount)
	offset += 8
	putU64(out[offset:offset+8], in.BalanceTokenAmount)
	offset += 8
	putU64(out[offset:offset+8], in.AmountToBurn)
	offset += 8
	copy(out[offset:offset+domain.SignatureSize], in.UserSignature.Bytes())
	return out
}

// poolPrefixInput is shared by CreatePool, ProvideLiquidity and
// RemoveLiquidity, which all open with single_pool_witness +
// single_liquidity_witness + double_balance_witness + base/quote token ids.
type poolPrefixInput struct {
	StateRoots              domain.StateRoots
	EarlierProofIndex       uint64
	SinglePoolWitness       merkle.SingleMerkleWitness
	SingleLiquidityWitness  merkle.SingleMerkleWitness
	DoubleBalanceWitness    merkle.DoubleMerkleWitness
	BaseTokenID             field.U256
	QuoteTokenID            field.U256
}

func writePoolPrefix(buf []byte, tag MethodTag, in poolPrefixInput) int {
	offset := writeHeader(buf, tag, in.StateRoots, in.EarlierProofIndex)
	copy(buf[offset:offset+singlePoolWidth], in.SinglePoolWitness.Bytes())
	offset += singlePoolWidth
	copy(buf[offset:offset+singleLiquidityWidth], in.SingleLiquidityWitness.Bytes())
	offset += singleLiquidityWidth
	copy(buf[offset:offset+doubleBalanceWidth], in.DoubleBalanceWitness.Bytes())
	offset += doubleBalanceWidth
	copy(buf[offset:offset+32], u256Bytes(in.BaseTokenID))
	offset += 32
	copy(buf[offset:offset+32], u256Bytes(in.QuoteTokenID))
	offset += 32
	return offset
}

// CreatePoolFrameInput bundles the CreatePool variant's fields.
type CreatePoolFrameInput struct {
	poolPrefixInput
	UserAddress                    domain.Address
	UserLiquidityBaseTokenAmount   uint64
	UserLiquidityQuoteTokenAmount  uint64
	UserBalanceBaseTokenAmount     uint64
	UserBalanceQuoteTokenAmount    uint64
	UserSignature                  domain.Signature
}

// CreatePoolFrame encodes the CreatePool variant.
func CreatePoolFrame(in CreatePoolFrameInput) [ProverMethodFrameSize]byte {
	var out [ProverMethodFrameSize]byte
	offset := writePoolPrefix(out[:], MethodCreatePool, in.poolPrefixInput)
	copy(out[offset:offset+domain.AddressSize], in.UserAddress.Bytes())
	offset += domain.AddressSize
	putU64(out[offset:offset+8], in.UserLiquidityBaseTokenAmount)
	offset += 8
	putU64(out[offset:offset+8], in.UserLiquidityQuoteTokenAmount)
	offset += 8
	putU64(out[offset:offset+8], in.UserBalanceBaseTokenAmount)
	offset += 8
	putU64(out[offset:offset+8], in.UserBalanceQuoteTokenAmount)
	offset += 8
	copy(out[offset:offset+domain.SignatureSize], in.UserSignature.Bytes())
	return out
}

// ProvideLiquidityFrameInput bundles the ProvideLiquidity variant's fields.
type ProvideLiquidityFrameInput struct {
	poolPrefixInput
	UserAddress                          domain.Address
	UserLiquidityPoints                  field.U256
	UserBalanceBaseTokenAmount           uint64
	UserBalanceQuoteTokenAmount          uint64
	PoolBaseTokenAmount                  uint64
	PoolQuoteTokenAmount                 uint64
	PoolTotalLiquidityPoints             field.U256
	UserBaseTokenAmountToProvide         uint64
	UserQuoteTokenAmountLimitToProvide   uint64
	IsFirstProviding                     bool
	UserSignature                        domain.Signature
}

// ProvideLiquidityFrame encodes the ProvideLiquidity variant.
func ProvideLiquidityFrame(in ProvideLiquidityFrameInput) [ProverMethodFrameSize]byte {
	var out [ProverMethodFrameSize]byte
	offset := writePoolPrefix(out[:], MethodProvideLiquidity, in.poolPrefixInput)
	copy(out[offset:offset+domain.AddressSize], in.UserAddress.Bytes())
	offset += domain.AddressSize
	copy(out[offset:offset+32], u256Bytes(in.UserLiquidityPoints))
	offset += 32
	putU64(out[offset:offset+8], in.UserBalanceBaseTokenAmount)
	offset += 8
	putU64(out[offset:offset+8], in.UserBalanceQuoteTokenAmount)
	offset += 8
	putU64(out[offset:offset+8], in.PoolBaseTokenAmount)
	offset += 8
	putU64(out[offset:offset+8], in.PoolQuoteTokenAmount)
	offset += 8
	copy(out[offset:offset+32], u256Bytes(in.PoolTotalLiquidityPoints))
	offset += 32
	putU64(out[offset:offset+8], in.UserBaseTokenAmountToProvide)
	offset += 8
	putU64(out[offset:offset+8], in.UserQuoteTokenAmountLimitToProvide)
	offset += 8
	if in.IsFirstProviding {
		out[offset] = 1
	}
	offset += 1
	copy(out[offset:offset+domain.SignatureSize], in.UserSignature.Bytes())
	return out
}

// RemoveLiquidityFrameInput bundles the RemoveLiquidity variant's fields.
type RemoveLiquidityFrameInput struct {
	poolPrefixInput
	UserAddress                        domain.Address
	UserLiquidityPoints                field.U256
	UserBalanceBaseTokenAmount         uint64
	UserBalanceQuoteTokenAmount        uint64
	PoolBaseTokenAmount                uint64
	PoolQuoteTokenAmount               uint64
	PoolTotalLiquidityPoints           field.U256
	UserLiquidityPointsToRemove        field.U256
	UserBaseTokenAmountLimitToRemove   uint64
	UserQuoteTokenAmountLimitToRemove  uint64
	UserSignature                      domain.Signature
}

// RemoveLiquidityFrame encodes the RemoveLiquidity variant.
func RemoveLiquidityFrame(in RemoveLiquidityFrameInput) [ProverMethodFrameSize]byte {
	var out [ProverMethodFrameSize]byte
	offset := writePoolPrefix(out[:], MethodRemoveLiquidity, in.poolPrefixInput)
	copy(out[offset:offset+domain.AddressSize], in.UserAddress.Bytes())
	offset += domain.AddressSize
	copy(out[offset:offset+32], u256Bytes(in.UserLiquidityPoints))
	offset += 32
	putU64(out[offset:offset+8], in.UserBalanceBaseTokenAmount)
	offset += 8
	putU64(out[offset:offset+8], in.UserBalanceQuoteTokenAmount)
	offset += 8
	putU64(out[offset:offset+8], in.PoolBaseTokenAmount)
	offset += 8
	putU64(out[offset:offset+8], in.PoolQuoteTokenAmount)
	offset += 8
	copy(out[offset:offset+32], u256Bytes(in.PoolTotalLiquidityPoints))
	offset += 32
	copy(out[offset:offset+32], u256Bytes(in.UserLiquidityPointsToRemove))
	offset += 32
	putU64(out[offset:offset+8], in.UserBaseTokenAmountLimitToRemove)
	offset += 8
	putU64(out[offset:offset+8], in.UserQuoteTokenAmountLimitToRemove)
	offset += 8
	copy(out[offset:offset+domain.SignatureSize], in.UserSignature.Bytes())
	return out
}

// swapPrefixInput is shared by BuyTokens/SellTokens, whose frames skip the
// liquidity witness (no liquidity row is touched by a swap).
type swapPrefixInput struct {
	StateRoots           domain.StateRoots
	EarlierProofIndex    uint64
	SinglePoolWitness    merkle.SingleMerkleWitness
	DoubleBalanceWitness merkle.DoubleMerkleWitness
	UserAddress          domain.Address
	BaseTokenID          field.U256
	QuoteTokenID         field.U256
	UserBalanceBaseTokenAmount  uint64
	UserBalanceQuoteTokenAmount uint64
	PoolBaseTokenAmount         uint64
	PoolQuoteTokenAmount        uint64
	PoolTotalLiquidityPoints    field.U256
}

func writeSwapPrefix(buf []byte, tag MethodTag, in swapPrefixInput) int {
	offset := writeHeader(buf, tag, in.StateRoots, in.EarlierProofIndex)
	copy(buf[offset:offset+singlePoolWidth], in.SinglePoolWitness.Bytes())
	offset += singlePoolWidth
	copy(buf[offset:offset+doubleBalanceWidth], in.DoubleBalanceWitness.Bytes())
	offset += doubleBalanceWidth
	copy(buf[offset:offset+domain.AddressSize], in.UserAddress.Bytes())
	offset += domain.AddressSize
	copy(buf[offset:offset+32], u256Bytes(in.BaseTokenID))
	offset += 32
	copy(buf[offset:offset+32], u256Bytes(in.QuoteTokenID))
	offset += 32
	putU64(buf[offset:offset+8], in.UserBalanceBaseTokenAmount)
	offset += 8
	putU64(buf[offset:offset+8], in.UserBalanceQuoteTokenAmount)
	offset += 8
	putU64(buf[offset:offset+8], in.PoolBaseTokenAmount)
	offset += 8
	putU64(buf[offset:offset+8], in.PoolQuoteTokenAmount)
	offset += 8
	copy(buf[offset:offset+32], u256Bytes(in.PoolTotalLiquidityPoints))
	offset += 32
	return offset
}

// BuyTokensFrameInput bundles the BuyTokens variant's fields.
type BuyTokensFrameInput struct {
	swapPrefixInput
	UserBaseTokenAmountToSwap         uint64
	UserQuoteTokenAmountLimitToSwap   uint64
	UserSignature                     domain.Signature
}

// BuyTokensFrame encodes the BuyTokens variant.
func BuyTokensFrame(in BuyTokensFrameInput) [ProverMethodFrameSize]byte {
	var out [ProverMethodFrameSize]byte
	offset := writeSwapPrefix(out[:], MethodBuyTokens, in.swapPrefixInput)
	putU64(out[offset:offset+8], in.UserBaseTokenAmountToSwap)
	offset += 8
	putU64(out[offset:offset+8], in.UserQuoteTokenAmountLimitToSwap)
	offset += 8
	copy(out[offset:offset+domain.SignatureSize], in.UserSignature.Bytes())
	return out
}

// SellTokensFrameInput bundles the SellTokens variant's fields.
type SellTokensFrameInput struct {
	swapPrefixInput
	UserBaseTokenAmountLimitToSwap  uint64
	UserQuoteTokenAmountToSwap      uint64
	UserSignature                   domain.Signature
}

// SellTokensFrame encodes the SellTokens variant.
func SellTokensFrame(in SellTokensFrameInput) [ProverMethodFrameSize]byte {
	var out [ProverMethodFrameSize]byte
	offset := writeSwapPrefix(out[:], MethodSellTokens, in.swapPrefixInput)
	putU64(out[offset:offset+8], in.UserBaseTokenAmountLimitToSwap)
	offset += 8
	putU64(out[offset:offset+8], in.UserQuoteTokenAmountToSwap)
	offset += 8
	copy(out[offset:offset+domain.SignatureSize], in.UserSignature.Bytes())
	return out
}
