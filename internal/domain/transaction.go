package domain

import (
	"fmt"

	"github.com/zkamm/rollup/internal/field"
)

// TransactionSize is the fixed wire length of a client-submitted
// Transaction frame (spec §6.2).
const TransactionSize = 264

// TxKind tags which of the seven Transaction variants a frame carries
// (spec §6.2: "Byte 0 = variant tag in {0..5}" for the six client-
// submittable kinds). TxDepositTokens takes the next tag value, 6: it is
// never accepted over the client RPC frame (no RPC method names it, spec
// §6.5) but the fetcher (C16) synthesizes one internally from L1 deposit
// events and admits it to the mempool using this same 264-byte frame
// shape, so it still needs a tag of its own.
type TxKind uint8

const (
	TxBurnTokens TxKind = iota
	TxCreatePool
	TxProvideLiquidity
	TxRemoveLiquidity
	TxBuyTokens
	TxSellTokens
	TxDepositTokens
)

// String renders the variant name, used in logs and error messages.
func (k TxKind) String() string {
	switch k {
	case TxBurnTokens:
		return "BurnTokens"
	case TxCreatePool:
		return "CreatePool"
	case TxProvideLiquidity:
		return "ProvideLiquidity"
	case TxRemoveLiquidity:
		return "RemoveLiquidity"
	case TxBuyTokens:
		return "BuyTokens"
	case TxSellTokens:
		return "SellTokens"
	case TxDepositTokens:
		return "DepositTokens"
	default:
		return fmt.Sprintf("TxKind(%d)", uint8(k))
	}
}

// Transaction is the client-submitted, signed request frame (spec §6.2).
// Its 264 bytes are laid out as:
//
//	[0:1)    kind tag, 0..5 for client kinds, 6 for DepositTokens
//	[1:56)   address        (55 bytes)
//	[56:152) signature      (96 bytes)
//	[152:184) base_token_id / token_id for BurnTokens (32 bytes)
//	[184:216) quote_token_id, zero for BurnTokens      (32 bytes)
//	[216:224) amount1 (u64 LE)
//	[224:232) amount2 (u64 LE)
//	[232:264) amount3 (u64 LE, padded with 24 zero bytes) for every kind
//	          except RemoveLiquidity, which instead stores its full U256
//	          liquidity-points value across all 32 bytes of this window.
//
// This fits the spec's "address, signature, base/quote token ids, two or
// three u64 amount fields, and for RemoveLiquidity a trailing U256" layout
// exactly within 264 bytes (tag+addr+sig+2 token ids = 216 bytes, leaving
// a 48-byte tail split 8+8+32).
type Transaction struct {
	Kind      TxKind
	Address   Address
	Signature Signature

	// BaseTokenID holds the single token id for BurnTokens.
	BaseTokenID  field.U256
	QuoteTokenID field.U256

	// Amount1/Amount2/Amount3 are populated per-kind; see the per-kind
	// accessor constructors below. Amount3 is unused whenever
	// LiquidityPoints is set (RemoveLiquidity).
	Amount1 uint64
	Amount2 uint64
	Amount3 uint64

	// LiquidityPoints is set only for RemoveLiquidity, occupying the same
	// tail window as Amount3.
	LiquidityPoints field.U256
	hasPoints       bool
}

// NewBurnTokens builds a BurnTokens transaction: burn `amount` of token_id.
func NewBurnTokens(addr Address, sig Signature, tokenID field.U256, amount uint64) Transaction {
	return Transaction{Kind: TxBurnTokens, Address: addr, Signature: sig, BaseTokenID: tokenID, Amount1: amount}
}

// NewDepositTokens builds a DepositTokens transaction: credit `amount` of
// token_id to addr. Synthesized internally by the fetcher (C16), never
// submitted by a client (spec §6.5 names no DepositTokens RPC method).
func NewDepositTokens(addr Address, tokenID field.U256, amount uint64) Transaction {
	return Transaction{Kind: TxDepositTokens, Address: addr, BaseTokenID: tokenID, Amount1: amount}
}

// NewCreatePool builds a CreatePool transaction seeding a fresh pool with
// baseAmount/quoteAmount reserves.
func NewCreatePool(addr Address, sig Signature, baseTokenID, quoteTokenID field.U256, baseAmount, quoteAmount uint64) Transaction {
	return Transaction{
		Kind: TxCreatePool, Address: addr, Signature: sig,
		BaseTokenID: baseTokenID, QuoteTokenID: quoteTokenID,
		Amount1: baseAmount, Amount2: quoteAmount,
	}
}

// NewProvideLiquidity builds a ProvideLiquidity transaction: deposit
// baseAmount of the base token, accepting up to quoteLimit of the quote
// token (spec §4.8).
func NewProvideLiquidity(addr Address, sig Signature, baseTokenID, quoteTokenID field.U256, baseAmount, quoteLimit uint64) Transaction {
	return Transaction{
		Kind: TxProvideLiquidity, Address: addr, Signature: sig,
		BaseTokenID: baseTokenID, QuoteTokenID: quoteTokenID,
		Amount1: baseAmount, Amount2: quoteLimit,
	}
}

// NewRemoveLiquidity builds a RemoveLiquidity transaction redeeming
// liquidityPoints worth of pool ownership, requiring at least baseLimit of
// the base token and quoteLimit of the quote token in return (spec §4.8:
// the RemoveLiquidity limits are minimums, unlike every other kind's
// limits). These ride in the same Amount1/Amount2 slots every other kind
// uses for its own limits -- RemoveLiquidity's only kind-specific payload
// is the trailing U256 liquidityPoints field, so the two u64 windows ahead
// of it are otherwise idle.
func NewRemoveLiquidity(addr Address, sig Signature, baseTokenID, quoteTokenID field.U256, liquidityPoints field.U256, baseLimit, quoteLimit uint64) Transaction {
	return Transaction{
		Kind: TxRemoveLiquidity, Address: addr, Signature: sig,
		BaseTokenID: baseTokenID, QuoteTokenID: quoteTokenID,
		Amount1: baseLimit, Amount2: quoteLimit,
		LiquidityPoints: liquidityPoints, hasPoints: true,
	}
}

// NewBuyTokens builds a BuyTokens transaction: buy baseAmountOut of the
// base token, paying at most quoteLimit of the quote token (spec §4.8).
func NewBuyTokens(addr Address, sig Signature, baseTokenID, quoteTokenID field.U256, baseAmountOut, quoteLimit uint64) Transaction {
	return Transaction{
		Kind: TxBuyTokens, Address: addr, Signature: sig,
		BaseTokenID: baseTokenID, QuoteTokenID: quoteTokenID,
		Amount1: baseAmountOut, Amount2: quoteLimit,
	}
}

// NewSellTokens builds a SellTokens transaction: sell baseAmountIn of the
// base token, requiring at least quoteLimit of the quote token in return.
func NewSellTokens(addr Address, sig Signature, baseTokenID, quoteTokenID field.U256, baseAmountIn, quoteLimit uint64) Transaction {
	return Transaction{
		Kind: TxSellTokens, Address: addr, Signature: sig,
		BaseTokenID: baseTokenID, QuoteTokenID: quoteTokenID,
		Amount1: baseAmountIn, Amount2: quoteLimit,
	}
}

// ToFields packs the fields a client signs over -- everything in the
// frame except the signature itself -- for use with Verifier.Verify.
func (t Transaction) ToFields(h field.EntityHasher) []field.Field {
	addrFields := t.Address.ToFields(h)
	tail := t.LiquidityPoints
	if !t.hasPoints {
		tail = field.U256FromUint64(t.Amount3)
	}
	return []field.Field{
		field.FieldFromU256(field.U256FromUint64(uint64(t.Kind))),
		addrFields[0],
		addrFields[1],
		field.FieldFromU256(t.BaseTokenID),
		field.FieldFromU256(t.QuoteTokenID),
		field.FieldFromU256(field.U256FromUint64(t.Amount1)),
		field.FieldFromU256(field.U256FromUint64(t.Amount2)),
		field.FieldFromU256(tail),
	}
}

// ToBytes encodes t into its 264-byte wire frame (spec §6.2).
func (t Transaction) ToBytes() [TransactionSize]byte {
	var out [TransactionSize]byte
	out[0] = byte(t.Kind)
	copy(out[1:56], t.Address[:])
	copy(out[56:152], t.Signature[:])
	base := t.BaseTokenID.Bytes32()
	copy(out[152:184], base[:])
	quote := t.QuoteTokenID.Bytes32()
	copy(out[184:216], quote[:])
	putU64LE(out[216:224], t.Amount1)
	putU64LE(out[224:232], t.Amount2)
	if t.hasPoints {
		points := t.LiquidityPoints.Bytes32()
		copy(out[232:264], points[:])
	} else {
		putU64LE(out[232:240], t.Amount3)
	}
	return out
}

// TransactionFromBytes decodes a 264-byte wire frame into a Transaction.
// It is used by the RPC side and when reading transactions back from the
// mempool and proofpool; the ProverMethod frame (§6.3) has no decoder.
func TransactionFromBytes(bytes [TransactionSize]byte) (Transaction, error) {
	kind := TxKind(bytes[0])
	if kind > TxDepositTokens {
		return Transaction{}, fmt.Errorf("domain: unknown transaction kind tag %d", bytes[0])
	}

	t := Transaction{
		Kind:         kind,
		Address:      AddressFromBytes(bytes[1:56]),
		Signature:    SignatureFromBytes(bytes[56:152]),
		BaseTokenID:  field.U256FromBytes32(bytes[152:184]),
		QuoteTokenID: field.U256FromBytes32(bytes[184:216]),
		Amount1:      getU64LE(bytes[216:224]),
		Amount2:      getU64LE(bytes[224:232]),
	}

	if kind == TxRemoveLiquidity {
		t.LiquidityPoints = field.U256FromBytes32(bytes[232:264])
		t.hasPoints = true
	} else {
		t.Amount3 = getU64LE(bytes[232:240])
	}

	return t, nil
}
