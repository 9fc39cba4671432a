package domain

import "github.com/zkamm/rollup/internal/field"

// PoolSize is the on-disk record length of a Pool (spec §3: 112 bytes).
const PoolSize = field.Size + field.Size + 8 + 8 + field.Size

// Pool is one base/quote token AMM pair's reserve state (spec §3).
type Pool struct {
	BaseTokenID         field.U256
	QuoteTokenID        field.U256
	BaseTokenAmount     uint64
	QuoteTokenAmount    uint64
	TotalLiquidityPoints field.U256
}

// PoolKey is the natural key (spec §3: "(base_token_id, quote_token_id) is
// unique").
type PoolKey struct {
	BaseTokenID  field.U256
	QuoteTokenID field.U256
}

// Key returns p's natural key.
func (p Pool) Key() PoolKey {
	return PoolKey{BaseTokenID: p.BaseTokenID, QuoteTokenID: p.QuoteTokenID}
}

// ToFields encodes p as [base_token_id, quote_token_id, base_token_amount,
// quote_token_amount, total_liquidity_points] (grounded on
// data-structures/src/pool.rs's to_fields).
func (p Pool) ToFields() [5]field.Field {
	return [5]field.Field{
		field.FieldFromU256(p.BaseTokenID),
		field.FieldFromU256(p.QuoteTokenID),
		field.FieldFromU256(field.U256FromUint64(p.BaseTokenAmount)),
		field.FieldFromU256(field.U256FromUint64(p.QuoteTokenAmount)),
		field.FieldFromU256(p.TotalLiquidityPoints),
	}
}

// ToBytes encodes p into its 112-byte on-disk record (grounded on
// data-structures/src/pool.rs's to_bytes).
func (p Pool) ToBytes() [PoolSize]byte {
	var out [PoolSize]byte
	base := p.BaseTokenID.Bytes32()
	copy(out[0:32], base[:])
	quote := p.QuoteTokenID.Bytes32()
	copy(out[32:64], quote[:])
	putU64LE(out[64:72], p.BaseTokenAmount)
	putU64LE(out[72:80], p.QuoteTokenAmount)
	tlp := p.TotalLiquidityPoints.Bytes32()
	copy(out[80:112], tlp[:])
	return out
}

// PoolFromBytes decodes a 112-byte record into a Pool.
func PoolFromBytes(bytes [PoolSize]byte) Pool {
	return Pool{
		BaseTokenID:          field.U256FromBytes32(bytes[0:32]),
		QuoteTokenID:         field.U256FromBytes32(bytes[32:64]),
		BaseTokenAmount:      getU64LE(bytes[64:72]),
		QuoteTokenAmount:     getU64LE(bytes[72:80]),
		TotalLiquidityPoints: field.U256FromBytes32(bytes[80:112]),
	}
}
