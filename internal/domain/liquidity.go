package domain

import "github.com/zkamm/rollup/internal/field"

// LiquiditySize is the on-disk record length of a Liquidity: address +
// two token ids + U256 points (spec §3).
const LiquiditySize = AddressSize + field.Size + field.Size + field.Size

// Liquidity is a provider's points in one base/quote pool (spec §3).
type Liquidity struct {
	Provider     Address
	BaseTokenID  field.U256
	QuoteTokenID field.U256
	Points       field.U256
}

// LiquidityKey is the natural key (spec §3: "(provider, base_token_id,
// quote_token_id) is unique").
type LiquidityKey struct {
	Provider     Address
	BaseTokenID  field.U256
	QuoteTokenID field.U256
}

// Key returns l's natural key.
func (l Liquidity) Key() LiquidityKey {
	return LiquidityKey{Provider: l.Provider, BaseTokenID: l.BaseTokenID, QuoteTokenID: l.QuoteTokenID}
}

// ToFields encodes l as [provider_x, provider_parity, base_token_id,
// quote_token_id, points] -- 5 fields per spec §3 ("field encoding 5
// fields"), with the provider's two pubkey fields each in its own position.
func (l Liquidity) ToFields(h field.EntityHasher) [5]field.Field {
	provider := l.Provider.ToFields(h)
	return [5]field.Field{
		provider[0],
		provider[1],
		field.FieldFromU256(l.BaseTokenID),
		field.FieldFromU256(l.QuoteTokenID),
		field.FieldFromU256(l.Points),
	}
}

// ToBytes encodes l into its on-disk record.
func (l Liquidity) ToBytes() [LiquiditySize]byte {
	var out [LiquiditySize]byte
	copy(out[0:55], l.Provider[:])
	base := l.BaseTokenID.Bytes32()
	copy(out[55:87], base[:])
	quote := l.QuoteTokenID.Bytes32()
	copy(out[87:119], quote[:])
	points := l.Points.Bytes32()
	copy(out[119:151], points[:])
	return out
}

// LiquidityFromBytes decodes a record into a Liquidity.
func LiquidityFromBytes(bytes [LiquiditySize]byte) Liquidity {
	return Liquidity{
		Provider:     AddressFromBytes(bytes[0:55]),
		BaseTokenID:  field.U256FromBytes32(bytes[55:87]),
		QuoteTokenID: field.U256FromBytes32(bytes[87:119]),
		Points:       field.U256FromBytes32(bytes[119:151]),
	}
}
