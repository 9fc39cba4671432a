package domain

import "github.com/zkamm/rollup/internal/field"

// BalanceSize is the on-disk record length of a Balance (spec §3: 55+32+8).
const BalanceSize = AddressSize + field.Size + 8

// Balance is a user's holding of a single token (spec §3), the leaf record
// of the Balances store.
type Balance struct {
	Owner       Address
	TokenID     field.U256
	TokenAmount uint64
}

// BalanceKey is the natural, uniqueness-invariant key of a Balance (spec
// §3: "(owner, token_id) is unique").
type BalanceKey struct {
	Owner   Address
	TokenID field.U256
}

// Key returns b's natural key.
func (b Balance) Key() BalanceKey { return BalanceKey{Owner: b.Owner, TokenID: b.TokenID} }

// ToFields encodes b as the circuit's field representation: [owner_x,
// owner_parity, token_id, token_amount] (spec §3).
func (b Balance) ToFields(h field.EntityHasher) [4]field.Field {
	owner := b.Owner.ToFields(h)
	return [4]field.Field{
		owner[0],
		owner[1],
		field.FieldFromU256(b.TokenID),
		field.FieldFromU256(field.U256FromUint64(b.TokenAmount)),
	}
}

// ToBytes encodes b into its 95-byte on-disk record (grounded on
// data-structures/src/balance.rs's to_bytes).
func (b Balance) ToBytes() [BalanceSize]byte {
	var out [BalanceSize]byte
	copy(out[0:55], b.Owner[:])
	tid := b.TokenID.Bytes32()
	copy(out[55:87], tid[:])
	putU64LE(out[87:95], b.TokenAmount)
	return out
}

// BalanceFromBytes decodes a 95-byte record into a Balance.
func BalanceFromBytes(bytes [BalanceSize]byte) Balance {
	return Balance{
		Owner:       AddressFromBytes(bytes[0:55]),
		TokenID:     field.U256FromBytes32(bytes[55:87]),
		TokenAmount: getU64LE(bytes[87:95]),
	}
}
