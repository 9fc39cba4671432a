package domain

import "github.com/zkamm/rollup/internal/field"

// WithdrawalSize is the on-disk record length of a Withdrawal (spec §3).
const WithdrawalSize = BalanceSize

// Withdrawal is a user's total withdrawn amount of a single token, stored
// in the Withdrawals store (spec §3, grounded on
// data-structures/src/withdrawal.rs).
type Withdrawal struct {
	Withdrawer  Address
	TokenID     field.U256
	TokenAmount uint64
}

// WithdrawalKey is the natural key: one record per (withdrawer, token_id).
type WithdrawalKey struct {
	Withdrawer Address
	TokenID    field.U256
}

// Key returns w's natural key.
func (w Withdrawal) Key() WithdrawalKey {
	return WithdrawalKey{Withdrawer: w.Withdrawer, TokenID: w.TokenID}
}

// ToFields encodes w as [withdrawer_x, withdrawer_parity, token_id,
// token_amount].
func (w Withdrawal) ToFields(h field.EntityHasher) [4]field.Field {
	withdrawer := w.Withdrawer.ToFields(h)
	return [4]field.Field{
		withdrawer[0],
		withdrawer[1],
		field.FieldFromU256(w.TokenID),
		field.FieldFromU256(field.U256FromUint64(w.TokenAmount)),
	}
}

// ToBytes encodes w into its 95-byte on-disk record.
func (w Withdrawal) ToBytes() [WithdrawalSize]byte {
	var out [WithdrawalSize]byte
	copy(out[0:55], w.Withdrawer[:])
	tid := w.TokenID.Bytes32()
	copy(out[55:87], tid[:])
	putU64LE(out[87:95], w.TokenAmount)
	return out
}

// WithdrawalFromBytes decodes a 95-byte record into a Withdrawal.
func WithdrawalFromBytes(bytes [WithdrawalSize]byte) Withdrawal {
	return Withdrawal{
		Withdrawer:  AddressFromBytes(bytes[0:55]),
		TokenID:     field.U256FromBytes32(bytes[55:87]),
		TokenAmount: getU64LE(bytes[87:95]),
	}
}
