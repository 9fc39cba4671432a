package domain

import "github.com/zkamm/rollup/internal/field"

// DepositSize is the on-disk record length of a Deposit (spec §3, same
// shape as Withdrawal).
const DepositSize = BalanceSize

// Deposit is a user's bridged-in amount of a single token, produced by the
// fetcher from L1 deposit events (spec §3, §4.11).
type Deposit struct {
	Depositor   Address
	TokenID     field.U256
	TokenAmount uint64
}

// ToFields encodes d as [depositor_x, depositor_parity, token_id,
// token_amount].
func (d Deposit) ToFields(h field.EntityHasher) [4]field.Field {
	depositor := d.Depositor.ToFields(h)
	return [4]field.Field{
		depositor[0],
		depositor[1],
		field.FieldFromU256(d.TokenID),
		field.FieldFromU256(field.U256FromUint64(d.TokenAmount)),
	}
}

// ToBytes encodes d into its 95-byte on-disk record.
func (d Deposit) ToBytes() [DepositSize]byte {
	var out [DepositSize]byte
	copy(out[0:55], d.Depositor[:])
	tid := d.TokenID.Bytes32()
	copy(out[55:87], tid[:])
	putU64LE(out[87:95], d.TokenAmount)
	return out
}

// DepositFromBytes decodes a 95-byte record into a Deposit.
func DepositFromBytes(bytes [DepositSize]byte) Deposit {
	return Deposit{
		Depositor:   AddressFromBytes(bytes[0:55]),
		TokenID:     field.U256FromBytes32(bytes[55:87]),
		TokenAmount: getU64LE(bytes[87:95]),
	}
}
