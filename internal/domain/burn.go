package domain

import "github.com/zkamm/rollup/internal/field"

// BurnSize is the on-disk record length of a Burn; identical shape to
// Balance with "burner" in place of "owner" (spec §3).
const BurnSize = BalanceSize

// Burn is a user's burned (bridged-out) amount of a single token (spec §3).
type Burn struct {
	Burner      Address
	TokenID     field.U256
	TokenAmount uint64
}

// BurnKey is the natural key (spec §3: "(burner, token_id) is unique").
type BurnKey struct {
	Burner  Address
	TokenID field.U256
}

// Key returns b's natural key.
func (b Burn) Key() BurnKey { return BurnKey{Burner: b.Burner, TokenID: b.TokenID} }

// ToFields encodes b as [burner_x, burner_parity, token_id, token_amount].
func (b Burn) ToFields(h field.EntityHasher) [4]field.Field {
	burner := b.Burner.ToFields(h)
	return [4]field.Field{
		burner[0],
		burner[1],
		field.FieldFromU256(b.TokenID),
		field.FieldFromU256(field.U256FromUint64(b.TokenAmount)),
	}
}

// ToBytes encodes b into its 95-byte on-disk record.
func (b Burn) ToBytes() [BurnSize]byte {
	var out [BurnSize]byte
	copy(out[0:55], b.Burner[:])
	tid := b.TokenID.Bytes32()
	copy(out[55:87], tid[:])
	putU64LE(out[87:95], b.TokenAmount)
	return out
}

// BurnFromBytes decodes a 95-byte record into a Burn.
func BurnFromBytes(bytes [BurnSize]byte) Burn {
	return Burn{
		Burner:      AddressFromBytes(bytes[0:55]),
		TokenID:     field.U256FromBytes32(bytes[55:87]),
		TokenAmount: getU64LE(bytes[87:95]),
	}
}
