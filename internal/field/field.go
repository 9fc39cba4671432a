package field

// Field is an element of the prime field used by the external ZK circuit
// (spec §3: "an element of a prime field ≈2^254"). The exact modulus is a
// property of whatever circuit the external prover implements and is out of
// scope here (spec §1 Non-goals); this module only needs the canonical
// 32-byte little-endian encoding and the fact that the U256<->Field
// injection is the identity on bytes (spec §3).
type Field struct {
	bytes U256
}

// FieldFromU256 converts a U256 to a Field. The conversion is the identity
// on bytes (spec §3).
func FieldFromU256(u U256) Field { return Field{bytes: u} }

// ToU256 converts a Field back to a U256, the identity inverse of
// FieldFromU256.
func (f Field) ToU256() U256 { return f.bytes }

// FieldFromBytes32 decodes 32 little-endian bytes into a Field.
func FieldFromBytes32(b []byte) Field { return Field{bytes: U256FromBytes32(b)} }

// Bytes32 encodes f as 32 little-endian bytes.
func (f Field) Bytes32() [Size]byte { return f.bytes.Bytes32() }

// FieldZero is the additive identity, and is also the level-0 "zero hash"
// seed for every Merkle tree (spec §4.4: "zeroes[0]=0").
var FieldZero = Field{}

// Eq reports whether f == o.
func (f Field) Eq(o Field) bool { return f.bytes.Eq(o.bytes) }

// String renders f in decimal.
func (f Field) String() string { return f.bytes.String() }
