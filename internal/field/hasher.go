package field

import "golang.org/x/crypto/sha3"

// Hasher is the two-input tree hash capability every Merkle tree (C6, C7)
// is built over (spec §4.4: "zeroes[i]=hash(zeroes[i-1], zeroes[i-1])";
// §9: "implementers supply a concrete Poseidon-over-Pallas variant ... that
// matches the external prover's circuit"). Reproducing the exact circuit is
// explicitly out of scope (spec §1 Non-goals); this module depends only on
// the interface, with one non-circuit-matching default implementation for
// tests and standalone operation.
type Hasher interface {
	// Hash2 combines two field elements into one, used for every internal
	// Merkle node (spec §4.4) and witness fold (spec §4.12).
	Hash2(left, right Field) Field
}

// EntityHasher folds an entity's field representation (spec §4.6:
// "hash(entity.to_fields())") down to the single field value stored as a
// tree leaf. Each implementation supplies HashFields; DefaultHasher's
// left-folds Hash2.
type EntityHasher interface {
	Hasher
	HashFields(fields []Field) Field
}

// sha3Hasher is the default Hasher: a sha3-256 compression of the two
// operands' byte encodings, reduced back into a Field. It does not attempt
// to reproduce any specific circuit's Poseidon-over-Pallas permutation
// (round constants, MDS matrix, S-box degree) since matching the external
// prover's exact arithmetization is out of scope (spec §1, §9) -- it exists
// so stores, trees, and pipeline stages are exercisable end-to-end without
// an external hasher subprocess configured.
type sha3Hasher struct{}

// DefaultHasher returns the package-wide non-circuit-matching Hasher.
func DefaultHasher() EntityHasher { return sha3Hasher{} }

// Hash2 implements Hasher.
func (sha3Hasher) Hash2(left, right Field) Field {
	lb := left.Bytes32()
	rb := right.Bytes32()
	var buf [2 * Size]byte
	copy(buf[:Size], lb[:])
	copy(buf[Size:], rb[:])
	sum := sha3.Sum256(buf[:])
	return FieldFromBytes32(sum[:])
}

// HashFields implements EntityHasher by left-folding Hash2 over the field
// list: hash(f0,f1) -> hash(that,f2) -> ... (spec §4.6's
// "hash(entity.to_fields())", which names an arbitrary-arity hash built from
// the same two-input primitive).
func (h sha3Hasher) HashFields(fields []Field) Field {
	if len(fields) == 0 {
		return FieldZero
	}
	acc := fields[0]
	for _, f := range fields[1:] {
		acc = h.Hash2(acc, f)
	}
	return acc
}
