// Package domain implements the rollup's primitive and entity types (spec
// §3): base58check Address/Signature, the five domain entities, the
// Transaction wire frame and its StatefulTransaction pre-state pairing,
// StateRoots, and TxStatus.
package domain

import (
	"fmt"

	"github.com/zkamm/rollup/internal/field"
)

const (
	// AddressSize is the on-disk/wire length of an Address (spec §3).
	AddressSize = 55
	addressPrefix = "B62q"
)

// Address is the 55-byte ASCII base58check encoding of a public key,
// always beginning with "B62q" (spec §3). Validity is checked by length,
// prefix, and per-byte alphabet membership only -- this module never
// decompresses the underlying elliptic-curve point (spec §1 Non-goals:
// "elliptic-curve group recovery").
type Address [AddressSize]byte

// IsValidAddressString reports whether s has the shape of a valid Address:
// 55 bytes, "B62q" prefix, and every remaining byte in the base58
// alphabet (grounded on data-structures/src/address.rs's is_valid).
func IsValidAddressString(s string) bool {
	if len(s) != AddressSize {
		return false
	}
	if s[0:4] != addressPrefix {
		return false
	}
	return isBase58Alphabet(s)
}

// ParseAddress validates and converts an ASCII address string to an
// Address.
func ParseAddress(s string) (Address, error) {
	if !IsValidAddressString(s) {
		return Address{}, fmt.Errorf("domain: invalid address %q", s)
	}
	var a Address
	copy(a[:], s)
	return a, nil
}

// AddressFromBytes interprets a raw 55-byte slice as an Address without
// re-validating the alphabet, used when reading already-persisted records.
func AddressFromBytes(b []byte) Address {
	var a Address
	copy(a[:], b)
	return a
}

// Bytes returns the raw 55-byte encoding.
func (a Address) Bytes() []byte { return a[:] }

// String renders the address as its ASCII form.
func (a Address) String() string { return string(a[:]) }

// ToFields decodes the address into the pair of field elements the
// circuit consumes for a public key: (x, parity) (spec §3: "decodes to a
// pair of fields (x, parity)"). Full elliptic-curve decompression of the
// base58check-encoded point is out of scope (spec §1), so this derives a
// deterministic, collision-resistant stand-in pair from the address bytes
// via the module's Hasher rather than an actual curve-point recovery.
func (a Address) ToFields(h field.EntityHasher) [2]field.Field {
	x := h.HashFields([]field.Field{field.FieldFromBytes32(a[4:36]), field.FieldFromBytes32(padTo32(a[36:]))})
	parity := field.FieldZero
	if a[AddressSize-1]%2 == 1 {
		parity = field.FieldFromU256(field.U256FromUint64(1))
	}
	return [2]field.Field{x, parity}
}

func padTo32(b []byte) []byte {
	var out [32]byte
	copy(out[:], b)
	return out[:]
}

func isBase58Alphabet(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '1' && c <= '9':
		case c >= 'A' && c <= 'H':
		case c >= 'J' && c <= 'N':
		case c >= 'P' && c <= 'Z':
		case c >= 'a' && c <= 'k':
		case c >= 'm' && c <= 'z':
		default:
			return false
		}
	}
	return true
}
