// Package field implements the fixed-width numeric primitives shared by
// every on-disk store and wire frame: the 256-bit opaque value U256, the
// prime-field element Field, and the Hasher capability used to build
// Merkle trees over field elements (spec §3, §9).
package field

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// ErrOverflow is returned whenever a conversion or arithmetic operation
// cannot be represented in the destination width (spec §7 "Overflow").
var ErrOverflow = errors.New("field: overflow")

// Size is the canonical on-disk and wire encoding length of both U256 and
// Field values (spec §3, §6.1).
const Size = 32

// U256 is an opaque 256-bit value, canonically encoded as 32 little-endian
// bytes (spec §3). It is used for pool liquidity points and any other
// quantity wider than a u64.
type U256 struct {
	inner uint256.Int
}

// Zero is the additive identity.
var Zero = U256{}

// U256FromUint64 zero-extends a u64 into a U256 (spec §3: "u64→U256
// zero-extends").
func U256FromUint64(v uint64) U256 {
	var u U256
	u.inner.SetUint64(v)
	return u
}

// U256FromBytes32 decodes 32 little-endian bytes into a U256. It panics if
// b is not exactly 32 bytes long, matching the fixed-width wire contract of
// every caller (callers always slice an exact 32-byte window out of a
// larger frame).
func U256FromBytes32(b []byte) U256 {
	if len(b) != Size {
		panic(fmt.Sprintf("field: U256FromBytes32: want %d bytes, got %d", Size, len(b)))
	}
	var be [Size]byte
	reverseInto(be[:], b)
	var u U256
	u.inner.SetBytes32(be[:])
	return u
}

// Bytes32 encodes u as 32 little-endian bytes.
func (u U256) Bytes32() [Size]byte {
	be := u.inner.Bytes32()
	var le [Size]byte
	reverseInto(le[:], be[:])
	return le
}

// reverseInto writes the byte-reversal of src into dst. Reversing a
// big-endian 256-bit representation produces its little-endian
// representation and vice versa (spec §3: "32 little-endian bytes,
// little-endian 64-bit limbs").
func reverseInto(dst, src []byte) {
	n := len(src)
	for i := 0; i < n; i++ {
		dst[i] = src[n-1-i]
	}
}

// Uint64 returns u truncated to the low 64 bits, along with whether the
// value fit without loss (spec §3 TryFrom<&U256> for u64/u128 semantics).
func (u U256) Uint64() (uint64, bool) {
	return u.inner.Uint64(), u.inner.IsUint64()
}

// MustUint64 returns u as a u64, returning ErrOverflow if it does not fit.
func (u U256) MustUint64() (uint64, error) {
	v, ok := u.Uint64()
	if !ok {
		return 0, ErrOverflow
	}
	return v, nil
}

// Add returns a+b. 256-bit addition does not itself need an overflow
// signal in this rollup's arithmetic (only u64 conversions at the domain
// boundary do, per spec §4.8), so this wraps modulo 2^256 like the
// underlying library.
func (u U256) Add(o U256) U256 {
	var r U256
	r.inner.Add(&u.inner, &o.inner)
	return r
}

// Sub returns u-o. Panics-free; underflow wraps modulo 2^256. Callers that
// must detect underflow (balance debits) compare operands with Cmp first,
// per the store-level NotEnoughBalance/NotEnoughLiquidity checks in spec §4.8.
func (u U256) Sub(o U256) U256 {
	var r U256
	r.inner.Sub(&u.inner, &o.inner)
	return r
}

// Mul returns u*o, wrapping modulo 2^256.
func (u U256) Mul(o U256) U256 {
	var r U256
	r.inner.Mul(&u.inner, &o.inner)
	return r
}

// MulDiv returns floor(u*m/d) computed with a 512-bit intermediate product
// so it never overflows 256 bits even when u*m alone would. This is the
// primitive behind every AMM ratio in spec §4.8 (ProvideLiquidity,
// RemoveLiquidity, BuyTokens, SellTokens). ok is false if d is zero.
func (u U256) MulDiv(m, d U256) (result U256, ok bool) {
	var r uint256.Int
	_, overflow := r.MulDivOverflow(&u.inner, &m.inner, &d.inner)
	if overflow {
		// MulDivOverflow's "overflow" means the *result* exceeds 256 bits,
		// which cannot happen for quantities already bounded by u64 inputs;
		// surfaced for completeness so callers never silently wrap.
		return U256{}, false
	}
	if d.IsZero() {
		return U256{}, false
	}
	return U256{inner: r}, true
}

// MulDivCeil returns ceil(u*m/d), used by BuyTokens' ceiling-division
// contract (spec §4.8: "new_Q = ceil(B·Q / new_B)").
func (u U256) MulDivCeil(m, d U256) (result U256, ok bool) {
	quot, ok := u.MulDiv(m, d)
	if !ok {
		return U256{}, false
	}
	prod := u.Mul(m)
	rem := prod.Sub(quot.Mul(d))
	if !rem.IsZero() {
		quot = quot.Add(U256FromUint64(1))
	}
	return quot, true
}

// IsZero reports whether u is the zero value.
func (u U256) IsZero() bool { return u.inner.IsZero() }

// Cmp returns -1, 0, or 1 comparing u to o, matching math/big's Cmp
// convention.
func (u U256) Cmp(o U256) int { return u.inner.Cmp(&o.inner) }

// Lt reports whether u < o.
func (u U256) Lt(o U256) bool { return u.inner.Lt(&o.inner) }

// Gt reports whether u > o.
func (u U256) Gt(o U256) bool { return u.inner.Gt(&o.inner) }

// Eq reports whether u == o.
func (u U256) Eq(o U256) bool { return u.inner.Eq(&o.inner) }

// String renders u in decimal, matching the constants spec §8 quotes for
// empty-tree roots.
func (u U256) String() string { return u.inner.Dec() }
