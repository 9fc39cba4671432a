// Package merkle implements the on-disk authenticated indices every domain
// store is built on: DynamicMerkleTree for append/update stores and
// StaticMerkleTree for fixed-population stores, plus the single- and
// double-leaf witness types both tree flavors emit (spec §4.4, §4.5, §4.12).
package merkle

import (
	"github.com/zkamm/rollup/internal/field"
)

// Sibling is one step of a Merkle path: the neighboring hash at that level
// and whether it sits to the left of the path being witnessed.
type Sibling struct {
	Value  field.Field
	IsLeft bool
}

// siblingBytes is the wire width of one encoded Sibling: 32 value bytes
// followed by a single is_left byte (spec §4.12, §6.4).
const siblingBytes = 33

// SingleMerkleWitness is the sibling path from one leaf to the root of a
// tree of height H (L = H-1 siblings).
type SingleMerkleWitness struct {
	Siblings []Sibling
}

// CalculateRoot folds value up the path recorded in w, combining
// (current, sibling) in the order dictated by sibling.IsLeft at each level.
func (w SingleMerkleWitness) CalculateRoot(hasher field.Hasher, value field.Field) field.Field {
	root := value
	for _, s := range w.Siblings {
		if s.IsLeft {
			root = hasher.Hash2(s.Value, root)
		} else {
			root = hasher.Hash2(root, s.Value)
		}
	}
	return root
}

// Bytes encodes the witness as 33*L bytes: value[32] || is_left[1] per
// sibling, lowest level first (spec §6.4).
func (w SingleMerkleWitness) Bytes() []byte {
	buf := make([]byte, siblingBytes*len(w.Siblings))
	for i, s := range w.Siblings {
		off := i * siblingBytes
		v := s.Value.Bytes32()
		copy(buf[off:off+32], v[:])
		if s.IsLeft {
			buf[off+32] = 1
		}
	}
	return buf
}

// DoubleMerkleWitness is the sibling paths from two distinct leaves to the
// root of the same tree, plus the convergence marker between them.
type DoubleMerkleWitness struct {
	SiblingsX1 []Sibling
	SiblingsX2 []Sibling
	// SiblingsAt has exactly one true entry: the lowest level at which the
	// two paths converge (the sibling of x1 at that level is x2, or vice
	// versa).
	SiblingsAt []bool
}

// CalculateRoot folds valueX1/valueX2 up their respective paths. At the
// convergence level, the recorded sibling for path 1 is replaced with path
// 2's current folded value (and vice versa would be symmetric but the
// reference implementation always returns rootX1; spec §4.12).
func (w DoubleMerkleWitness) CalculateRoot(hasher field.Hasher, valueX1, valueX2 field.Field) field.Field {
	rootX1 := valueX1
	rootX2 := valueX2

	for i := range w.SiblingsX1 {
		siblingX1 := w.SiblingsX1[i].Value
		if w.SiblingsAt[i] {
			siblingX1 = rootX2
		}

		if w.SiblingsX1[i].IsLeft {
			rootX1 = hasher.Hash2(siblingX1, rootX1)
		} else {
			rootX1 = hasher.Hash2(rootX1, siblingX1)
		}

		if w.SiblingsX2[i].IsLeft {
			rootX2 = hasher.Hash2(w.SiblingsX2[i].Value, rootX2)
		} else {
			rootX2 = hasher.Hash2(rootX2, w.SiblingsX2[i].Value)
		}
	}

	return rootX1
}

// Bytes encodes the witness as 67*L bytes: the L siblings for path 1, then
// the L siblings for path 2, then L one-byte convergence flags (spec §6.4).
func (w DoubleMerkleWitness) Bytes() []byte {
	l := len(w.SiblingsX1)
	buf := make([]byte, 67*l)

	for i, s := range w.SiblingsX1 {
		off := i * siblingBytes
		v := s.Value.Bytes32()
		copy(buf[off:off+32], v[:])
		if s.IsLeft {
			buf[off+32] = 1
		}
	}
	for i, s := range w.SiblingsX2 {
		off := l*siblingBytes + i*siblingBytes
		v := s.Value.Bytes32()
		copy(buf[off:off+32], v[:])
		if s.IsLeft {
			buf[off+32] = 1
		}
	}
	for i, at := range w.SiblingsAt {
		off := 2*l*siblingBytes + i
		if at {
			buf[off] = 1
		}
	}

	return buf
}

// siblingIndex returns the index of the node that sits beside index at the
// same tree level (spec §4.4: "sibling index is i^1 at that level").
func siblingIndex(index uint64) uint64 {
	if index%2 == 0 {
		return index + 1
	}
	return index - 1
}
