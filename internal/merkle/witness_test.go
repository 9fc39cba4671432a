package merkle

import (
	"testing"

	"github.com/zkamm/rollup/internal/field"
)

func TestSingleWitnessBytesLength(t *testing.T) {
	w := SingleMerkleWitness{Siblings: make([]Sibling, 18)}
	if got := len(w.Bytes()); got != 33*18 {
		t.Fatalf("Bytes() length = %d, want %d", got, 33*18)
	}
}

func TestSingleWitnessBytesLayout(t *testing.T) {
	w := SingleMerkleWitness{Siblings: []Sibling{
		{Value: f(7), IsLeft: true},
		{Value: f(0), IsLeft: false},
	}}
	b := w.Bytes()
	if b[32] != 1 {
		t.Fatalf("is_left byte for sibling 0 = %d, want 1", b[32])
	}
	if b[65] != 0 {
		t.Fatalf("is_left byte for sibling 1 = %d, want 0", b[65])
	}
}

func TestDoubleWitnessBytesLength(t *testing.T) {
	w := DoubleMerkleWitness{
		SiblingsX1: make([]Sibling, 18),
		SiblingsX2: make([]Sibling, 18),
		SiblingsAt: make([]bool, 18),
	}
	if got := len(w.Bytes()); got != 67*18 {
		t.Fatalf("Bytes() length = %d, want %d", got, 67*18)
	}
}

func TestDoubleWitnessBytesLayout(t *testing.T) {
	l := 3
	w := DoubleMerkleWitness{
		SiblingsX1: make([]Sibling, l),
		SiblingsX2: make([]Sibling, l),
		SiblingsAt: []bool{false, true, false},
	}
	b := w.Bytes()
	flagsOffset := 2 * l * siblingBytes
	if b[flagsOffset] != 0 || b[flagsOffset+1] != 1 || b[flagsOffset+2] != 0 {
		t.Fatalf("siblings_at flags = %v, want [0,1,0]", b[flagsOffset:flagsOffset+3])
	}
}

func TestSingleWitnessCalculateRootOrderMatters(t *testing.T) {
	h := field.DefaultHasher()
	value := f(0)
	sibling := f(1)

	leftWitness := SingleMerkleWitness{Siblings: []Sibling{{Value: sibling, IsLeft: true}}}
	rightWitness := SingleMerkleWitness{Siblings: []Sibling{{Value: sibling, IsLeft: false}}}

	rootLeft := leftWitness.CalculateRoot(h, value)
	rootRight := rightWitness.CalculateRoot(h, value)

	if rootLeft.Eq(rootRight) {
		t.Fatalf("is_left=true and is_left=false should produce different roots")
	}
	if !rootLeft.Eq(h.Hash2(sibling, value)) {
		t.Fatalf("is_left=true should hash (sibling, value)")
	}
	if !rootRight.Eq(h.Hash2(value, sibling)) {
		t.Fatalf("is_left=false should hash (value, sibling)")
	}
}

func TestSiblingIndex(t *testing.T) {
	cases := []struct{ in, want uint64 }{
		{0, 1}, {1, 0}, {2, 3}, {3, 2}, {100, 101}, {101, 100},
	}
	for _, c := range cases {
		if got := siblingIndex(c.in); got != c.want {
			t.Fatalf("siblingIndex(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}
