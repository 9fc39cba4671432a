package field

import "testing"

func TestHash2Deterministic(t *testing.T) {
	h := DefaultHasher()
	a := FieldFromU256(U256FromUint64(1))
	b := FieldFromU256(U256FromUint64(2))

	r1 := h.Hash2(a, b)
	r2 := h.Hash2(a, b)
	if !r1.Eq(r2) {
		t.Fatalf("Hash2 is not deterministic")
	}
}

func TestHash2NotCommutative(t *testing.T) {
	h := DefaultHasher()
	a := FieldFromU256(U256FromUint64(1))
	b := FieldFromU256(U256FromUint64(2))

	if h.Hash2(a, b).Eq(h.Hash2(b, a)) {
		t.Fatalf("Hash2(a,b) should differ from Hash2(b,a)")
	}
}

func TestEmptyTreeZeroesCascadeIsStable(t *testing.T) {
	// Spec §8 property 5: the zero-hash cascade used to fill an empty tree
	// must be a pure function of height, so two independently-built empty
	// trees with the same Hasher always agree on the root (the tree-level
	// test lives in internal/merkle; this checks the underlying primitive
	// it is built on is itself stable).
	h := DefaultHasher()
	zero := FieldZero
	level1a := h.Hash2(zero, zero)
	level1b := h.Hash2(zero, zero)
	if !level1a.Eq(level1b) {
		t.Fatalf("zero cascade is not stable across calls")
	}
	level2 := h.Hash2(level1a, level1a)
	if level2.Eq(level1a) {
		t.Fatalf("successive cascade levels should differ")
	}
}

func TestHashFieldsEmpty(t *testing.T) {
	h := DefaultHasher()
	if got := h.HashFields(nil); !got.Eq(FieldZero) {
		t.Fatalf("HashFields(nil) = %v, want FieldZero", got)
	}
}

func TestHashFieldsFold(t *testing.T) {
	h := DefaultHasher()
	f0 := FieldFromU256(U256FromUint64(10))
	f1 := FieldFromU256(U256FromUint64(20))
	f2 := FieldFromU256(U256FromUint64(30))

	got := h.HashFields([]Field{f0, f1, f2})
	want := h.Hash2(h.Hash2(f0, f1), f2)
	if !got.Eq(want) {
		t.Fatalf("HashFields did not left-fold as expected")
	}
}
