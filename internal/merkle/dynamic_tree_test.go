package merkle

import (
	"path/filepath"
	"testing"

	"github.com/zkamm/rollup/internal/field"
)

func f(n uint64) field.Field {
	return field.FieldFromU256(field.U256FromUint64(n))
}

func mustOpenDynamicTree(t *testing.T, height int) *DynamicMerkleTree {
	t.Helper()
	tr, err := OpenDynamicMerkleTree(filepath.Join(t.TempDir(), "dmt"), height, field.DefaultHasher())
	if err != nil {
		t.Fatalf("OpenDynamicMerkleTree: %v", err)
	}
	t.Cleanup(func() { tr.Close() })
	return tr
}

func TestDynamicTreeEmptyLeafIsZero(t *testing.T) {
	tr := mustOpenDynamicTree(t, 5)
	v, err := tr.GetLeaf(0)
	if err != nil {
		t.Fatalf("GetLeaf: %v", err)
	}
	if !v.Eq(field.FieldZero) {
		t.Fatalf("GetLeaf(0) on empty tree = %v, want zero", v)
	}
}

func TestDynamicTreeSetAndGetLeaves(t *testing.T) {
	tr := mustOpenDynamicTree(t, 5)

	if err := tr.SetLeaf(0, f(42)); err != nil {
		t.Fatalf("SetLeaf(0): %v", err)
	}
	got, err := tr.GetLeaf(0)
	if err != nil || !got.Eq(f(42)) {
		t.Fatalf("GetLeaf(0) = %v, err=%v, want 42", got, err)
	}

	if err := tr.SetLeaf(0, f(7)); err != nil {
		t.Fatalf("SetLeaf(0) overwrite: %v", err)
	}
	got, err = tr.GetLeaf(0)
	if err != nil || !got.Eq(f(7)) {
		t.Fatalf("GetLeaf(0) after overwrite = %v, err=%v, want 7", got, err)
	}

	if err := tr.SetLeaf(1, f(5)); err != nil {
		t.Fatalf("SetLeaf(1): %v", err)
	}
	got, err = tr.GetLeaf(1)
	if err != nil || !got.Eq(f(5)) {
		t.Fatalf("GetLeaf(1) = %v, err=%v, want 5", got, err)
	}
}

func TestDynamicTreePushLeaf(t *testing.T) {
	tr := mustOpenDynamicTree(t, 4)

	idx, err := tr.PushLeaf(f(42))
	if err != nil || idx != 0 {
		t.Fatalf("PushLeaf first = idx %d, err %v, want 0,nil", idx, err)
	}
	idx, err = tr.PushLeaf(f(5))
	if err != nil || idx != 1 {
		t.Fatalf("PushLeaf second = idx %d, err %v, want 1,nil", idx, err)
	}
}

func TestDynamicTreeRootChangesOnSet(t *testing.T) {
	tr := mustOpenDynamicTree(t, 6)

	emptyRoot, err := tr.GetRoot()
	if err != nil {
		t.Fatalf("GetRoot: %v", err)
	}

	if err := tr.SetLeaf(0, f(42)); err != nil {
		t.Fatalf("SetLeaf: %v", err)
	}
	root1, err := tr.GetRoot()
	if err != nil {
		t.Fatalf("GetRoot: %v", err)
	}
	if root1.Eq(emptyRoot) {
		t.Fatalf("root did not change after SetLeaf")
	}

	if err := tr.SetLeaf(0, f(41)); err != nil {
		t.Fatalf("SetLeaf: %v", err)
	}
	root2, err := tr.GetRoot()
	if err != nil {
		t.Fatalf("GetRoot: %v", err)
	}
	if root2.Eq(root1) {
		t.Fatalf("root did not change after second SetLeaf")
	}
}

func TestDynamicTreeUnusableIndex(t *testing.T) {
	tr := mustOpenDynamicTree(t, 42)

	err := tr.SetLeaf(1, f(42))
	if err == nil {
		t.Fatalf("SetLeaf(1) on empty tree should fail, leaf 0 unset")
	}
}

func TestDynamicTreeIndexDoesntExist(t *testing.T) {
	tr := mustOpenDynamicTree(t, 42)

	nonExistent := uint64(1) << 41
	err := tr.SetLeaf(nonExistent, f(42))
	if err == nil {
		t.Fatalf("SetLeaf(2^41) should fail with IndexDoesntExist")
	}
}

func TestDynamicTreeWitnessDeterminism(t *testing.T) {
	// Spec §8 property S5: leaf 0 set to 42, witness of leaf 1's sibling 0
	// equals 42 and is_left == true.
	tr := mustOpenDynamicTree(t, 5)
	if err := tr.SetLeaf(0, f(42)); err != nil {
		t.Fatalf("SetLeaf: %v", err)
	}

	w, err := tr.GetSingleWitness(1)
	if err != nil {
		t.Fatalf("GetSingleWitness(1): %v", err)
	}
	if !w.Siblings[0].Value.Eq(f(42)) {
		t.Fatalf("siblings[0].value = %v, want 42", w.Siblings[0].Value)
	}
	if !w.Siblings[0].IsLeft {
		t.Fatalf("siblings[0].is_left = false, want true")
	}
}

func TestDynamicTreeWitnessSoundness(t *testing.T) {
	// Spec §8 property 4: witness.CalculateRoot(leaf(i)) == GetRoot().
	tr := mustOpenDynamicTree(t, 6)
	for i, v := range []uint64{42, 5, 19, 7} {
		if err := tr.SetLeaf(uint64(i), f(v)); err != nil {
			t.Fatalf("SetLeaf(%d): %v", i, err)
		}
	}

	root, err := tr.GetRoot()
	if err != nil {
		t.Fatalf("GetRoot: %v", err)
	}

	for i := uint64(0); i < 4; i++ {
		leaf, err := tr.GetLeaf(i)
		if err != nil {
			t.Fatalf("GetLeaf(%d): %v", i, err)
		}
		w, err := tr.GetSingleWitness(i)
		if err != nil {
			t.Fatalf("GetSingleWitness(%d): %v", i, err)
		}
		recomputed := w.CalculateRoot(field.DefaultHasher(), leaf)
		if !recomputed.Eq(root) {
			t.Fatalf("witness for leaf %d did not recompute root: got %v want %v", i, recomputed, root)
		}
	}
}

func TestDynamicTreeDoubleWitnessSoundness(t *testing.T) {
	tr := mustOpenDynamicTree(t, 5)
	if err := tr.SetLeaf(0, f(42)); err != nil {
		t.Fatalf("SetLeaf: %v", err)
	}

	w, err := tr.GetDoubleWitness(0, 1)
	if err != nil {
		t.Fatalf("GetDoubleWitness: %v", err)
	}

	wantAt := []bool{true, false, false, false}
	for i, want := range wantAt {
		if w.SiblingsAt[i] != want {
			t.Fatalf("siblings_at[%d] = %v, want %v", i, w.SiblingsAt[i], want)
		}
	}

	leaf0, _ := tr.GetLeaf(0)
	leaf1, _ := tr.GetLeaf(1)
	root, err := tr.GetRoot()
	if err != nil {
		t.Fatalf("GetRoot: %v", err)
	}
	if recomputed := w.CalculateRoot(field.DefaultHasher(), leaf0, leaf1); !recomputed.Eq(root) {
		t.Fatalf("double witness did not recompute root: got %v want %v", recomputed, root)
	}
}

func TestDynamicTreeGetUnusedSingleWitness(t *testing.T) {
	tr := mustOpenDynamicTree(t, 5)
	if err := tr.SetLeaf(0, f(1)); err != nil {
		t.Fatalf("SetLeaf: %v", err)
	}
	w, err := tr.GetUnusedSingleWitness()
	if err != nil {
		t.Fatalf("GetUnusedSingleWitness: %v", err)
	}
	if len(w.Siblings) != 4 {
		t.Fatalf("len(siblings) = %d, want 4", len(w.Siblings))
	}
}
