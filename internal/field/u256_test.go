package field

import "testing"

func TestU256RoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 42, 1 << 40}
	for _, v := range cases {
		u := U256FromUint64(v)
		b := u.Bytes32()
		got := U256FromBytes32(b[:])
		if !got.Eq(u) {
			t.Fatalf("round trip mismatch for %d", v)
		}
		back, ok := got.Uint64()
		if !ok || back != v {
			t.Fatalf("Uint64() = (%d,%v), want (%d,true)", back, ok, v)
		}
	}
}

func TestU256ZeroExtend(t *testing.T) {
	u := U256FromUint64(150)
	b := u.Bytes32()
	for i := 8; i < Size; i++ {
		if b[i] != 0 {
			t.Fatalf("expected zero-extension, byte %d = %d", i, b[i])
		}
	}
	// Little-endian: low byte first.
	if b[0] != 150 {
		t.Fatalf("b[0] = %d, want 150", b[0])
	}
}

func TestU256OverflowOnUint64(t *testing.T) {
	big := U256FromUint64(1).Mul(U256FromUint64(1 << 63)).Mul(U256FromUint64(4))
	if _, err := big.MustUint64(); err != ErrOverflow {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
}

func TestMulDiv(t *testing.T) {
	// points = 100, delta_base = 30, base = 300 -> new_points = 100*30/300 = 10
	points := U256FromUint64(100)
	deltaBase := U256FromUint64(30)
	base := U256FromUint64(300)

	got, ok := points.MulDiv(deltaBase, base)
	if !ok {
		t.Fatalf("MulDiv reported not ok")
	}
	want := U256FromUint64(10)
	if !got.Eq(want) {
		t.Fatalf("MulDiv = %s, want %s", got, want)
	}
}

func TestMulDivCeil(t *testing.T) {
	// 7*3/2 = 10.5 -> ceil = 11
	got, ok := U256FromUint64(7).MulDivCeil(U256FromUint64(3), U256FromUint64(2))
	if !ok {
		t.Fatalf("MulDivCeil reported not ok")
	}
	if want := U256FromUint64(11); !got.Eq(want) {
		t.Fatalf("MulDivCeil = %s, want %s", got, want)
	}
}

func TestMulDivByZero(t *testing.T) {
	if _, ok := U256FromUint64(5).MulDiv(U256FromUint64(1), U256FromUint64(0)); ok {
		t.Fatalf("expected division by zero to report not ok")
	}
}

func TestCmpLtGt(t *testing.T) {
	a := U256FromUint64(5)
	b := U256FromUint64(10)
	if !a.Lt(b) || a.Gt(b) {
		t.Fatalf("a should be < b")
	}
	if a.Cmp(b) >= 0 {
		t.Fatalf("Cmp(a,b) should be negative")
	}
}
