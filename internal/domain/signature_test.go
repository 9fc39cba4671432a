package domain

import "testing"

func TestSignatureIsValid(t *testing.T) {
	valid := "7mXM6pRXQCpjaqFuJ2omcZgvHwc6LybAqQwV92RfTecqcnSuPCspXehtawpCJjrBJMnRW2jxLd7zzqqckTUp9vzjrvCH2ghW"
	if !IsValidSignatureString(valid) {
		t.Fatalf("expected %q to be valid", valid)
	}

	wrongPrefix := "7mcM6pRXQCpjaqFuJ2omcZgvHwc6LybAqQwV92RfTecqcnSuPCspXehtawpCJjrBJMnRW2jxLd7zzqqckTUp9vzjrvCH2ghW"
	if IsValidSignatureString(wrongPrefix) {
		t.Fatalf("expected wrong-prefix signature to be invalid")
	}

	wrongLength := "7mXM6pRXQCpjaqFuJ2omcZgvHwc6LybAqQwV92IfTepCJjrBJMnRW2jxBJMnRW2jxLd7zzqqckTUp9vzjrvCH2ghW"
	if IsValidSignatureString(wrongLength) {
		t.Fatalf("expected wrong-length signature to be invalid")
	}
}

func TestParseSignatureRoundTrip(t *testing.T) {
	s := "7mXM6pRXQCpjaqFuJ2omcZgvHwc6LybAqQwV92RfTecqcnSuPCspXehtawpCJjrBJMnRW2jxLd7zzqqckTUp9vzjrvCH2ghW"
	sig, err := ParseSignature(s)
	if err != nil {
		t.Fatalf("ParseSignature: %v", err)
	}
	if sig.String() != s {
		t.Fatalf("roundtrip = %q, want %q", sig.String(), s)
	}
}
