package domain

import "fmt"

const (
	// SignatureSize is the on-disk/wire length of a Signature (spec §3).
	SignatureSize = 96
	signaturePrefix = "7mX"
)

// Signature is the 96-byte ASCII base58check encoding of a Schnorr
// signature, always beginning with "7mX" (spec §3). Verification against
// a list of fields and a public key is an external capability (spec §1
// Non-goals: "signature verifier... specified only via interface"); see
// Verifier in verify.go.
type Signature [SignatureSize]byte

// IsValidSignatureString reports whether s has the shape of a valid
// Signature: 96 bytes, "7mX" prefix, and every remaining byte in the
// base58 alphabet (grounded on data-structures/src/signature.rs's
// is_valid).
func IsValidSignatureString(s string) bool {
	if len(s) != SignatureSize {
		return false
	}
	if s[0:3] != signaturePrefix {
		return false
	}
	return isBase58Alphabet(s)
}

// ParseSignature validates and converts an ASCII signature string to a
// Signature.
func ParseSignature(s string) (Signature, error) {
	if !IsValidSignatureString(s) {
		return Signature{}, fmt.Errorf("domain: invalid signature %q", s)
	}
	var sig Signature
	copy(sig[:], s)
	return sig, nil
}

// SignatureFromBytes interprets a raw 96-byte slice as a Signature without
// re-validating the alphabet.
func SignatureFromBytes(b []byte) Signature {
	var sig Signature
	copy(sig[:], b)
	return sig
}

// Bytes returns the raw 96-byte encoding.
func (s Signature) Bytes() []byte { return s[:] }

// String renders the signature as its ASCII form.
func (s Signature) String() string { return string(s[:]) }
