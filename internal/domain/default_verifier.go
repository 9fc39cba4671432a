package domain

import "github.com/zkamm/rollup/internal/field"

// defaultVerifier is the non-circuit-matching stand-in Verifier: it always
// accepts. Reproducing the actual Schnorr-over-the-circuit-field check is
// out of scope (spec §1 Non-goals: "signature verifier... specified only
// via interface", §9: "implementers supply... a Schnorr verifier that
// match the external prover's circuit"), so this exists for the same
// reason field.DefaultHasher does: so the executor is exercisable
// end-to-end without an external verifier subprocess configured.
type defaultVerifier struct{}

// DefaultVerifier returns the package-wide non-circuit-matching Verifier.
func DefaultVerifier() Verifier { return defaultVerifier{} }

// Verify implements Verifier by always accepting.
func (defaultVerifier) Verify(Signature, Address, []field.Field) bool { return true }
