package domain

import "github.com/zkamm/rollup/internal/field"

// Verifier is the external Schnorr-over-the-circuit-field signature
// verification capability (spec §3: "Verification consumes a list of
// fields and yields a boolean"; spec §1 Non-goals: verifier specified only
// via interface). Callers pass the message fields the transaction was
// signed over, not the raw transaction bytes.
type Verifier interface {
	Verify(sig Signature, pubkey Address, fields []field.Field) bool
}
