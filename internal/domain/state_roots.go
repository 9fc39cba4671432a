package domain

import "github.com/zkamm/rollup/internal/field"

// StateRootsSize is the on-disk/wire length of StateRoots (spec §3, §6.3:
// "bytes [1..129) always hold the four current state roots").
const StateRootsSize = 4 * field.Size

// StateRoots is the layer-2 state snapshot persisted to L1: the Merkle
// root of each of the four per-entity trees (spec §3). All four roots,
// Liquidities' included, are encoded in the 128-byte record in the order
// balances/liquidities/pools/burns.
type StateRoots struct {
	Balances    field.U256
	Liquidities field.U256
	Pools       field.U256
	Burns       field.U256
}

// ToBytes encodes r into its 128-byte on-disk/wire record (grounded on
// data-structures/src/state_roots.rs's to_bytes).
func (r StateRoots) ToBytes() [StateRootsSize]byte {
	var out [StateRootsSize]byte
	b := r.Balances.Bytes32()
	copy(out[0:32], b[:])
	l := r.Liquidities.Bytes32()
	copy(out[32:64], l[:])
	p := r.Pools.Bytes32()
	copy(out[64:96], p[:])
	bu := r.Burns.Bytes32()
	copy(out[96:128], bu[:])
	return out
}

// StateRootsFromBytes decodes a 128-byte record into StateRoots.
func StateRootsFromBytes(bytes [StateRootsSize]byte) StateRoots {
	return StateRoots{
		Balances:    field.U256FromBytes32(bytes[0:32]),
		Liquidities: field.U256FromBytes32(bytes[32:64]),
		Pools:       field.U256FromBytes32(bytes[64:96]),
		Burns:       field.U256FromBytes32(bytes[96:128]),
	}
}
