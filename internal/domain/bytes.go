package domain

import "encoding/binary"

func putU64LE(dst []byte, v uint64) { binary.LittleEndian.PutUint64(dst, v) }

func getU64LE(src []byte) uint64 { return binary.LittleEndian.Uint64(src) }
