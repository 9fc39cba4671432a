package merkle

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/zkamm/rollup/internal/field"
	"github.com/zkamm/rollup/internal/rolluperr"
)

// StaticMerkleTree is a single-file, fully materialized Merkle tree laid
// out level-major (spec §4.5): level 0's 2^(H-1) leaves, then level 1, ...,
// then the single root element. Every slot exists from creation, so reads
// never need an implicit-zero fallback the way DynamicMerkleTree does.
type StaticMerkleTree struct {
	height int
	file   *os.File
	hasher field.Hasher
}

// OpenStaticMerkleTree opens (creating and zero-initializing if absent) a
// StaticMerkleTree of the given height at path.
func OpenStaticMerkleTree(path string, height int, hasher field.Hasher) (*StaticMerkleTree, error) {
	if height < 2 {
		return nil, fmt.Errorf("merkle: height must be >= 2, got %d", height)
	}

	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil, rolluperr.ErrParentDirectoryNotSpecified
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("merkle: mkdir %s: %w: %w", dir, rolluperr.ErrIO, err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("merkle: open %s: %w: %w", path, rolluperr.ErrIO, err)
	}

	t := &StaticMerkleTree{height: height, file: f, hasher: hasher}

	wantLen := t.treeSizeBytes()
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("merkle: stat: %w: %w", rolluperr.ErrIO, err)
	}
	if uint64(info.Size()) != wantLen {
		if err := t.initZeroCascade(); err != nil {
			return nil, err
		}
	}

	return t, nil
}

// treeSizeBytes is 32*(2^H - 1): every level's leaves plus the root.
func (t *StaticMerkleTree) treeSizeBytes() uint64 {
	return 32 * ((uint64(1) << uint(t.height)) - 1)
}

// maxLeafIndex is 2^(H-1) - 1.
func (t *StaticMerkleTree) maxLeafIndex() uint64 {
	return (uint64(1) << uint(t.height-1)) - 1
}

// rootPadding is 32*(2^H - 2), the byte offset of the single root element.
func (t *StaticMerkleTree) rootPadding() uint64 {
	return 32 * ((uint64(1) << uint(t.height)) - 2)
}

func (t *StaticMerkleTree) initZeroCascade() error {
	currentZero := field.FieldZero
	var padding uint64

	for i := 0; i < t.height; i++ {
		leavesCount := uint64(1) << uint(t.height-i-1)
		b := currentZero.Bytes32()

		buf := make([]byte, 32*leavesCount)
		for j := uint64(0); j < leavesCount; j++ {
			copy(buf[j*32:j*32+32], b[:])
		}

		if _, err := t.file.WriteAt(buf, int64(padding)); err != nil {
			return fmt.Errorf("merkle: write: %w: %w", rolluperr.ErrIO, err)
		}

		currentZero = t.hasher.Hash2(currentZero, currentZero)
		padding += 32 * leavesCount
	}

	return t.file.Sync()
}

// SetLeaf updates leafIndex and every ancestor up to the root, reading
// siblings directly from the file (no implicit zeros; spec §4.5).
func (t *StaticMerkleTree) SetLeaf(leafIndex uint64, value field.Field) error {
	if leafIndex > t.maxLeafIndex() {
		return rolluperr.ErrIndexDoesntExist
	}

	var cumulativePadding uint64
	currentLeafIndex := leafIndex
	currentValue := value

	for i := 0; i < t.height; i++ {
		leavesCount := uint64(1) << uint(t.height-i-1)
		currentPadding := 32 * currentLeafIndex

		if err := writeField(t.file, cumulativePadding+currentPadding, currentValue); err != nil {
			return err
		}

		if i == t.height-1 {
			break
		}

		siblingIsLeft := currentLeafIndex%2 == 1
		var siblingLeafIndex uint64
		if siblingIsLeft {
			siblingLeafIndex = currentLeafIndex - 1
		} else {
			siblingLeafIndex = currentLeafIndex + 1
		}
		siblingPadding := 32 * siblingLeafIndex

		siblingValue, err := readField(t.file, cumulativePadding+siblingPadding)
		if err != nil {
			return err
		}

		var left, right field.Field
		if siblingIsLeft {
			left, right = siblingValue, currentValue
		} else {
			left, right = currentValue, siblingValue
		}

		cumulativePadding += 32 * leavesCount
		currentLeafIndex /= 2
		currentValue = t.hasher.Hash2(left, right)
	}

	return nil
}

// GetLeaf returns the value at leafIndex.
func (t *StaticMerkleTree) GetLeaf(leafIndex uint64) (field.Field, error) {
	if leafIndex > t.maxLeafIndex() {
		return field.Field{}, rolluperr.ErrIndexDoesntExist
	}
	return readField(t.file, 32*leafIndex)
}

// GetSingleWitness returns the sibling path from leafIndex to the root.
func (t *StaticMerkleTree) GetSingleWitness(leafIndex uint64) (SingleMerkleWitness, error) {
	if leafIndex > t.maxLeafIndex() {
		return SingleMerkleWitness{}, rolluperr.ErrIndexDoesntExist
	}

	l := t.height - 1
	siblings := make([]Sibling, l)

	currentLeafIndex := leafIndex
	var cumulativePadding uint64

	for i := 0; i < l; i++ {
		leavesCount := uint64(1) << uint(t.height-i-1)

		siblingIsLeft := currentLeafIndex%2 == 1
		var siblingLeafIndex uint64
		if siblingIsLeft {
			siblingLeafIndex = currentLeafIndex - 1
		} else {
			siblingLeafIndex = currentLeafIndex + 1
		}
		siblingPadding := 32 * siblingLeafIndex

		siblingValue, err := readField(t.file, cumulativePadding+siblingPadding)
		if err != nil {
			return SingleMerkleWitness{}, err
		}

		siblings[i] = Sibling{Value: siblingValue, IsLeft: siblingIsLeft}

		currentLeafIndex /= 2
		cumulativePadding += 32 * leavesCount
	}

	return SingleMerkleWitness{Siblings: siblings}, nil
}

// GetRoot returns the tree's root hash.
func (t *StaticMerkleTree) GetRoot() (field.Field, error) {
	return readField(t.file, t.rootPadding())
}

// Close releases the underlying file handle.
func (t *StaticMerkleTree) Close() error { return t.file.Close() }
