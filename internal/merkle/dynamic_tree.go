package merkle

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/zkamm/rollup/internal/field"
	"github.com/zkamm/rollup/internal/rolluperr"
)

// DynamicMerkleTree is an on-disk Merkle tree optimized for low disk usage
// and quick append/update access: one file per level, growing only as
// leaves are pushed, with any not-yet-written sibling treated as an
// implicit precomputed zero hash (spec §4.4). Height is a runtime
// parameter rather than a type parameter; every level operates on raw
// 32-byte field encodings.
type DynamicMerkleTree struct {
	height int
	files  []*os.File
	zeroes []field.Field
	hasher field.Hasher
}

// OpenDynamicMerkleTree opens (creating if absent) a DynamicMerkleTree of
// the given height under dir, with one file per level named "0".."height-1".
func OpenDynamicMerkleTree(dir string, height int, hasher field.Hasher) (*DynamicMerkleTree, error) {
	if height < 2 {
		return nil, fmt.Errorf("merkle: height must be >= 2, got %d", height)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("merkle: mkdir %s: %w: %w", dir, rolluperr.ErrIO, err)
	}

	files := make([]*os.File, height)
	for h := 0; h < height; h++ {
		f, err := os.OpenFile(filepath.Join(dir, strconv.Itoa(h)), os.O_RDWR|os.O_CREATE, 0o644)
		if err != nil {
			return nil, fmt.Errorf("merkle: open level %d: %w: %w", h, rolluperr.ErrIO, err)
		}
		files[h] = f
	}

	zeroes := make([]field.Field, height)
	zeroes[0] = field.FieldZero
	for i := 1; i < height; i++ {
		zeroes[i] = hasher.Hash2(zeroes[i-1], zeroes[i-1])
	}

	return &DynamicMerkleTree{height: height, files: files, zeroes: zeroes, hasher: hasher}, nil
}

// Height returns the tree's configured height H.
func (t *DynamicMerkleTree) Height() int { return t.height }

// maxNumberOfLeaves is 2^(H-1).
func (t *DynamicMerkleTree) maxNumberOfLeaves() uint64 { return uint64(1) << uint(t.height-1) }

// maxIndex is maxNumberOfLeaves - 1.
func (t *DynamicMerkleTree) maxIndex() uint64 { return t.maxNumberOfLeaves() - 1 }

func fileLen(f *os.File) (uint64, error) {
	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("merkle: stat: %w: %w", rolluperr.ErrIO, err)
	}
	return uint64(info.Size()), nil
}

func readField(f *os.File, padding uint64) (field.Field, error) {
	var buf [32]byte
	if _, err := f.ReadAt(buf[:], int64(padding)); err != nil {
		return field.Field{}, fmt.Errorf("merkle: read: %w: %w", rolluperr.ErrIO, err)
	}
	return field.FieldFromBytes32(buf[:]), nil
}

func writeField(f *os.File, padding uint64, v field.Field) error {
	b := v.Bytes32()
	if _, err := f.WriteAt(b[:], int64(padding)); err != nil {
		return fmt.Errorf("merkle: write: %w: %w", rolluperr.ErrIO, err)
	}
	return f.Sync()
}

// GetLeaf returns the value at index, or the zero field if index has never
// been set. Fails with ErrIndexDoesntExist for index >= 2^(H-1).
func (t *DynamicMerkleTree) GetLeaf(index uint64) (field.Field, error) {
	if index >= t.maxNumberOfLeaves() {
		return field.Field{}, rolluperr.ErrIndexDoesntExist
	}

	leavesFile := t.files[0]
	length, err := fileLen(leavesFile)
	if err != nil {
		return field.Field{}, err
	}
	padding := index * 32
	if length <= padding {
		return field.FieldZero, nil
	}
	return readField(leavesFile, padding)
}

// SetLeaf writes value at index and recomputes every ancestor up to the
// root. index must be the next contiguous slot or an already-used one;
// otherwise UnusableIndex (spec §4.4, §8 property 3).
func (t *DynamicMerkleTree) SetLeaf(index uint64, value field.Field) error {
	if index > t.maxIndex() {
		return rolluperr.ErrIndexDoesntExist
	}

	leavesLen, err := fileLen(t.files[0])
	if err != nil {
		return err
	}
	padding := index * 32
	if padding > leavesLen {
		return rolluperr.ErrUnusableIndex
	}

	currentValue := value
	currentPadding := padding

	for j := 0; j < t.height-1; j++ {
		currentFile := t.files[j]

		parentIndex := index >> uint(j+1)
		t0 := index >> uint(j)
		sIdx := siblingIndex(t0)
		siblingPadding := sIdx * 32
		siblingIsLeft := sIdx%2 == 0

		fLen, err := fileLen(currentFile)
		if err != nil {
			return err
		}

		var siblingValue field.Field
		if fLen == 0 || siblingPadding > fLen-32 {
			siblingValue = t.zeroes[j]
		} else {
			siblingValue, err = readField(currentFile, siblingPadding)
			if err != nil {
				return err
			}
		}

		var left, right field.Field
		if siblingIsLeft {
			left, right = siblingValue, currentValue
		} else {
			left, right = currentValue, siblingValue
		}
		parentValue := t.hasher.Hash2(left, right)

		if err := writeField(currentFile, currentPadding, currentValue); err != nil {
			return err
		}

		nextFile := t.files[j+1]
		nextPadding := parentIndex * 32
		if err := writeField(nextFile, nextPadding, parentValue); err != nil {
			return err
		}

		currentValue = parentValue
		currentPadding = nextPadding
	}

	return nil
}

// PushLeaf sets the first unused leaf to value and returns its index.
func (t *DynamicMerkleTree) PushLeaf(value field.Field) (uint64, error) {
	length, err := fileLen(t.files[0])
	if err != nil {
		return 0, err
	}
	index := length / 32
	if err := t.SetLeaf(index, value); err != nil {
		return 0, err
	}
	return index, nil
}

// GetSingleWitness returns the sibling path from index to the root.
func (t *DynamicMerkleTree) GetSingleWitness(index uint64) (SingleMerkleWitness, error) {
	if index > t.maxIndex() {
		return SingleMerkleWitness{}, rolluperr.ErrIndexDoesntExist
	}

	l := t.height - 1
	siblings := make([]Sibling, l)
	idx := index

	for i := 0; i < l; i++ {
		f := t.files[i]
		fLen, err := fileLen(f)
		if err != nil {
			return SingleMerkleWitness{}, err
		}

		sIdx := siblingIndex(idx)
		padding := sIdx * 32

		var sib field.Field
		if fLen == 0 || padding > fLen-32 {
			sib = t.zeroes[i]
		} else {
			sib, err = readField(f, padding)
			if err != nil {
				return SingleMerkleWitness{}, err
			}
		}

		siblings[i] = Sibling{Value: sib, IsLeft: sIdx%2 == 0}
		idx /= 2
	}

	return SingleMerkleWitness{Siblings: siblings}, nil
}

// GetDoubleWitness returns the sibling paths from indexX1 and indexX2 to
// the root, plus the level at which the two paths converge.
func (t *DynamicMerkleTree) GetDoubleWitness(indexX1, indexX2 uint64) (DoubleMerkleWitness, error) {
	if indexX1 > t.maxIndex() || indexX2 > t.maxIndex() {
		return DoubleMerkleWitness{}, rolluperr.ErrIndexDoesntExist
	}

	l := t.height - 1
	siblingsX1 := make([]Sibling, l)
	siblingsX2 := make([]Sibling, l)
	siblingsAt := make([]bool, l)
	found := false

	x1, x2 := indexX1, indexX2

	for i := 0; i < l; i++ {
		f := t.files[i]
		fLen, err := fileLen(f)
		if err != nil {
			return DoubleMerkleWitness{}, err
		}

		sIdxX1 := siblingIndex(x1)
		sIdxX2 := siblingIndex(x2)

		if sIdxX1 == x2 && !found {
			found = true
			siblingsAt[i] = true
		}

		paddingX1 := sIdxX1 * 32
		paddingX2 := sIdxX2 * 32

		var subX1, subX2 field.Field
		if fLen == 0 || paddingX1 > fLen-32 {
			subX1 = t.zeroes[i]
		} else {
			subX1, err = readField(f, paddingX1)
			if err != nil {
				return DoubleMerkleWitness{}, err
			}
		}
		if fLen == 0 || paddingX2 > fLen-32 {
			subX2 = t.zeroes[i]
		} else {
			subX2, err = readField(f, paddingX2)
			if err != nil {
				return DoubleMerkleWitness{}, err
			}
		}

		siblingsX1[i] = Sibling{Value: subX1, IsLeft: sIdxX1%2 == 0}
		siblingsX2[i] = Sibling{Value: subX2, IsLeft: sIdxX2%2 == 0}

		x1 /= 2
		x2 /= 2
	}

	return DoubleMerkleWitness{SiblingsX1: siblingsX1, SiblingsX2: siblingsX2, SiblingsAt: siblingsAt}, nil
}

// GetUnusedSingleWitness returns the witness of the first unused leaf.
func (t *DynamicMerkleTree) GetUnusedSingleWitness() (SingleMerkleWitness, error) {
	length, err := fileLen(t.files[0])
	if err != nil {
		return SingleMerkleWitness{}, err
	}
	return t.GetSingleWitness(length / 32)
}

// GetRoot returns the current root hash.
func (t *DynamicMerkleTree) GetRoot() (field.Field, error) {
	leavesLen, err := fileLen(t.files[0])
	if err != nil {
		return field.Field{}, err
	}
	if leavesLen == 0 {
		return t.zeroes[t.height-1], nil
	}
	return readField(t.files[t.height-1], 0)
}

// Close releases every level's file handle.
func (t *DynamicMerkleTree) Close() error {
	var firstErr error
	for _, f := range t.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
