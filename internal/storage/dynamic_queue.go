package storage

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/zkamm/rollup/internal/rolluperr"
)

// pointerSize is the width of the queue's head-pointer prefix (spec §4.3,
// §6.1: "bytes [0..8) hold the head offset P").
const pointerSize = 8

// compactionItemCount is the number of items past the pointer prefix at
// which Pop triggers the garbage collector (spec §4.3: "if the new P
// equals 8 + 128*L, run the compactor").
const compactionItemCount = 128

// DynamicQueue is an on-disk FIFO of fixed-size items with an 8-byte head
// pointer prefix and a compacting garbage collector (spec §4.3). It is
// crash-stop, not crash-recoverable: a torn write to the pointer is an
// operational concern outside this module's contract (spec §9 open
// question 1).
type DynamicQueue struct {
	f        *os.File
	itemSize int
}

// OpenDynamicQueue opens (creating if absent) a DynamicQueue of the given
// item size at path.
func OpenDynamicQueue(path string, itemSize int) (*DynamicQueue, error) {
	f, err := openWithParent(path)
	if err != nil {
		return nil, err
	}
	return &DynamicQueue{f: f, itemSize: itemSize}, nil
}

// ItemSize returns the fixed item length, in bytes.
func (q *DynamicQueue) ItemSize() int { return q.itemSize }

func (q *DynamicQueue) fileLen() (uint64, error) {
	info, err := q.f.Stat()
	if err != nil {
		return 0, fmt.Errorf("storage: stat: %w: %w", rolluperr.ErrIO, err)
	}
	return uint64(info.Size()), nil
}

func (q *DynamicQueue) initPointer() error {
	var buf [pointerSize]byte
	binary.LittleEndian.PutUint64(buf[:], pointerSize)
	if _, err := q.f.WriteAt(buf[:], 0); err != nil {
		return fmt.Errorf("storage: write pointer: %w: %w", rolluperr.ErrIO, err)
	}
	return q.f.Sync()
}

func (q *DynamicQueue) getPointer() (uint64, error) {
	var buf [pointerSize]byte
	if _, err := q.f.ReadAt(buf[:], 0); err != nil {
		return 0, fmt.Errorf("storage: read pointer: %w: %w", rolluperr.ErrIO, err)
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func (q *DynamicQueue) setPointer(p uint64) error {
	var buf [pointerSize]byte
	binary.LittleEndian.PutUint64(buf[:], p)
	if _, err := q.f.WriteAt(buf[:], 0); err != nil {
		return fmt.Errorf("storage: write pointer: %w: %w", rolluperr.ErrIO, err)
	}
	return q.f.Sync()
}

// Push appends item (which must be exactly ItemSize() bytes) to the end of
// the queue.
func (q *DynamicQueue) Push(item []byte) error {
	if len(item) != q.itemSize {
		return fmt.Errorf("storage: push: %w: item size mismatch", rolluperr.ErrInfallible)
	}
	fileLen, err := q.fileLen()
	if err != nil {
		return err
	}
	if fileLen == 0 {
		if err := q.initPointer(); err != nil {
			return err
		}
		fileLen = pointerSize
	}
	if _, err := q.f.WriteAt(item, int64(fileLen)); err != nil {
		return fmt.Errorf("storage: write: %w: %w", rolluperr.ErrIO, err)
	}
	return q.f.Sync()
}

// Pop removes and returns the oldest item, or (nil, false, nil) if the
// queue is empty. Every 128 pops it runs the compacting garbage collector
// (spec §4.3).
func (q *DynamicQueue) Pop() ([]byte, bool, error) {
	fileLen, err := q.fileLen()
	if err != nil {
		return nil, false, err
	}
	if fileLen == 0 {
		if err := q.initPointer(); err != nil {
			return nil, false, err
		}
		fileLen = pointerSize
	}

	pointer, err := q.getPointer()
	if err != nil {
		return nil, false, err
	}

	item, ok, err := q.readOldestItem(fileLen, pointer)
	if err != nil {
		return nil, false, err
	}

	newPointer := pointer
	if ok {
		newPointer = pointer + uint64(q.itemSize)
		if err := q.setPointer(newPointer); err != nil {
			return nil, false, err
		}
	}

	if newPointer == pointerSize+compactionItemCount*uint64(q.itemSize) {
		if err := q.runGarbageCollector(fileLen, newPointer); err != nil {
			return nil, false, err
		}
	}

	return item, ok, nil
}

func (q *DynamicQueue) readOldestItem(fileLen, pointer uint64) ([]byte, bool, error) {
	if fileLen < pointer+uint64(q.itemSize) {
		return nil, false, nil
	}
	buf := make([]byte, q.itemSize)
	if _, err := q.f.ReadAt(buf, int64(pointer)); err != nil {
		return nil, false, fmt.Errorf("storage: read: %w: %w", rolluperr.ErrIO, err)
	}
	return buf, true, nil
}

// runGarbageCollector rewrites the live suffix (from pointer to fileLen)
// down to the start of the item region, in bounded-memory chunks, then
// resets the pointer and truncates the file. Chunk sizing exactly follows
// the reference implementation: up to 127 live items copied in one shot,
// 128-1023 items copied in 128-item chunks, 1024+ items copied in
// 1024-item chunks (spec §4.3).
func (q *DynamicQueue) runGarbageCollector(fileLen, pointer uint64) error {
	contentSize := fileLen - pointer
	newFileLen := contentSize + pointerSize
	itemsCount := contentSize / uint64(q.itemSize)

	var chunkItemCount, chunkCount, remainingCount uint64
	switch {
	case itemsCount <= 127:
		chunkItemCount, chunkCount, remainingCount = 0, 0, itemsCount
	case itemsCount <= 1023:
		chunkItemCount, chunkCount, remainingCount = 128, itemsCount/128, itemsCount%128
	default:
		chunkItemCount, chunkCount, remainingCount = 1024, itemsCount/1024, itemsCount%1024
	}

	itemSize := uint64(q.itemSize)
	for i := uint64(0); i < chunkCount; i++ {
		padding := itemSize * i * chunkItemCount
		buf := make([]byte, itemSize*chunkItemCount)
		if _, err := q.f.ReadAt(buf, int64(pointer+padding)); err != nil {
			return fmt.Errorf("storage: gc read: %w: %w", rolluperr.ErrIO, err)
		}
		if _, err := q.f.WriteAt(buf, int64(pointerSize+padding)); err != nil {
			return fmt.Errorf("storage: gc write: %w: %w", rolluperr.ErrIO, err)
		}
	}

	if remainingCount != 0 {
		padding := itemSize * chunkCount * chunkItemCount
		buf := make([]byte, itemSize*remainingCount)
		if _, err := q.f.ReadAt(buf, int64(pointer+padding)); err != nil {
			return fmt.Errorf("storage: gc read: %w: %w", rolluperr.ErrIO, err)
		}
		if _, err := q.f.WriteAt(buf, int64(pointerSize+padding)); err != nil {
			return fmt.Errorf("storage: gc write: %w: %w", rolluperr.ErrIO, err)
		}
	}

	if err := q.f.Sync(); err != nil {
		return fmt.Errorf("storage: gc sync: %w: %w", rolluperr.ErrIO, err)
	}
	if err := q.initPointer(); err != nil {
		return err
	}
	if err := q.f.Truncate(int64(newFileLen)); err != nil {
		return fmt.Errorf("storage: gc truncate: %w: %w", rolluperr.ErrIO, err)
	}
	return nil
}

// Depth returns the number of items currently queued, derived from the
// file length and head pointer rather than tracked separately.
func (q *DynamicQueue) Depth() (uint64, error) {
	fileLen, err := q.fileLen()
	if err != nil {
		return 0, err
	}
	if fileLen == 0 {
		return 0, nil
	}
	pointer, err := q.getPointer()
	if err != nil {
		return 0, err
	}
	if fileLen <= pointer {
		return 0, nil
	}
	return (fileLen - pointer) / uint64(q.itemSize), nil
}

// Close releases the underlying file handle.
func (q *DynamicQueue) Close() error { return q.f.Close() }
