package storage

import (
	"encoding/binary"
	"path/filepath"
	"testing"
)

func mustOpenQueue(t *testing.T, itemSize int) *DynamicQueue {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sub", "queue.bin")
	q, err := OpenDynamicQueue(path, itemSize)
	if err != nil {
		t.Fatalf("OpenDynamicQueue: %v", err)
	}
	t.Cleanup(func() { q.Close() })
	return q
}

func item4(n uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, n)
	return buf
}

func TestQueuePopEmpty(t *testing.T) {
	q := mustOpenQueue(t, 4)
	_, ok, err := q.Pop()
	if err != nil {
		t.Fatalf("Pop: %v", err)
	}
	if ok {
		t.Fatalf("Pop on empty queue returned ok=true")
	}
}

func TestQueueFIFOOrdering(t *testing.T) {
	q := mustOpenQueue(t, 4)
	for i := uint32(0); i < 10; i++ {
		if err := q.Push(item4(i)); err != nil {
			t.Fatalf("Push(%d): %v", i, err)
		}
	}
	for i := uint32(0); i < 10; i++ {
		got, ok, err := q.Pop()
		if err != nil {
			t.Fatalf("Pop: %v", err)
		}
		if !ok {
			t.Fatalf("Pop(%d): expected item, got empty", i)
		}
		if binary.LittleEndian.Uint32(got) != i {
			t.Fatalf("Pop(%d) = %d, want %d", i, binary.LittleEndian.Uint32(got), i)
		}
	}
	_, ok, err := q.Pop()
	if err != nil {
		t.Fatalf("Pop after drain: %v", err)
	}
	if ok {
		t.Fatalf("Pop after drain returned an item")
	}
}

// TestQueueCompactionAt128 matches spec §8 property S4: push 128 four-byte
// items, pop 128 -> the garbage collector runs exactly once when the 128th
// pop advances the pointer to 8+128*4, and file length is truncated down to
// exactly the 8-byte pointer prefix (no live items remain).
func TestQueueCompactionAt128(t *testing.T) {
	q := mustOpenQueue(t, 4)
	for i := uint32(0); i < 128; i++ {
		if err := q.Push(item4(i)); err != nil {
			t.Fatalf("Push(%d): %v", i, err)
		}
	}
	for i := uint32(0); i < 128; i++ {
		if _, ok, err := q.Pop(); err != nil || !ok {
			t.Fatalf("Pop(%d): ok=%v err=%v", i, ok, err)
		}
	}
	info, err := q.f.Stat()
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() != 8 {
		t.Fatalf("file length after draining 128 items = %d, want 8", info.Size())
	}
}

// TestQueueCompactionAt140 matches spec §8 property S4: push 140 items, pop
// 140. The GC fires once at the 128th pop, compacting the 12 still-unpopped
// items down to the head of the file; the remaining 12 pops only advance the
// pointer (to 8+12*4 = 56) without another GC, so the file ends at 56 bytes.
func TestQueueCompactionAt140(t *testing.T) {
	q := mustOpenQueue(t, 4)
	for i := uint32(0); i < 140; i++ {
		if err := q.Push(item4(i)); err != nil {
			t.Fatalf("Push(%d): %v", i, err)
		}
	}
	for i := uint32(0); i < 140; i++ {
		got, ok, err := q.Pop()
		if err != nil || !ok {
			t.Fatalf("Pop(%d): ok=%v err=%v", i, ok, err)
		}
		if binary.LittleEndian.Uint32(got) != i {
			t.Fatalf("Pop(%d) = %d, want %d", i, binary.LittleEndian.Uint32(got), i)
		}
	}
	info, err := q.f.Stat()
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() != 56 {
		t.Fatalf("file length after draining 140 items = %d, want 56", info.Size())
	}
}

func TestQueueInterleavedPushPop(t *testing.T) {
	q := mustOpenQueue(t, 4)
	var pushed, popped []uint32
	next := uint32(0)
	for round := 0; round < 300; round++ {
		if round%3 != 1 {
			if err := q.Push(item4(next)); err != nil {
				t.Fatalf("Push: %v", err)
			}
			pushed = append(pushed, next)
			next++
		} else if len(pushed) > len(popped) {
			got, ok, err := q.Pop()
			if err != nil {
				t.Fatalf("Pop: %v", err)
			}
			if !ok {
				t.Fatalf("Pop: expected item")
			}
			popped = append(popped, binary.LittleEndian.Uint32(got))
		}
	}
	for len(popped) < len(pushed) {
		got, ok, err := q.Pop()
		if err != nil || !ok {
			t.Fatalf("final drain Pop: ok=%v err=%v", ok, err)
		}
		popped = append(popped, binary.LittleEndian.Uint32(got))
	}
	for i := range pushed {
		if pushed[i] != popped[i] {
			t.Fatalf("FIFO order violated at %d: pushed %d, popped %d", i, pushed[i], popped[i])
		}
	}
}

func TestQueuePushWrongSize(t *testing.T) {
	q := mustOpenQueue(t, 4)
	if err := q.Push([]byte{1, 2, 3}); err == nil {
		t.Fatalf("Push with wrong item size should fail")
	}
}

func TestQueueItemSize(t *testing.T) {
	q := mustOpenQueue(t, 16)
	if q.ItemSize() != 16 {
		t.Fatalf("ItemSize() = %d, want 16", q.ItemSize())
	}
}
