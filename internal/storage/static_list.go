package storage

import (
	"fmt"
	"os"

	"github.com/zkamm/rollup/internal/rolluperr"
)

// StaticList is a pre-sized, pre-zeroed on-disk array of fixed capacity
// (spec §4.2). Unlike DynamicList it has no Push: every slot up to
// Capacity() exists from the moment the list is opened, so Get never fails
// with ErrIndexOutOfBounds for in-range indices.
type StaticList struct {
	f          *os.File
	recordSize int
	capacity   uint64
}

// OpenStaticList opens (creating and zero-filling if absent) a StaticList
// with the given record size and capacity.
func OpenStaticList(path string, recordSize int, capacity uint64) (*StaticList, error) {
	f, err := openWithParent(path)
	if err != nil {
		return nil, err
	}
	wantLen := int64(recordSize) * int64(capacity)
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("storage: stat: %w: %w", rolluperr.ErrIO, err)
	}
	if info.Size() < wantLen {
		if err := f.Truncate(wantLen); err != nil {
			return nil, fmt.Errorf("storage: truncate: %w: %w", rolluperr.ErrIO, err)
		}
	}
	return &StaticList{f: f, recordSize: recordSize, capacity: capacity}, nil
}

// RecordSize returns the fixed record length, in bytes.
func (s *StaticList) RecordSize() int { return s.recordSize }

// Capacity returns the fixed number of slots.
func (s *StaticList) Capacity() uint64 { return s.capacity }

// Get reads the record at index. Returns ErrIndexOutOfBounds if
// index >= Capacity().
func (s *StaticList) Get(index uint64) ([]byte, error) {
	if index >= s.capacity {
		return nil, rolluperr.ErrIndexOutOfBounds
	}
	buf := make([]byte, s.recordSize)
	if _, err := s.f.ReadAt(buf, int64(index)*int64(s.recordSize)); err != nil {
		return nil, fmt.Errorf("storage: read: %w: %w", rolluperr.ErrIO, err)
	}
	return buf, nil
}

// Set overwrites the record at index. Returns ErrIndexOutOfBounds if
// index >= Capacity().
func (s *StaticList) Set(index uint64, buf []byte) error {
	if index >= s.capacity {
		return rolluperr.ErrIndexOutOfBounds
	}
	if len(buf) != s.recordSize {
		return fmt.Errorf("storage: set: %w: record size mismatch", rolluperr.ErrInfallible)
	}
	if _, err := s.f.WriteAt(buf, int64(index)*int64(s.recordSize)); err != nil {
		return fmt.Errorf("storage: write: %w: %w", rolluperr.ErrIO, err)
	}
	return s.f.Sync()
}

// ForEach linearly scans every record up to Capacity(), invoking f with its
// bytes and index.
func (s *StaticList) ForEach(f func(buf []byte, index uint64) error) error {
	buf := make([]byte, s.recordSize)
	for i := uint64(0); i < s.capacity; i++ {
		if _, err := s.f.ReadAt(buf, int64(i)*int64(s.recordSize)); err != nil {
			return fmt.Errorf("storage: read: %w: %w", rolluperr.ErrIO, err)
		}
		cp := make([]byte, s.recordSize)
		copy(cp, buf)
		if err := f(cp, i); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying file handle.
func (s *StaticList) Close() error { return s.f.Close() }
