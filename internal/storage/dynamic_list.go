// Package storage implements the on-disk random-access list and FIFO queue
// primitives every domain store and pipeline queue is built on (spec
// §4.1-§4.3). Every structure here opens one exclusively-owned *os.File and
// performs seek-based reads/writes with no in-memory cache, matching the
// teacher's and the original implementation's "durable after every call"
// contract.
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/zkamm/rollup/internal/rolluperr"
)

// DynamicList is an unbounded on-disk sequence of fixed-size records,
// indexed by a u64 position (spec §4.1).
type DynamicList struct {
	f          *os.File
	recordSize int
}

// OpenDynamicList opens (creating if absent) a DynamicList of the given
// record size at path. The parent directory must already be resolvable;
// OpenDynamicList creates it if missing, mirroring the original's
// create_dir_all-then-open sequence.
func OpenDynamicList(path string, recordSize int) (*DynamicList, error) {
	f, err := openWithParent(path)
	if err != nil {
		return nil, err
	}
	return &DynamicList{f: f, recordSize: recordSize}, nil
}

// openWithParent creates path's parent directory (erroring if path has no
// usable parent, spec §4.1 ParentDirectoryNotSpecified) and opens path for
// reading and writing, creating it if it does not exist.
func openWithParent(path string) (*os.File, error) {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil, rolluperr.ErrParentDirectoryNotSpecified
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: mkdir %s: %w: %w", dir, rolluperr.ErrIO, err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w: %w", path, rolluperr.ErrIO, err)
	}
	return f, nil
}

// RecordSize returns the fixed record length, in bytes.
func (d *DynamicList) RecordSize() int { return d.recordSize }

// Push appends buf (which must be exactly RecordSize() bytes) to the end of
// the list and returns the index it was written at.
func (d *DynamicList) Push(buf []byte) (uint64, error) {
	if len(buf) != d.recordSize {
		return 0, fmt.Errorf("storage: push: %w: record size mismatch", rolluperr.ErrInfallible)
	}
	info, err := d.f.Stat()
	if err != nil {
		return 0, fmt.Errorf("storage: stat: %w: %w", rolluperr.ErrIO, err)
	}
	offset := info.Size()
	index := uint64(offset) / uint64(d.recordSize)

	if _, err := d.f.WriteAt(buf, offset); err != nil {
		return 0, fmt.Errorf("storage: write: %w: %w", rolluperr.ErrIO, err)
	}
	if err := d.f.Sync(); err != nil {
		return 0, fmt.Errorf("storage: sync: %w: %w", rolluperr.ErrIO, err)
	}
	return index, nil
}

// Set overwrites the record at index. Returns ErrIndexOutOfBounds if index
// has never been written (spec §4.1: "fails ... if unset").
func (d *DynamicList) Set(index uint64, buf []byte) error {
	if len(buf) != d.recordSize {
		return fmt.Errorf("storage: set: %w: record size mismatch", rolluperr.ErrInfallible)
	}
	offset := index * uint64(d.recordSize)
	info, err := d.f.Stat()
	if err != nil {
		return fmt.Errorf("storage: stat: %w: %w", rolluperr.ErrIO, err)
	}
	if uint64(info.Size()) < offset+uint64(d.recordSize) {
		return rolluperr.ErrIndexOutOfBounds
	}
	if _, err := d.f.WriteAt(buf, int64(offset)); err != nil {
		return fmt.Errorf("storage: write: %w: %w", rolluperr.ErrIO, err)
	}
	return d.f.Sync()
}

// Get reads the record at index. Returns ErrIndexOutOfBounds if
// (index+1)*RecordSize() exceeds the current file length.
func (d *DynamicList) Get(index uint64) ([]byte, error) {
	offset := index * uint64(d.recordSize)
	info, err := d.f.Stat()
	if err != nil {
		return nil, fmt.Errorf("storage: stat: %w: %w", rolluperr.ErrIO, err)
	}
	if uint64(info.Size()) < offset+uint64(d.recordSize) {
		return nil, rolluperr.ErrIndexOutOfBounds
	}
	buf := make([]byte, d.recordSize)
	if _, err := d.f.ReadAt(buf, int64(offset)); err != nil {
		return nil, fmt.Errorf("storage: read: %w: %w", rolluperr.ErrIO, err)
	}
	return buf, nil
}

// Len returns the number of records currently stored.
func (d *DynamicList) Len() (uint64, error) {
	info, err := d.f.Stat()
	if err != nil {
		return 0, fmt.Errorf("storage: stat: %w: %w", rolluperr.ErrIO, err)
	}
	return uint64(info.Size()) / uint64(d.recordSize), nil
}

// ForEach linearly scans every record, invoking f with its bytes and index.
// Used only during store startup to rebuild in-memory natural-key indexes
// (spec §4.6, §9 "Global state ... well-defined init").
func (d *DynamicList) ForEach(f func(buf []byte, index uint64) error) error {
	count, err := d.Len()
	if err != nil {
		return err
	}
	buf := make([]byte, d.recordSize)
	for i := uint64(0); i < count; i++ {
		if _, err := d.f.ReadAt(buf, int64(i*uint64(d.recordSize))); err != nil {
			return fmt.Errorf("storage: read: %w: %w", rolluperr.ErrIO, err)
		}
		cp := make([]byte, d.recordSize)
		copy(cp, buf)
		if err := f(cp, i); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying file handle.
func (d *DynamicList) Close() error { return d.f.Close() }
