// Package eventsdb implements EventsDb, the single 8-byte file recording
// the L1 block heights the fetcher has most recently caught up to (spec
// §4.11, §6.1). Grounded on events-db/src/events_db.rs.
package eventsdb

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zkamm/rollup/internal/rolluperr"
)

// EventsDb stores two little-endian u32 fields: from_block_deposited and
// from_block_withdrawn.
type EventsDb struct {
	f *os.File
}

// Open opens (or creates, zero-initialised) the events DB file under dir.
func Open(dir string) (*EventsDb, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("eventsdb: mkdir: %w: %w", rolluperr.ErrIO, err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "file"), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("eventsdb: open: %w: %w", rolluperr.ErrIO, err)
	}
	db := &EventsDb{f: f}

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("eventsdb: stat: %w: %w", rolluperr.ErrIO, err)
	}
	if info.Size() != 8 {
		var buf [8]byte
		if _, err := f.WriteAt(buf[:], 0); err != nil {
			return nil, fmt.Errorf("eventsdb: init: %w: %w", rolluperr.ErrIO, err)
		}
		if err := f.Sync(); err != nil {
			return nil, fmt.Errorf("eventsdb: init sync: %w: %w", rolluperr.ErrIO, err)
		}
	}
	return db, nil
}

// GetLastFetchedBlocks returns (from_block_deposited, from_block_withdrawn).
func (db *EventsDb) GetLastFetchedBlocks() (uint32, uint32, error) {
	var buf [8]byte
	if _, err := db.f.ReadAt(buf[:], 0); err != nil {
		return 0, 0, fmt.Errorf("eventsdb: read: %w: %w", rolluperr.ErrIO, err)
	}
	return binary.LittleEndian.Uint32(buf[0:4]), binary.LittleEndian.Uint32(buf[4:8]), nil
}

// SetLastFetchedBlocks atomically writes both watermarks (spec §4.11:
// "atomically writes both from_block_deposited and from_block_withdrawn").
func (db *EventsDb) SetLastFetchedBlocks(fromBlockDeposited, fromBlockWithdrawn uint32) error {
	var buf [8]byte
	binary.LittleEndian.PutUint32(buf[0:4], fromBlockDeposited)
	binary.LittleEndian.PutUint32(buf[4:8], fromBlockWithdrawn)
	if _, err := db.f.WriteAt(buf[:], 0); err != nil {
		return fmt.Errorf("eventsdb: write: %w: %w", rolluperr.ErrIO, err)
	}
	return db.f.Sync()
}

// Close releases the underlying file handle.
func (db *EventsDb) Close() error {
	if err := db.f.Close(); err != nil {
		return fmt.Errorf("eventsdb: close: %w: %w", rolluperr.ErrIO, err)
	}
	return nil
}
