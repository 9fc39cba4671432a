// Package txdb implements TransactionsDb, the single-file store of
// per-transaction status and pipeline watermarks (spec §4.7). No
// original_source file covers this verbatim (the original keeps
// watermarks in separate structs per the retrieved index); this package
// is built directly from spec.md's byte layout and operation list.
package txdb

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zkamm/rollup/internal/domain"
	"github.com/zkamm/rollup/internal/rolluperr"
)

// Watermark offsets within the file header (spec §4.7).
const (
	offsetTxCount       = 0
	offsetExecutedUntil = 8
	offsetProvedUntil   = 16
	offsetSettledUntil  = 24
	offsetMergedUntil   = 32
	offsetBitmap        = 40
)

// TransactionsDb tracks tx_count, the four pipeline watermarks, and a
// rejected-bit per transaction, all in one file (spec §4.7).
type TransactionsDb struct {
	f *os.File
}

// Open opens (or creates) the transactions DB file at path.
func Open(path string) (*TransactionsDb, error) {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil, rolluperr.ErrParentDirectoryNotSpecified
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("txdb: mkdir: %w: %w", rolluperr.ErrIO, err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("txdb: open: %w: %w", rolluperr.ErrIO, err)
	}
	db := &TransactionsDb{f: f}

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("txdb: stat: %w: %w", rolluperr.ErrIO, err)
	}
	if info.Size() == 0 {
		if err := db.writeHeader(0, 0, 0, 0, 0); err != nil {
			return nil, err
		}
	}
	return db, nil
}

func (db *TransactionsDb) writeHeader(txCount, executedUntil, provedUntil, settledUntil, mergedUntil uint64) error {
	var header [offsetBitmap]byte
	binary.LittleEndian.PutUint64(header[offsetTxCount:], txCount)
	binary.LittleEndian.PutUint64(header[offsetExecutedUntil:], executedUntil)
	binary.LittleEndian.PutUint64(header[offsetProvedUntil:], provedUntil)
	binary.LittleEndian.PutUint64(header[offsetSettledUntil:], settledUntil)
	binary.LittleEndian.PutUint64(header[offsetMergedUntil:], mergedUntil)
	if _, err := db.f.WriteAt(header[:], 0); err != nil {
		return fmt.Errorf("txdb: write header: %w: %w", rolluperr.ErrIO, err)
	}
	return db.f.Sync()
}

func (db *TransactionsDb) readU64(offset int64) (uint64, error) {
	var buf [8]byte
	if _, err := db.f.ReadAt(buf[:], offset); err != nil {
		return 0, fmt.Errorf("txdb: read: %w: %w", rolluperr.ErrIO, err)
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func (db *TransactionsDb) writeU64(offset int64, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	if _, err := db.f.WriteAt(buf[:], offset); err != nil {
		return fmt.Errorf("txdb: write: %w: %w", rolluperr.ErrIO, err)
	}
	return db.f.Sync()
}

// TxCount returns the number of transactions ever admitted.
func (db *TransactionsDb) TxCount() (uint64, error) { return db.readU64(offsetTxCount) }

// ExecutedUntil, ProvedUntil, SettledUntil, MergedUntil read the
// corresponding watermark.
func (db *TransactionsDb) ExecutedUntil() (uint64, error) { return db.readU64(offsetExecutedUntil) }
func (db *TransactionsDb) ProvedUntil() (uint64, error)   { return db.readU64(offsetProvedUntil) }
func (db *TransactionsDb) SettledUntil() (uint64, error)  { return db.readU64(offsetSettledUntil) }
func (db *TransactionsDb) MergedUntil() (uint64, error)   { return db.readU64(offsetMergedUntil) }

// SetExecutedUntil, SetProvedUntil, SetSettledUntil, SetMergedUntil each
// perform a single u64 write (spec §4.7: "Setters for each watermark
// perform a single u64 write").
func (db *TransactionsDb) SetExecutedUntil(v uint64) error { return db.writeU64(offsetExecutedUntil, v) }
func (db *TransactionsDb) SetProvedUntil(v uint64) error   { return db.writeU64(offsetProvedUntil, v) }
func (db *TransactionsDb) SetSettledUntil(v uint64) error  { return db.writeU64(offsetSettledUntil, v) }
func (db *TransactionsDb) SetMergedUntil(v uint64) error   { return db.writeU64(offsetMergedUntil, v) }

// AddNewTx returns the current tx_count as the new transaction's id,
// increments tx_count, and grows the rejected-bitmap by a zero byte if the
// new id lands on a byte boundary the bitmap doesn't yet cover.
func (db *TransactionsDb) AddNewTx() (uint64, error) {
	txCount, err := db.TxCount()
	if err != nil {
		return 0, err
	}
	id := txCount

	byteIndex := id / 8
	info, err := db.f.Stat()
	if err != nil {
		return 0, fmt.Errorf("txdb: stat: %w: %w", rolluperr.ErrIO, err)
	}
	bitmapLen := uint64(info.Size()) - offsetBitmap
	if byteIndex >= bitmapLen {
		if _, err := db.f.WriteAt([]byte{0}, int64(offsetBitmap+byteIndex)); err != nil {
			return 0, fmt.Errorf("txdb: grow bitmap: %w: %w", rolluperr.ErrIO, err)
		}
	}

	if err := db.writeU64(offsetTxCount, txCount+1); err != nil {
		return 0, err
	}
	return id, nil
}

// SetRejected ORs in the rejected bit for txID.
func (db *TransactionsDb) SetRejected(txID uint64) error {
	txCount, err := db.TxCount()
	if err != nil {
		return err
	}
	if txID >= txCount {
		return rolluperr.ErrDoesntExist
	}
	byteIndex := int64(offsetBitmap + txID/8)
	bitMask := byte(1) << (txID % 8)

	var b [1]byte
	if _, err := db.f.ReadAt(b[:], byteIndex); err != nil {
		return fmt.Errorf("txdb: read bitmap byte: %w: %w", rolluperr.ErrIO, err)
	}
	b[0] |= bitMask
	if _, err := db.f.WriteAt(b[:], byteIndex); err != nil {
		return fmt.Errorf("txdb: write bitmap byte: %w: %w", rolluperr.ErrIO, err)
	}
	return db.f.Sync()
}

func (db *TransactionsDb) isRejected(txID uint64) (bool, error) {
	byteIndex := int64(offsetBitmap + txID/8)
	bitMask := byte(1) << (txID % 8)

	var b [1]byte
	if _, err := db.f.ReadAt(b[:], byteIndex); err != nil {
		return false, fmt.Errorf("txdb: read bitmap byte: %w: %w", rolluperr.ErrIO, err)
	}
	return b[0]&bitMask != 0, nil
}

// GetStatus computes txID's status with the precedence spec §4.7 gives:
// Rejected beats every watermark; otherwise Settled, Proved, Executed,
// Pending in descending watermark order.
func (db *TransactionsDb) GetStatus(txID uint64) (domain.TxStatus, error) {
	txCount, err := db.TxCount()
	if err != nil {
		return 0, err
	}
	if txID >= txCount {
		return 0, rolluperr.ErrDoesntExist
	}

	rejected, err := db.isRejected(txID)
	if err != nil {
		return 0, err
	}
	if rejected {
		return domain.TxRejected, nil
	}

	settledUntil, err := db.SettledUntil()
	if err != nil {
		return 0, err
	}
	if txID < settledUntil {
		return domain.TxSettled, nil
	}

	provedUntil, err := db.ProvedUntil()
	if err != nil {
		return 0, err
	}
	if txID < provedUntil {
		return domain.TxProved, nil
	}

	executedUntil, err := db.ExecutedUntil()
	if err != nil {
		return 0, err
	}
	if txID < executedUntil {
		return domain.TxExecuted, nil
	}

	return domain.TxPending, nil
}

// Close releases the underlying file handle.
func (db *TransactionsDb) Close() error {
	if err := db.f.Close(); err != nil {
		return fmt.Errorf("txdb: close: %w: %w", rolluperr.ErrIO, err)
	}
	return nil
}
