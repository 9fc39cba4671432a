package txdb

import (
	"path/filepath"
	"testing"

	"github.com/zkamm/rollup/internal/domain"
	"github.com/zkamm/rollup/internal/rolluperr"
)

func mustOpen(t *testing.T) *TransactionsDb {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "txdb"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestAddNewTxAssignsSequentialIDs(t *testing.T) {
	db := mustOpen(t)
	for want := uint64(0); want < 300; want++ {
		id, err := db.AddNewTx()
		if err != nil {
			t.Fatalf("AddNewTx: %v", err)
		}
		if id != want {
			t.Fatalf("AddNewTx = %d, want %d", id, want)
		}
	}
	count, err := db.TxCount()
	if err != nil {
		t.Fatalf("TxCount: %v", err)
	}
	if count != 300 {
		t.Fatalf("TxCount = %d, want 300", count)
	}
}

func TestGetStatusPrecedence(t *testing.T) {
	db := mustOpen(t)
	for i := 0; i < 5; i++ {
		if _, err := db.AddNewTx(); err != nil {
			t.Fatalf("AddNewTx: %v", err)
		}
	}

	if err := db.SetExecutedUntil(4); err != nil {
		t.Fatalf("SetExecutedUntil: %v", err)
	}
	if err := db.SetProvedUntil(3); err != nil {
		t.Fatalf("SetProvedUntil: %v", err)
	}
	if err := db.SetSettledUntil(1); err != nil {
		t.Fatalf("SetSettledUntil: %v", err)
	}
	if err := db.SetRejected(2); err != nil {
		t.Fatalf("SetRejected: %v", err)
	}

	cases := []struct {
		id   uint64
		want domain.TxStatus
	}{
		{0, domain.TxSettled},
		{1, domain.TxProved},
		{2, domain.TxRejected},
		{3, domain.TxExecuted},
		{4, domain.TxPending},
	}
	for _, c := range cases {
		got, err := db.GetStatus(c.id)
		if err != nil {
			t.Fatalf("GetStatus(%d): %v", c.id, err)
		}
		if got != c.want {
			t.Fatalf("GetStatus(%d) = %s, want %s", c.id, got, c.want)
		}
	}
}

func TestSetRejectedUnknownTxFails(t *testing.T) {
	db := mustOpen(t)
	if err := db.SetRejected(0); err != rolluperr.ErrDoesntExist {
		t.Fatalf("err = %v, want ErrDoesntExist", err)
	}
}

func TestGetStatusRejectedOutranksSettled(t *testing.T) {
	db := mustOpen(t)
	if _, err := db.AddNewTx(); err != nil {
		t.Fatalf("AddNewTx: %v", err)
	}
	if err := db.SetSettledUntil(1); err != nil {
		t.Fatalf("SetSettledUntil: %v", err)
	}
	if err := db.SetRejected(0); err != nil {
		t.Fatalf("SetRejected: %v", err)
	}
	got, err := db.GetStatus(0)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if got != domain.TxRejected {
		t.Fatalf("GetStatus = %s, want Rejected even though tx is within settled_until", got)
	}
}

func TestWatermarksSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "txdb")
	db1, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for i := 0; i < 10; i++ {
		if _, err := db1.AddNewTx(); err != nil {
			t.Fatalf("AddNewTx: %v", err)
		}
	}
	if err := db1.SetExecutedUntil(7); err != nil {
		t.Fatalf("SetExecutedUntil: %v", err)
	}
	if err := db1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db2.Close()

	count, err := db2.TxCount()
	if err != nil || count != 10 {
		t.Fatalf("TxCount = %d, %v, want 10", count, err)
	}
	executedUntil, err := db2.ExecutedUntil()
	if err != nil || executedUntil != 7 {
		t.Fatalf("ExecutedUntil = %d, %v, want 7", executedUntil, err)
	}
}
