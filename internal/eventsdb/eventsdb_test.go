package eventsdb

import "testing"

func TestInitializesToZero(t *testing.T) {
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	deposited, withdrawn, err := db.GetLastFetchedBlocks()
	if err != nil {
		t.Fatalf("GetLastFetchedBlocks: %v", err)
	}
	if deposited != 0 || withdrawn != 0 {
		t.Fatalf("got (%d,%d), want (0,0)", deposited, withdrawn)
	}
}

func TestSetAndGetLastFetchedBlocks(t *testing.T) {
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if err := db.SetLastFetchedBlocks(45, 43); err != nil {
		t.Fatalf("SetLastFetchedBlocks: %v", err)
	}

	deposited, withdrawn, err := db.GetLastFetchedBlocks()
	if err != nil {
		t.Fatalf("GetLastFetchedBlocks: %v", err)
	}
	if deposited != 45 || withdrawn != 43 {
		t.Fatalf("got (%d,%d), want (45,43)", deposited, withdrawn)
	}
}

func TestWatermarksSurviveReopen(t *testing.T) {
	dir := t.TempDir()
	db1, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := db1.SetLastFetchedBlocks(10, 20); err != nil {
		t.Fatalf("SetLastFetchedBlocks: %v", err)
	}
	if err := db1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db2, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db2.Close()

	deposited, withdrawn, err := db2.GetLastFetchedBlocks()
	if err != nil {
		t.Fatalf("GetLastFetchedBlocks: %v", err)
	}
	if deposited != 10 || withdrawn != 20 {
		t.Fatalf("got (%d,%d), want (10,20)", deposited, withdrawn)
	}
}
