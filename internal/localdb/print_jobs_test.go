package localdb

import (
	"path/filepath"
	"testing"
	"time"
)

func TestPrintJobsCRUD(t *testing.T) {
	if DBClient != nil {
		_ = DBClient.Close()
		DBClient = nil
	}

	dbPath := filepath.Join(t.TempDir(), "history.db")
	db, err := SetupDB(dbPath)
	if err != nil {
		t.Fatalf("SetupDB failed: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
		DBClient = nil
	})

	again, err := SetupDB(dbPath)
	if err != nil {
		t.Fatalf("SetupDB second call failed: %v", err)
	}
	if again != db {
		t.Fatal("SetupDB is not idempotent: got a new handle")
	}

	now := time.Now().Unix()

	id, err := SavePrintJob(PrintJobRow{
		Text:      "hello",
		TapeID:    "W12",
		Copies:    2,
		Printer:   "192.168.1.20:631",
		IPPJobID:  7,
		Bytes:     891,
		CreatedAt: now - 120,
	})
	if err != nil {
		t.Fatalf("SavePrintJob first failed: %v", err)
	}
	if id == "" {
		t.Fatal("SavePrintJob returned empty id for generated job")
	}

	if _, err := SavePrintJob(PrintJobRow{
		Text:      "shelf A3",
		TapeID:    "W6",
		Copies:    1,
		DryRun:    true,
		CreatedAt: now - 60,
	}); err != nil {
		t.Fatalf("SavePrintJob second failed: %v", err)
	}

	if _, err := SavePrintJob(PrintJobRow{
		ID:        "fixed-id",
		Text:      "cable-42",
		TapeID:    "W9",
		Copies:    1,
		CreatedAt: now,
	}); err != nil {
		t.Fatalf("SavePrintJob third failed: %v", err)
	}

	limited, err := RecentPrintJobs(2)
	if err != nil {
		t.Fatalf("RecentPrintJobs(limit=2) failed: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("unexpected length for limit=2: got=%d want=2", len(limited))
	}
	if limited[0].Text != "cable-42" {
		t.Fatalf("history order mismatch: got=%q want=%q", limited[0].Text, "cable-42")
	}
	if limited[0].ID != "fixed-id" {
		t.Fatalf("explicit id not kept: got=%q want=%q", limited[0].ID, "fixed-id")
	}

	all, err := RecentPrintJobs(0)
	if err != nil {
		t.Fatalf("RecentPrintJobs(limit=0) failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("unexpected full history length: got=%d want=3", len(all))
	}

	oldest := all[2]
	if oldest.Text != "hello" {
		t.Fatalf("unexpected oldest entry: got=%q want=%q", oldest.Text, "hello")
	}
	if oldest.TapeID != "W12" {
		t.Fatalf("unexpected TapeID: got=%q want=%q", oldest.TapeID, "W12")
	}
	if oldest.Copies != 2 {
		t.Fatalf("unexpected Copies: got=%d want=2", oldest.Copies)
	}
	if oldest.Printer != "192.168.1.20:631" {
		t.Fatalf("unexpected Printer: got=%q", oldest.Printer)
	}
	if oldest.IPPJobID != 7 {
		t.Fatalf("unexpected IPPJobID: got=%d want=7", oldest.IPPJobID)
	}
	if oldest.Bytes != 891 {
		t.Fatalf("unexpected Bytes: got=%d want=891", oldest.Bytes)
	}
	if oldest.DryRun {
		t.Fatal("first job unexpectedly marked dry_run")
	}
	if !all[1].DryRun {
		t.Fatal("second job lost its dry_run flag")
	}
}
