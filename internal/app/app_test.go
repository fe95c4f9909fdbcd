package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"herbtrace/internal/archive"
	"herbtrace/internal/config"
	"herbtrace/internal/database"
	"herbtrace/internal/ledger"
	"herbtrace/internal/model"
)

// Neem is in season all year so the tests do not depend on the wall clock.
const allYearRules = `
[[plants]]
name = "Neem"
season = { start_month = 0, end_month = 11 }
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()

	rulesPath := filepath.Join(base, "rules.toml")
	if err := os.WriteFile(rulesPath, []byte(allYearRules), 0644); err != nil {
		t.Fatalf("writing rules: %v", err)
	}

	cfg := config.NewConfig("test-ledger", base)
	cfg.Encryption.Type = "test"
	cfg.Compliance.RulesPath = rulesPath
	return cfg
}

func initialized(t *testing.T) *config.Config {
	t.Helper()
	cfg := testConfig(t)
	if err := Initialize(filepath.Join(cfg.BaseDir, "herbtrace.toml"), cfg); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return cfg
}

func archivedVersion(t *testing.T, cfg *config.Config) int64 {
	t.Helper()
	arch, err := archive.NewArchiveFromConfig(cfg.Archives[0])
	if err != nil {
		t.Fatalf("opening archive: %v", err)
	}
	v, err := arch.GetSnapshotVersion(cfg.LedgerID)
	if err != nil {
		t.Fatalf("GetSnapshotVersion: %v", err)
	}
	return v
}

func harvestNeem(t *testing.T, cfg *config.Config) *ledger.Submission {
	t.Helper()
	a, err := NewHTApp(cfg, Options{}, "harvest", "Neem")
	if err != nil {
		t.Fatalf("NewHTApp: %v", err)
	}
	sub, err := a.SubmitHarvest(context.Background(), ledger.HarvestRequest{
		Plant:      "Neem",
		Coordinate: model.Coordinate{Latitude: 12.97, Longitude: 77.59},
		Farm:       model.Farm{Name: "Green Acres"},
	})
	if err != nil {
		t.Fatalf("SubmitHarvest: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return sub
}

func TestInitialize(t *testing.T) {
	cfg := testConfig(t)
	path := filepath.Join(cfg.BaseDir, "herbtrace.toml")

	if err := Initialize(path, cfg); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	for _, p := range []string{
		path,
		database.DatabasePath(cfg.Database, cfg.LedgerID),
		filepath.Join(cfg.Archives[0].FSArchiveRoot, "snapshots"),
		cfg.LogDir,
	} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("expected %s to exist: %v", p, err)
		}
	}

	if err := Initialize(path, cfg); err == nil {
		t.Error("second Initialize should fail")
	}
}

func TestNewHTApp_RequiresMigratedDatabase(t *testing.T) {
	cfg := testConfig(t)

	if _, err := NewHTApp(cfg, Options{}, "plants"); err == nil {
		t.Fatal("expected error for unmigrated database")
	}

	if err := MigrateDatabase(cfg); err != nil {
		t.Fatalf("MigrateDatabase: %v", err)
	}
	a, err := NewHTApp(cfg, Options{}, "plants")
	if err != nil {
		t.Fatalf("NewHTApp after migrate: %v", err)
	}
	defer a.Close()

	if got := a.Plants(); len(got) != 1 || got[0] != "Neem" {
		t.Errorf("Plants() = %v, want [Neem]", got)
	}
}

func TestNewHTApp_BadRuleFile(t *testing.T) {
	cfg := initialized(t)
	cfg.Compliance.RulesPath = filepath.Join(cfg.BaseDir, "missing.toml")

	if _, err := NewHTApp(cfg, Options{}, "plants"); err == nil {
		t.Fatal("expected error for missing rule file")
	}
}

func TestHTApp_MutatingOperationPublishesSnapshot(t *testing.T) {
	cfg := initialized(t)

	sub := harvestNeem(t, cfg)
	if sub.Batch.ComplianceStatus != model.StatusCompliant {
		t.Fatalf("status = %s, want COMPLIANT", sub.Batch.ComplianceStatus)
	}

	if v := archivedVersion(t, cfg); v != 1 {
		t.Errorf("archived version = %d, want 1", v)
	}

	// The second run sees an archive at its own version and proceeds.
	harvestNeem(t, cfg)
	if v := archivedVersion(t, cfg); v != 2 {
		t.Errorf("archived version = %d, want 2", v)
	}

	a, err := NewHTApp(cfg, Options{}, "history")
	if err != nil {
		t.Fatalf("NewHTApp: %v", err)
	}
	defer a.Close()

	ops, err := a.GetHistory(10)
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(ops) != 2 {
		t.Fatalf("got %d operations, want 2", len(ops))
	}
	for _, op := range ops {
		if op.Operation != "harvest" || op.Status != StatusSuccess {
			t.Errorf("unexpected operation %+v", op)
		}
	}
}

func TestHTApp_ReadOnlyOperationDoesNotPublish(t *testing.T) {
	cfg := initialized(t)

	a, err := NewHTApp(cfg, Options{}, "batches")
	if err != nil {
		t.Fatalf("NewHTApp: %v", err)
	}
	batches, err := a.ListBatches(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListBatches: %v", err)
	}
	if len(batches) != 0 {
		t.Errorf("got %d batches, want 0", len(batches))
	}
	if a.Operation().Persisted() {
		t.Error("read-only operation should not be persisted")
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if v := archivedVersion(t, cfg); v != 0 {
		t.Errorf("archived version = %d, want 0", v)
	}
}

func TestHTApp_FailedOperationIsRecorded(t *testing.T) {
	cfg := initialized(t)

	a, err := NewHTApp(cfg, Options{}, "event", "deadbeef")
	if err != nil {
		t.Fatalf("NewHTApp: %v", err)
	}
	_, err = a.RecordEvent(context.Background(), "deadbeef", ledger.EventInput{
		Type:    model.EventLabTest,
		Analyst: "Dr. Rao",
		Result:  "pass",
	})
	if err == nil {
		t.Fatal("expected error for unknown batch")
	}
	if a.Operation().Status != StatusError {
		t.Errorf("status = %s, want %s", a.Operation().Status, StatusError)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	a, err = NewHTApp(cfg, Options{}, "history")
	if err != nil {
		t.Fatalf("NewHTApp: %v", err)
	}
	defer a.Close()
	ops, err := a.GetHistory(1)
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(ops) != 1 || ops[0].Status != StatusError {
		t.Errorf("history = %+v, want one failed operation", ops)
	}
}

func TestNewHTApp_RefusesWhenArchiveIsAhead(t *testing.T) {
	cfg := initialized(t)

	arch, err := archive.NewArchiveFromConfig(cfg.Archives[0])
	if err != nil {
		t.Fatalf("opening archive: %v", err)
	}
	if err := arch.PutSnapshot(cfg.LedgerID, strings.NewReader("x"), 1, 99); err != nil {
		t.Fatalf("PutSnapshot: %v", err)
	}

	_, err = NewHTApp(cfg, Options{}, "plants")
	if err == nil {
		t.Fatal("expected error when archive is ahead")
	}
	if !strings.Contains(err.Error(), "behind the archive") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRestoreSnapshot(t *testing.T) {
	cfg := initialized(t)
	sub := harvestNeem(t, cfg)

	out := filepath.Join(t.TempDir(), "restored", "ledger.db")
	if err := RestoreSnapshot(cfg, "passphrase", out); err != nil {
		t.Fatalf("RestoreSnapshot: %v", err)
	}

	db, err := database.NewSQLiteDatabase(out)
	if err != nil {
		t.Fatalf("opening restored database: %v", err)
	}
	defer db.Close()

	got, err := db.FindBatchByID(context.Background(), sub.Batch.ID)
	if err != nil {
		t.Fatalf("FindBatchByID: %v", err)
	}
	if got == nil {
		t.Fatal("restored database is missing the harvested batch")
	}
	if got.BotanicalName != "Neem" {
		t.Errorf("BotanicalName = %q, want Neem", got.BotanicalName)
	}

	if err := RestoreSnapshot(cfg, "passphrase", out); err == nil {
		t.Error("restoring over an existing file should fail")
	}
}

func TestRestoreSnapshot_NoArchive(t *testing.T) {
	cfg := testConfig(t)
	cfg.Archives = nil

	if err := RestoreSnapshot(cfg, "pw", filepath.Join(t.TempDir(), "out.db")); err == nil {
		t.Fatal("expected error without archives")
	}
}

func TestSetupKeys(t *testing.T) {
	cfg := testConfig(t)
	cfg.Encryption.Type = "age"

	if err := SetupKeys(cfg, "correct horse"); err != nil {
		t.Fatalf("SetupKeys: %v", err)
	}
	for _, p := range []string{cfg.Encryption.PublicKeyPath, cfg.Encryption.PrivateKeyPath} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("expected key file %s: %v", p, err)
		}
	}

	if err := SetupKeys(cfg, "correct horse"); err == nil {
		t.Error("second SetupKeys should fail")
	}
}
