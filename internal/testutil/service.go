package testutil

import (
	"testing"
	"time"

	"herbtrace/internal/archive"
	"herbtrace/internal/compliance"
	"herbtrace/internal/database"
	"herbtrace/internal/encryption"
	"herbtrace/internal/ledger"
)

// ServiceFixture is a fully wired ledger service over an in-memory store.
type ServiceFixture struct {
	Service *ledger.Service
	DB      *database.SQLiteDatabase
	Clock   *StubClock
	IDs     *StubIDGenerator
	Archive *archive.MemoryArchive
	Sealer  *encryption.TestSealer
}

// NewTestService wires a Service with the default rule set, a stepping
// clock starting at HarvestTime and the given options.
func NewTestService(t *testing.T, opts ledger.Options) *ServiceFixture {
	t.Helper()
	return NewTestServiceWithStore(t, NewTestDatabase(t), opts)
}

// NewTestServiceWithStore is NewTestService over an existing database.
func NewTestServiceWithStore(t *testing.T, db *database.SQLiteDatabase, opts ledger.Options) *ServiceFixture {
	t.Helper()

	f := &ServiceFixture{
		DB:      db,
		Clock:   NewSteppingClock(HarvestTime, time.Second),
		IDs:     NewStubIDGenerator(),
		Archive: archive.NewMemoryArchive("test-archive"),
		Sealer:  encryption.NewTestSealer(),
	}
	f.Service = ledger.NewService(db, compliance.DefaultRuleSet(), f.Archive, f.Sealer,
		ledger.NewNopLogger(), f.Clock, f.IDs, opts)
	return f
}

// FastOptions is DefaultOptions with a short retry backoff.
func FastOptions() ledger.Options {
	opts := ledger.DefaultOptions()
	opts.RetryBackoff = time.Millisecond
	opts.MaxRetries = 50
	return opts
}
