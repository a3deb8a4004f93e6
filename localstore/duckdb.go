package localstore

import (
	"context"
	"database/sql"
	"sync"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/serr"

	"storagesync/record"
	"storagesync/storageid"
)

// queryer is satisfied by both *sql.DB and *sql.Tx, letting every read/write
// helper in this package run identically whether or not it's inside the
// transaction opened by WithTransaction.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DDL mirrors the teacher's const-DDL-string-per-table convention
// (models/db.go, models/note_change.go) rather than an ORM or migration
// framework.
const (
	ddlSyncState = `
CREATE TABLE IF NOT EXISTS sync_state (
	id               INTEGER PRIMARY KEY,
	manifest_version BIGINT NOT NULL DEFAULT 0
);`

	ddlContacts = `
CREATE TABLE IF NOT EXISTS contacts (
	semantic_key            VARCHAR PRIMARY KEY,
	storage_id_raw          BLOB,
	dirty_state             INTEGER NOT NULL DEFAULT 0,
	blocked                 BOOLEAN NOT NULL DEFAULT false,
	profile_sharing_enabled BOOLEAN NOT NULL DEFAULT false,
	archived                BOOLEAN NOT NULL DEFAULT false,
	forced_unread           BOOLEAN NOT NULL DEFAULT false,
	mute_until              BIGINT NOT NULL DEFAULT 0,
	unknown_fields          BLOB
);`

	ddlGroupV1 = `
CREATE TABLE IF NOT EXISTS group_v1 (
	semantic_key            VARCHAR PRIMARY KEY,
	storage_id_raw          BLOB,
	group_id                BLOB,
	migrated_to_gv2         BOOLEAN NOT NULL DEFAULT false,
	dirty_state             INTEGER NOT NULL DEFAULT 0,
	blocked                 BOOLEAN NOT NULL DEFAULT false,
	profile_sharing_enabled BOOLEAN NOT NULL DEFAULT false,
	archived                BOOLEAN NOT NULL DEFAULT false,
	forced_unread           BOOLEAN NOT NULL DEFAULT false,
	mute_until              BIGINT NOT NULL DEFAULT 0,
	unknown_fields          BLOB
);`

	ddlGroupV2 = `
CREATE TABLE IF NOT EXISTS group_v2 (
	semantic_key            VARCHAR PRIMARY KEY,
	storage_id_raw          BLOB,
	master_key              BLOB,
	dirty_state             INTEGER NOT NULL DEFAULT 0,
	blocked                 BOOLEAN NOT NULL DEFAULT false,
	profile_sharing_enabled BOOLEAN NOT NULL DEFAULT false,
	archived                BOOLEAN NOT NULL DEFAULT false,
	forced_unread           BOOLEAN NOT NULL DEFAULT false,
	mute_until              BIGINT NOT NULL DEFAULT 0,
	unknown_fields          BLOB
);`

	ddlAccount = `
CREATE TABLE IF NOT EXISTS account (
	id                          INTEGER PRIMARY KEY,
	self_id                     VARCHAR NOT NULL DEFAULT '',
	author_id                   VARCHAR NOT NULL DEFAULT '',
	storage_id_raw              BLOB,
	dirty_state                 INTEGER NOT NULL DEFAULT 0,
	read_receipts_enabled       BOOLEAN NOT NULL DEFAULT false,
	typing_indicators_enabled   BOOLEAN NOT NULL DEFAULT false,
	link_previews_enabled       BOOLEAN NOT NULL DEFAULT false,
	note_to_self_archived       BOOLEAN NOT NULL DEFAULT false,
	note_to_self_forced_unread  BOOLEAN NOT NULL DEFAULT false,
	note_to_self_mute_until     BIGINT NOT NULL DEFAULT 0,
	unknown_fields              BLOB
);`

	ddlUnknownRecords = `
CREATE TABLE IF NOT EXISTS unknown_records (
	storage_id_raw BLOB PRIMARY KEY,
	type_tag       TINYINT NOT NULL,
	payload        BLOB
);`
)

// DuckStore is the DuckDB-backed implementation of Store, grounded in the
// teacher's models/db.go (sql.Open("duckdb", ...), package-level mutex
// guarding writes).
type DuckStore struct {
	db *sql.DB
	mu sync.Mutex // single local-store writer at a time, §5 Shared resources
}

// Open opens (creating if absent) a DuckDB file at path and migrates it.
// An empty path opens an in-memory database, used by tests.
func Open(path string) (*DuckStore, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, serr.Wrap(err, "failed to open duckdb database")
	}
	s := &DuckStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *DuckStore) migrate() error {
	for _, ddl := range []string{ddlSyncState, ddlContacts, ddlGroupV1, ddlGroupV2, ddlAccount, ddlUnknownRecords} {
		if _, err := s.db.Exec(ddl); err != nil {
			return serr.Wrap(err, "failed to run migration")
		}
	}
	if _, err := s.db.Exec(`INSERT INTO sync_state (id, manifest_version) VALUES (1, 0) ON CONFLICT DO NOTHING`); err != nil {
		return serr.Wrap(err, "failed to seed sync_state")
	}
	if _, err := s.db.Exec(`INSERT INTO account (id) VALUES (1) ON CONFLICT DO NOTHING`); err != nil {
		return serr.Wrap(err, "failed to seed account row")
	}
	return nil
}

// Close releases the underlying database handle.
func (s *DuckStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *DuckStore) ManifestVersion(ctx context.Context) (uint64, error) {
	return manifestVersion(ctx, s.db)
}

func (s *DuckStore) SetManifestVersion(ctx context.Context, v uint64) error {
	return setManifestVersion(ctx, s.db, v)
}

func (s *DuckStore) GetAllLocalStorageIDs(ctx context.Context) ([]storageid.ID, error) {
	return getAllLocalStorageIDs(ctx, s.db)
}

func (s *DuckStore) GetBySemanticKey(ctx context.Context, t storageid.RecordType, key string) (record.Record, bool, error) {
	return getBySemanticKey(ctx, s.db, t, key)
}

func (s *DuckStore) GetByStorageID(ctx context.Context, id storageid.ID) (record.Record, bool, error) {
	return getByStorageID(ctx, s.db, id)
}

func (s *DuckStore) InsertRecord(ctx context.Context, r record.Record) error {
	return insertRecord(ctx, s.db, r)
}

func (s *DuckStore) UpdateRecord(ctx context.Context, old, new record.Record) error {
	return updateRecord(ctx, s.db, old, new)
}

func (s *DuckStore) InsertUnknownRecords(ctx context.Context, recs []record.UnknownRecord) error {
	return insertUnknownRecords(ctx, s.db, recs)
}

func (s *DuckStore) DeleteUnknownRecords(ctx context.Context, ids []storageid.ID) error {
	return deleteUnknownRecords(ctx, s.db, ids)
}

func (s *DuckStore) GetAllUnknownStorageIDs(ctx context.Context) ([]storageid.ID, error) {
	return getAllUnknownStorageIDs(ctx, s.db)
}

func (s *DuckStore) GetPendingInsertions(ctx context.Context, t storageid.RecordType) ([]record.Record, error) {
	return pendingInsertions(ctx, s.db, t)
}

func (s *DuckStore) GetPendingUpdates(ctx context.Context, t storageid.RecordType) ([]record.Record, error) {
	return pendingUpdates(ctx, s.db, t)
}

func (s *DuckStore) GetPendingDeletions(ctx context.Context, t storageid.RecordType) ([]storageid.ID, error) {
	return pendingDeletions(ctx, s.db, t)
}

func (s *DuckStore) GetPendingAccountChange(ctx context.Context) (record.AccountRecord, DirtyState, bool, error) {
	return getPendingAccountChange(ctx, s.db)
}

func (s *DuckStore) ClearDirtyState(ctx context.Context, ids []storageid.ID) error {
	return clearDirtyState(ctx, s.db, ids)
}

func (s *DuckStore) UpdateStorageIDs(ctx context.Context, rotations map[RowRef]storageid.ID) error {
	return updateStorageIDs(ctx, s.db, rotations)
}

func (s *DuckStore) WithTransaction(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return serr.Wrap(err, "failed to begin local transaction")
	}

	dtx := &duckTx{tx: tx}
	if err := fn(dtx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			logger.LogErr(rerr, "failed to roll back local transaction after error")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return serr.Wrap(err, "failed to commit local transaction")
	}
	return nil
}

// duckTx is the Tx view over an open *sql.Tx. It implements Store (hence
// Tx) by delegating to the same shared helper functions DuckStore uses,
// parameterized on the queryer interface instead of a concrete *sql.DB.
type duckTx struct {
	tx *sql.Tx
}

func (t *duckTx) ManifestVersion(ctx context.Context) (uint64, error) {
	return manifestVersion(ctx, t.tx)
}

func (t *duckTx) SetManifestVersion(ctx context.Context, v uint64) error {
	return setManifestVersion(ctx, t.tx, v)
}

func (t *duckTx) GetAllLocalStorageIDs(ctx context.Context) ([]storageid.ID, error) {
	return getAllLocalStorageIDs(ctx, t.tx)
}

func (t *duckTx) GetBySemanticKey(ctx context.Context, typ storageid.RecordType, key string) (record.Record, bool, error) {
	return getBySemanticKey(ctx, t.tx, typ, key)
}

func (t *duckTx) GetByStorageID(ctx context.Context, id storageid.ID) (record.Record, bool, error) {
	return getByStorageID(ctx, t.tx, id)
}

func (t *duckTx) InsertRecord(ctx context.Context, r record.Record) error {
	return insertRecord(ctx, t.tx, r)
}

func (t *duckTx) UpdateRecord(ctx context.Context, old, new record.Record) error {
	return updateRecord(ctx, t.tx, old, new)
}

func (t *duckTx) InsertUnknownRecords(ctx context.Context, recs []record.UnknownRecord) error {
	return insertUnknownRecords(ctx, t.tx, recs)
}

func (t *duckTx) DeleteUnknownRecords(ctx context.Context, ids []storageid.ID) error {
	return deleteUnknownRecords(ctx, t.tx, ids)
}

func (t *duckTx) GetAllUnknownStorageIDs(ctx context.Context) ([]storageid.ID, error) {
	return getAllUnknownStorageIDs(ctx, t.tx)
}

func (t *duckTx) GetPendingInsertions(ctx context.Context, typ storageid.RecordType) ([]record.Record, error) {
	return pendingInsertions(ctx, t.tx, typ)
}

func (t *duckTx) GetPendingUpdates(ctx context.Context, typ storageid.RecordType) ([]record.Record, error) {
	return pendingUpdates(ctx, t.tx, typ)
}

func (t *duckTx) GetPendingDeletions(ctx context.Context, typ storageid.RecordType) ([]storageid.ID, error) {
	return pendingDeletions(ctx, t.tx, typ)
}

func (t *duckTx) GetPendingAccountChange(ctx context.Context) (record.AccountRecord, DirtyState, bool, error) {
	return getPendingAccountChange(ctx, t.tx)
}

func (t *duckTx) ClearDirtyState(ctx context.Context, ids []storageid.ID) error {
	return clearDirtyState(ctx, t.tx, ids)
}

func (t *duckTx) UpdateStorageIDs(ctx context.Context, rotations map[RowRef]storageid.ID) error {
	return updateStorageIDs(ctx, t.tx, rotations)
}

// WithTransaction is not supported on an already-open transaction; nesting
// would blur the "no network I/O inside the transaction" boundary this
// engine depends on (§5).
func (t *duckTx) WithTransaction(ctx context.Context, fn func(tx Tx) error) error {
	return serr.New("nested local transactions are not supported")
}
