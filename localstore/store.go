// Package localstore defines the contract the sync engine consumes from the
// client's local database: manifest version persistence, per-type record
// matchers, dirty-flag bookkeeping, and a transaction boundary that the
// orchestrator uses to make the merge step atomic (§6). The engine does not
// own the schema; this package's DuckDB-backed Store is one concrete
// implementation of the contract, grounded in the teacher's db.go.
package localstore

import (
	"context"

	"storagesync/record"
	"storagesync/storageid"
)

// DirtyState mirrors §3's Local Row dirty flag.
type DirtyState int

const (
	Clean DirtyState = iota
	PendingInsert
	PendingUpdate
	PendingDelete
)

// RowRef identifies a local row independent of its (rotating) StorageId —
// by record type plus semantic key — so storage-id rotations can be
// applied in bulk after a push succeeds (§6 updateStorageIds).
type RowRef struct {
	Type        storageid.RecordType
	SemanticKey string
}

// Store is the local-store contract the sync engine consumes. One method
// per concern is parameterized by storageid.RecordType rather than
// generating five near-identical methods per concern (GetPendingContactXxx,
// GetPendingGroupV1Xxx, ...) — behaviorally "per type" as §6 specifies,
// implemented as one dispatching method per concern (see DESIGN.md).
type Store interface {
	// ManifestVersion returns the persisted scalar storageManifestVersion
	// (§6), default 0.
	ManifestVersion(ctx context.Context) (uint64, error)
	SetManifestVersion(ctx context.Context, v uint64) error

	// GetAllLocalStorageIDs concatenates per-type local ID lists plus the
	// Account ID plus Unknown-type IDs (§4.4 step 3).
	GetAllLocalStorageIDs(ctx context.Context) ([]storageid.ID, error)

	// GetBySemanticKey looks up a local row of type t by its stable
	// semantic key, re-projected into Record form. Used by processors'
	// GetMatching.
	GetBySemanticKey(ctx context.Context, t storageid.RecordType, key string) (record.Record, bool, error)

	// GetByStorageID looks up a local row by its current StorageId.
	// Returns found=false if no row carries that id — the orchestrator
	// treats that as errkind.ErrMissingLocalModel during materialisation.
	GetByStorageID(ctx context.Context, id storageid.ID) (record.Record, bool, error)

	// InsertRecord writes a brand new local row for a remote record that
	// had no local match (processor.InsertLocal). The row is inserted
	// Clean — it was just synced from the server, not locally edited.
	InsertRecord(ctx context.Context, r record.Record) error

	// UpdateRecord applies merged attributes to the local row with the
	// semantic key new shares with old, rotating it to new.ID(). The row is
	// matched by semantic key, not by old.ID(). Written Clean for the same
	// reason as InsertRecord.
	UpdateRecord(ctx context.Context, old, new record.Record) error

	// Unknown-record bulk bookkeeping (§4.4 step 7): these are never
	// matched, merged, or individually updated — only carried forward.
	InsertUnknownRecords(ctx context.Context, recs []record.UnknownRecord) error
	DeleteUnknownRecords(ctx context.Context, ids []storageid.ID) error
	GetAllUnknownStorageIDs(ctx context.Context) ([]storageid.ID, error)

	// GetPendingInsertions returns local rows of type t with dirty flag
	// PendingInsert — human edits not yet reflected on the server. Rows
	// carry no StorageId yet; the caller mints one before pushing.
	GetPendingInsertions(ctx context.Context, t storageid.RecordType) ([]record.Record, error)
	// GetPendingUpdates returns local rows of type t with dirty flag
	// PendingUpdate, carrying their current (pre-rotation) StorageId.
	GetPendingUpdates(ctx context.Context, t storageid.RecordType) ([]record.Record, error)
	// GetPendingDeletions returns the StorageIds of local rows of type t
	// with dirty flag PendingDelete.
	GetPendingDeletions(ctx context.Context, t storageid.RecordType) ([]storageid.ID, error)
	// GetPendingAccountChange returns the singleton account row's pending
	// change, if any (found=false when Clean).
	GetPendingAccountChange(ctx context.Context) (rec record.AccountRecord, state DirtyState, found bool, err error)

	// ClearDirtyState marks rows backing the given StorageIds as Clean;
	// rows whose flag is PendingDelete are deleted instead. Called only after their contributing push succeeds (§5 ordering
	// guarantees).
	ClearDirtyState(ctx context.Context, ids []storageid.ID) error

	// UpdateStorageIDs applies storage-id rotations discovered while
	// building a push (fresh IDs minted for pending inserts/updates) back
	// onto the rows identified by RowRef, once the push has succeeded.
	UpdateStorageIDs(ctx context.Context, rotations map[RowRef]storageid.ID) error

	// WithTransaction runs fn inside a local database transaction,
	// committing iff fn returns nil. No method reachable through tx may
	// perform network I/O — that invariant is enforced by construction:
	// Tx exposes only this package's local-store surface, never a remote
	// client (§5 Suspension points).
	WithTransaction(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the local-store surface available inside a transaction. It is
// identical to Store by design — every local mutation is transactable —
// but kept as a distinct named type so call sites make the transaction
// boundary visible in signatures (e.g. processor construction takes a Tx,
// not a bare Store, while running inside §4.4 steps 7-8).
type Tx interface {
	Store
}
