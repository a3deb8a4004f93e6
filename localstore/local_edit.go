package localstore

import (
	"context"

	"github.com/rohanthewiz/serr"

	"storagesync/storageid"
)

// MarkDirty flips the dirty flag on an existing row of type t, identified by
// its semantic key, to state. This is the write path a local editing
// surface (not part of this package's sync contract) uses to originate a
// pending change — the engine only ever reads dirty flags back out through
// GetPendingInsertions/GetPendingUpdates/GetPendingDeletions.
func (s *DuckStore) MarkDirty(ctx context.Context, t storageid.RecordType, semanticKey string, state DirtyState) error {
	return markDirty(ctx, s.db, t, semanticKey, state)
}

func markDirty(ctx context.Context, q queryer, t storageid.RecordType, semanticKey string, state DirtyState) error {
	table, err := tableFor(t)
	if err != nil {
		return err
	}
	res, err := q.ExecContext(ctx, "UPDATE "+table+" SET dirty_state = ? WHERE semantic_key = ?", int(state), semanticKey)
	if err != nil {
		return serr.Wrap(err, "failed to mark row dirty")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return serr.New("no row found to mark dirty", "type", t.String(), "semanticKey", semanticKey)
	}
	return nil
}
