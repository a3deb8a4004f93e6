package orchestrator

import (
	"context"

	"github.com/rohanthewiz/serr"

	"storagesync/errkind"
	"storagesync/localstore"
	"storagesync/manifest"
	"storagesync/storageid"
	"storagesync/writeop"
)

// localChangeTypes are the per-type tables the dirty-flag scan covers.
// Account is handled separately since it is a singleton row, not a table
// of many rows keyed by semantic key.
var localChangeTypes = []storageid.RecordType{
	storageid.RecordTypeContact,
	storageid.RecordTypeGroupV1,
	storageid.RecordTypeGroupV2,
}

// runLocalPush implements §4.4 step 10: collect local pending changes,
// build a WriteOperationResult for them, and push it if non-empty.
func runLocalPush(ctx context.Context, deps Deps) (needsMultiDevice bool, err error) {
	localVersion, err := deps.Store.ManifestVersion(ctx)
	if err != nil {
		return false, serr.Wrap(err, "failed to read local manifest version before local push")
	}
	baseIDs, err := deps.Store.GetAllLocalStorageIDs(ctx)
	if err != nil {
		return false, serr.Wrap(err, "failed to list local storage ids before local push")
	}

	var result writeop.Result

	rotations := make(map[localstore.RowRef]storageid.ID)
	var clearIDs []storageid.ID
	nextIDs := make(map[string]storageid.ID, len(baseIDs))
	for _, id := range baseIDs {
		nextIDs[idKey(id)] = id
	}

	for _, t := range localChangeTypes {
		inserts, err := deps.Store.GetPendingInsertions(ctx, t)
		if err != nil {
			return false, serr.Wrap(err, "failed to list pending insertions")
		}
		for _, rec := range inserts {
			newID, err := deps.KeyGen.Generate(t)
			if err != nil {
				return false, serr.Wrap(err, "failed to mint storage id for pending insertion")
			}
			newRec := rec.WithID(newID)
			result.Inserts = append(result.Inserts, newRec)
			rotations[localstore.RowRef{Type: t, SemanticKey: rec.SemanticKey()}] = newID
			clearIDs = append(clearIDs, newID)
			nextIDs[idKey(newID)] = newID
		}

		updates, err := deps.Store.GetPendingUpdates(ctx, t)
		if err != nil {
			return false, serr.Wrap(err, "failed to list pending updates")
		}
		for _, rec := range updates {
			oldID := rec.ID()
			newID, err := deps.KeyGen.Generate(t)
			if err != nil {
				return false, serr.Wrap(err, "failed to mint storage id for pending update")
			}
			newRec := rec.WithID(newID)
			result.Inserts = append(result.Inserts, newRec)
			result.Deletes = append(result.Deletes, oldID)
			rotations[localstore.RowRef{Type: t, SemanticKey: rec.SemanticKey()}] = newID
			clearIDs = append(clearIDs, newID)
			delete(nextIDs, idKey(oldID))
			nextIDs[idKey(newID)] = newID
		}

		deletions, err := deps.Store.GetPendingDeletions(ctx, t)
		if err != nil {
			return false, serr.Wrap(err, "failed to list pending deletions")
		}
		for _, id := range deletions {
			result.Deletes = append(result.Deletes, id)
			clearIDs = append(clearIDs, id)
			delete(nextIDs, idKey(id))
		}
	}

	acct, dirty, found, err := deps.Store.GetPendingAccountChange(ctx)
	if err != nil {
		return false, serr.Wrap(err, "failed to read pending account change")
	}
	if found {
		oldID := acct.StorageID
		newID, err := deps.KeyGen.Generate(storageid.RecordTypeAccount)
		if err != nil {
			return false, serr.Wrap(err, "failed to mint storage id for pending account change")
		}
		newRec := acct.WithID(newID)
		result.Inserts = append(result.Inserts, newRec)
		if dirty == localstore.PendingUpdate && !oldID.IsZero() {
			result.Deletes = append(result.Deletes, oldID)
			delete(nextIDs, idKey(oldID))
		}
		rotations[localstore.RowRef{Type: storageid.RecordTypeAccount, SemanticKey: acct.SelfID}] = newID
		clearIDs = append(clearIDs, newID)
		nextIDs[idKey(newID)] = newID
	}

	if result.IsEmpty() {
		return false, nil
	}

	finalIDs := make([]storageid.ID, 0, len(nextIDs))
	for _, id := range nextIDs {
		finalIDs = append(finalIDs, id)
	}
	result.Manifest = manifest.Manifest{Version: localVersion}.Next(finalIDs)

	priorManifest := manifest.Manifest{Version: localVersion, StorageIDs: baseIDs}
	if err := writeop.Validate(priorManifest, result, false); err != nil {
		return false, serr.Wrap(errkind.ErrValidation, err.Error())
	}

	conflict, err := deps.Remote.WriteRecords(ctx, deps.AccountKey, result.Manifest, result.Inserts, result.Deletes)
	if err != nil {
		return false, classifyRemoteErr(err, "failed to push local pending changes")
	}
	if conflict != nil {
		return false, serr.Wrap(errkind.ErrRemoteConflict, "storage service rejected local push: version moved to "+versionString(conflict.Version))
	}

	return true, deps.Store.WithTransaction(ctx, func(tx localstore.Tx) error {
		if err := tx.UpdateStorageIDs(ctx, rotations); err != nil {
			return serr.Wrap(err, "failed to apply storage id rotations after local push")
		}
		if err := tx.ClearDirtyState(ctx, clearIDs); err != nil {
			return serr.Wrap(err, "failed to clear dirty state after local push")
		}
		if err := tx.SetManifestVersion(ctx, result.Manifest.Version); err != nil {
			return serr.Wrap(err, "failed to persist local manifest version after push")
		}
		return nil
	})
}
