// Package orchestrator implements C4, the Sync Orchestrator: the full
// pull-merge-push cycle described in spec §4.4, including the local
// transaction boundary, conflict handling, and force-push escalation.
package orchestrator

import (
	"context"
	"strconv"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/serr"

	"storagesync/errkind"
	"storagesync/keydiff"
	"storagesync/localstore"
	"storagesync/manifest"
	"storagesync/processor"
	"storagesync/record"
	"storagesync/remote"
	"storagesync/storageid"
	"storagesync/writeop"
)

// matchableTypes are the record kinds with a RecordProcessor (§4.2);
// Unknown is handled separately in bulk (processor.ApplyUnknown).
var matchableTypes = []storageid.RecordType{
	storageid.RecordTypeContact,
	storageid.RecordTypeGroupV1,
	storageid.RecordTypeGroupV2,
	storageid.RecordTypeAccount,
}

// Deps are the collaborators one Sync invocation needs.
type Deps struct {
	Store      localstore.Store
	Remote     remote.StorageClient
	KeyGen     *storageid.KeyGenerator
	AccountKey string
}

// ForcePushRequest is the contract handed to a caller when needsForcePush
// was set during a cycle (§4.4 step 11). Scheduling and running the actual
// force-push job is out of scope for this subsystem (§1); this value gives
// the signal a concrete home instead of being silently dropped.
type ForcePushRequest struct {
	AccountKey string
	Reason     string
}

// Outcome is what a completed Sync invocation reports back (§4.4 step 12,
// terminal state Done).
type Outcome struct {
	NeedsMultiDeviceSync bool
	ForcePush            *ForcePushRequest
}

// Sync runs one full pull-merge-push cycle. A non-nil error should be
// classified with errkind.Classify to decide the caller's disposition —
// DispositionSkip and DispositionRetryLater are expected, routine outcomes,
// not crashes.
func Sync(ctx context.Context, deps Deps) (Outcome, error) {
	if deps.AccountKey == "" {
		// No root storageKey: client isn't registered yet (§4.4
		// Preconditions). NotReady is a silent skip, not an error.
		return Outcome{}, nil
	}

	var needsForcePush bool
	var needsMultiDevice bool

	// Step 1: read localVersion.
	localVersion, err := deps.Store.ManifestVersion(ctx)
	if err != nil {
		return Outcome{}, serr.Wrap(err, "failed to read local manifest version")
	}

	// Step 2: fetch remote manifest iff newer.
	remoteManifest, err := deps.Remote.GetManifestIfDifferent(ctx, deps.AccountKey, localVersion)
	if err != nil {
		return Outcome{}, classifyRemoteErr(err, "failed to fetch remote manifest")
	}

	if remoteManifest != nil {
		mergeNeedsMultiDevice, err := runMergeCycle(ctx, deps, *remoteManifest, &needsForcePush)
		if err != nil {
			return Outcome{}, err
		}
		needsMultiDevice = needsMultiDevice || mergeNeedsMultiDevice
	}

	// Step 10: push local pending changes.
	localPushNeedsMultiDevice, err := runLocalPush(ctx, deps)
	if err != nil {
		return Outcome{}, err
	}
	needsMultiDevice = needsMultiDevice || localPushNeedsMultiDevice

	outcome := Outcome{NeedsMultiDeviceSync: needsMultiDevice}
	if needsForcePush {
		// Step 11: the actual force-push job is external to this
		// subsystem (§1); we only surface the request.
		outcome.ForcePush = &ForcePushRequest{
			AccountKey: deps.AccountKey,
			Reason:     "key difference or missing-record inconsistency detected during sync",
		}
		logger.Warn("storagesync: force-push recommended", "account", deps.AccountKey)
	}
	return outcome, nil
}

// runMergeCycle implements §4.4 steps 3-9: compute the key difference,
// fetch and merge remote-only records inside a local transaction, then
// push the merged result after the transaction commits.
func runMergeCycle(ctx context.Context, deps Deps, remoteManifest manifest.Manifest, needsForcePush *bool) (needsMultiDevice bool, err error) {
	// Step 3.
	localIDsBefore, err := deps.Store.GetAllLocalStorageIDs(ctx)
	if err != nil {
		return false, serr.Wrap(err, "failed to list local storage ids")
	}

	// Step 4.
	diff := keydiff.Compute(remoteManifest.StorageIDs, localIDsBefore)
	if diff.HasTypeMismatches {
		*needsForcePush = true
	}

	// Step 5: short-circuit.
	if diff.IsEmpty() {
		if err := deps.Store.SetManifestVersion(ctx, remoteManifest.Version); err != nil {
			return false, serr.Wrap(err, "failed to persist remote manifest version")
		}
		return false, nil
	}

	// Step 6: fetch remote-only records. All network reads finish before
	// the transaction opens (§5 Suspension points).
	fetched, err := deps.Remote.ReadRecords(ctx, deps.AccountKey, diff.RemoteOnly)
	if err != nil {
		return false, classifyRemoteErr(err, "failed to fetch remote-only records")
	}
	if len(fetched) < len(diff.RemoteOnly) {
		// Server inconsistency: some requested ids were silently omitted.
		*needsForcePush = true
	}

	// Step 7: partition by type.
	batches := make(map[storageid.RecordType][]record.Record)
	var unknownInserts []record.UnknownRecord
	for _, r := range fetched {
		if u, ok := r.(record.UnknownRecord); ok {
			unknownInserts = append(unknownInserts, u)
			continue
		}
		batches[r.Type()] = append(batches[r.Type()], r)
	}

	unknownDeletes := localOnlyOfType(diff.LocalOnly, storageid.RecordTypeUnknown)

	var mergeWrite writeop.Result
	err = deps.Store.WithTransaction(ctx, func(tx localstore.Tx) error {
		results := make(map[storageid.RecordType]processor.Result, len(matchableTypes))
		for _, t := range matchableTypes {
			batch := batches[t]
			if len(batch) == 0 {
				continue
			}
			proc, err := processor.For(t, tx, ctx)
			if err != nil {
				return err
			}
			res, err := processor.Process(batch, proc, deps.KeyGen)
			if err != nil {
				return err
			}
			for _, u := range res.RemoteUpdates {
				if d := processor.AuditDiff(u.Old, u.New); d != "" {
					logger.Debug("storagesync: merge changed a record", "type", t.String(), "diff", d)
				}
			}
			results[t] = res
		}

		// §4.1's semantic-key half of HasTypeMismatches: the raw-byte pass
		// in keydiff.Compute can't see this because it only knows opaque
		// StorageId bytes, not decoded semantic keys. Now that every
		// matchable type's batch has run, fold the (semanticKey, type)
		// pairs seen across remote-only records and their local matches
		// into the same needsForcePush signal.
		var semPairs []keydiff.SemanticKeyTypePair
		for _, res := range results {
			semPairs = append(semPairs, res.SemanticKeys...)
		}
		if keydiff.SemanticKeyTypeMismatch(semPairs) {
			*needsForcePush = true
		}

		if err := processor.ApplyUnknown(ctx, tx, unknownInserts, unknownDeletes); err != nil {
			return serr.Wrap(err, "failed to apply unknown record bulk changes")
		}

		localIDsAfter, err := tx.GetAllLocalStorageIDs(ctx)
		if err != nil {
			return serr.Wrap(err, "failed to re-list local storage ids after merge")
		}

		mergeWrite = writeop.Build(remoteManifest, results, localIDsAfter)

		// Step 8: reconcile post-merge leftovers.
		diff2 := keydiff.Compute(remoteManifest.StorageIDs, mergeWrite.Manifest.StorageIDs)
		insertedAlready := make(map[string]struct{}, len(mergeWrite.Inserts))
		for _, r := range mergeWrite.Inserts {
			insertedAlready[idKey(r.ID())] = struct{}{}
		}
		var clearIDs []storageid.ID
		for _, id := range diff2.LocalOnly {
			if _, ok := insertedAlready[idKey(id)]; ok {
				continue
			}
			rec, found, err := tx.GetByStorageID(ctx, id)
			if err != nil {
				return serr.Wrap(err, "failed to materialise local-only record")
			}
			if !found {
				return serr.Wrap(errkind.ErrMissingLocalModel, "manifest references a local storage id with no backing row: "+id.String())
			}
			if g, ok := rec.(record.GroupV2Record); ok && len(g.MasterKey) == 0 {
				return serr.Wrap(errkind.ErrMissingGv2MasterKey, "groupV2 row missing master key during materialisation")
			}
			mergeWrite.Inserts = append(mergeWrite.Inserts, rec)
			clearIDs = append(clearIDs, id)
		}
		deletedAlready := make(map[string]struct{}, len(mergeWrite.Deletes))
		for _, id := range mergeWrite.Deletes {
			deletedAlready[idKey(id)] = struct{}{}
		}
		for _, id := range diff2.RemoteOnly {
			if _, ok := deletedAlready[idKey(id)]; ok {
				continue
			}
			mergeWrite.Deletes = append(mergeWrite.Deletes, id)
		}

		if len(clearIDs) > 0 {
			if err := tx.ClearDirtyState(ctx, clearIDs); err != nil {
				return serr.Wrap(err, "failed to clear dirty state for materialised rows")
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	// Step 9: push the merge result. No network I/O occurred inside the
	// transaction above; this call happens strictly after commit (§5).
	if !mergeWrite.IsEmpty() {
		if err := writeop.Validate(remoteManifest, mergeWrite, *needsForcePush); err != nil {
			return false, serr.Wrap(errkind.ErrValidation, err.Error())
		}
		conflict, err := deps.Remote.WriteRecords(ctx, deps.AccountKey, mergeWrite.Manifest, mergeWrite.Inserts, mergeWrite.Deletes)
		if err != nil {
			return false, classifyRemoteErr(err, "failed to push merged write operation")
		}
		if conflict != nil {
			return false, serr.Wrap(errkind.ErrRemoteConflict, "storage service rejected merge push: version moved to "+versionString(conflict.Version))
		}
		if err := deps.Store.SetManifestVersion(ctx, mergeWrite.Manifest.Version); err != nil {
			return false, serr.Wrap(err, "failed to persist merged manifest version")
		}
		needsMultiDevice = true
	} else {
		// Nothing needed pushing (e.g. a pure remote-only pull materialised
		// locally without producing a write), but the local copy still needs
		// to record that it has caught up to remoteManifest.
		if err := deps.Store.SetManifestVersion(ctx, remoteManifest.Version); err != nil {
			return false, serr.Wrap(err, "failed to persist remote manifest version")
		}
	}

	return needsMultiDevice, nil
}

func idKey(id storageid.ID) string {
	return id.String()
}

func localOnlyOfType(ids []storageid.ID, t storageid.RecordType) []storageid.ID {
	var out []storageid.ID
	for _, id := range ids {
		if id.Type == t {
			out = append(out, id)
		}
	}
	return out
}

// classifyRemoteErr wraps err with the Network kind unless it already
// carries a more specific errkind sentinel (e.g. Cancelled).
func classifyRemoteErr(err error, msg string) error {
	if errkind.Classify(err) != errkind.DispositionFatal {
		return serr.Wrap(err, msg)
	}
	return serr.Wrap(errkind.ErrNetwork, msg+": "+err.Error())
}

func versionString(v uint64) string {
	return strconv.FormatUint(v, 10)
}
