// Package processor implements C2, the per-record-kind validate/match/merge
// pipeline described in spec §4.2. One RecordProcessor implementation exists
// per storageid.RecordType; Process runs the five-step algorithm common to
// all of them against a batch of remote records of one kind.
package processor

import (
	"storagesync/keydiff"
	"storagesync/record"
	"storagesync/storageid"
)

// RecordProcessor is the contract every per-kind processor satisfies.
type RecordProcessor interface {
	// IsInvalid reports type-specific validity problems (bad encoding,
	// already-migrated GV1 group, self-record author mismatch, ...).
	// Invalid records are routed to remoteDeletes, never merged.
	IsInvalid(remote record.Record) bool

	// GetMatching looks up the local store by the remote record's semantic
	// key and, if found, returns the local row re-projected into record
	// form so it is directly comparable/mergeable with remote.
	GetMatching(remote record.Record) (local record.Record, found bool, err error)

	// Merge combines remote and local per the field-level policy in §4.2:
	// prefer-remote for monotonic settings, OR-merge for sticky booleans,
	// max for mute timestamps, byte-identical carry for UnknownFields.
	//
	// The returned record always carries remote's StorageId. Process
	// decides what it means with Equal: attributes equal to remote need no
	// remote write; attributes equal to local need no write at all; only
	// attributes equal to neither get a fresh StorageId from Process,
	// replacing the one Merge returned.
	Merge(remote, local record.Record) record.Record

	// InsertLocal writes a new local row for a remote record that had no
	// local match, allocating/recording its StorageId.
	InsertLocal(remote record.Record) error

	// UpdateLocal applies merged attributes to the local row backing old,
	// rotating its StorageId to new.ID().
	UpdateLocal(old, new record.Record) error

	// Compare gives a semantic-identity ordering: 0 iff a and b refer to
	// the same local entity; ties other than 0 may be broken arbitrarily
	// as long as they are stable. Process does not call Compare: it
	// detects duplicates by SemanticKey.
	Compare(a, b record.Record) int
}

// StorageRecordUpdate pairs the old (remote-side, pre-merge) record with
// the new merged record that replaces it. Old.ID() is deleted from the
// manifest, New.ID() is inserted — a paired atomic operation (§3 Lifecycle).
type StorageRecordUpdate struct {
	Old record.Record
	New record.Record
}

// Result is the outcome of processing one batch of same-kind remote
// records.
type Result struct {
	RemoteUpdates []StorageRecordUpdate
	RemoteDeletes []record.Record

	// SemanticKeys carries the (semanticKey, type) of every decoded remote
	// record this batch saw plus every local record it matched against,
	// so the orchestrator can feed them into keydiff.SemanticKeyTypeMismatch
	// once all types' batches have run (§4.1's semantic-key half of
	// hasTypeMismatches — raw StorageId bytes alone can't detect this,
	// since it only exists once records are decoded).
	SemanticKeys []keydiff.SemanticKeyTypePair
}

// IsLocalOnly reports whether this batch produced no remote-visible writes
// at all — every remote record either matched verbatim or was newly
// inserted locally with nothing to push back.
func (r Result) IsLocalOnly() bool {
	return len(r.RemoteUpdates) == 0 && len(r.RemoteDeletes) == 0
}

// Process runs the §4.2 algorithm over one batch of same-kind remote
// records, using gen to mint fresh StorageIds for any record the merge
// changes.
func Process(batch []record.Record, proc RecordProcessor, gen *storageid.KeyGenerator) (Result, error) {
	var result Result
	// matched tracks, by semantic key, which existing local rows have
	// already been merged with a remote record this batch (rows created by
	// InsertLocal are not recorded) — the map-keyed-by-semanticKey
	// re-expression of the comparator-ordered-set the original used (see
	// DESIGN.md: comparator-as-equality pun removed).
	matched := make(map[string]struct{})

	for _, remote := range batch {
		if key := remote.SemanticKey(); key != "" {
			result.SemanticKeys = append(result.SemanticKeys, keydiff.SemanticKeyTypePair{SemanticKey: key, Type: remote.Type()})
		}

		if proc.IsInvalid(remote) {
			result.RemoteDeletes = append(result.RemoteDeletes, remote)
			continue
		}

		local, found, err := proc.GetMatching(remote)
		if err != nil {
			return Result{}, err
		}
		if !found {
			if err := proc.InsertLocal(remote); err != nil {
				return Result{}, err
			}
			continue
		}
		if key := local.SemanticKey(); key != "" {
			result.SemanticKeys = append(result.SemanticKeys, keydiff.SemanticKeyTypePair{SemanticKey: key, Type: local.Type()})
		}

		merged := proc.Merge(remote, local)

		key := local.SemanticKey()
		if _, already := matched[key]; already {
			// A second remote record maps to the same local entity as one
			// already processed this batch. First-seen wins; this one is
			// dropped remotely (§4.2 step 2.e, §8 duplicate coalescing).
			result.RemoteDeletes = append(result.RemoteDeletes, remote)
			continue
		}
		matched[key] = struct{}{}

		if merged.Equal(remote) {
			// No remote write needed; still may need a local write below.
		} else if merged.Equal(local) {
			// Merged collapsed to the local value — no remote write, and
			// the local row's existing StorageId still identifies it.
		} else {
			newID, err := gen.Generate(remote.Type())
			if err != nil {
				return Result{}, err
			}
			newRecord := merged.WithID(newID)
			result.RemoteUpdates = append(result.RemoteUpdates, StorageRecordUpdate{
				Old: remote,
				New: newRecord,
			})
			merged = newRecord
		}

		if !merged.Equal(local) {
			if err := proc.UpdateLocal(local, merged); err != nil {
				return Result{}, err
			}
		}
	}

	return result, nil
}
