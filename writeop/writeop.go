// Package writeop implements C3, the Write-Operation Builder: it assembles
// a single WriteOperationResult from processor outputs and validates it
// before the orchestrator is allowed to push it (§4.3).
package writeop

import (
	"github.com/go-playground/validator/v10"
	"github.com/rohanthewiz/serr"

	"storagesync/manifest"
	"storagesync/processor"
	"storagesync/record"
	"storagesync/storageid"
)

// validate is package-level like the pack's own validator.New() call sites
// (DeepReef11-gosynctasks/internal/config/config.go) — the library docs
// recommend caching one instance rather than constructing it per call.
var validate = validator.New()

// shape is the struct-tag-validated projection of a Result that Validate
// checks before the semantic passes below: a minimal well-formedness pass
// (non-zero version, non-negative counts) distinct from the cross-referential
// checks that follow, which validator's tags cannot express.
//
// Version's "required" tag rejects 0, even though §6 documents 0 as a
// legal persisted manifest version (the pre-first-sync default). That's
// safe only because Build always computes this field via manifest.Next,
// which increments the base version by at least 1 — no Result ever reaches
// Validate with Version 0.
type shape struct {
	Version uint64 `validate:"required"`
	Inserts int    `validate:"gte=0"`
	Deletes int    `validate:"gte=0"`
}

// Result is a WriteOperationResult: the next manifest plus the inserts and
// deletes needed to take the server from its prior manifest to this one.
type Result struct {
	Manifest manifest.Manifest
	Inserts  []record.Record
	Deletes  []storageid.ID
}

// IsEmpty reports whether this result carries no network write at all.
func (r Result) IsEmpty() bool {
	return len(r.Inserts) == 0 && len(r.Deletes) == 0
}

// Build assembles a Result from every type's processor.Result, the
// post-merge local storage-id list, and the base manifest the next version
// is computed from (§4.3 steps 1-4).
func Build(base manifest.Manifest, results map[storageid.RecordType]processor.Result, postMergeLocalIDs []storageid.ID) Result {
	var inserts []record.Record
	var deletes []storageid.ID

	for _, res := range results {
		for _, u := range res.RemoteUpdates {
			inserts = append(inserts, u.New)
			deletes = append(deletes, u.Old.ID())
		}
		for _, d := range res.RemoteDeletes {
			deletes = append(deletes, d.ID())
		}
	}

	return Result{
		Manifest: base.Next(postMergeLocalIDs),
		Inserts:  inserts,
		Deletes:  deletes,
	}
}

// Validate runs the mandatory pre-push checks from §4.3. When
// needsForcePush is true the checks are relaxed to the extent needed to
// still produce a minimal write — the orchestrator schedules a subsequent
// force-push regardless, so a validation failure here would only block
// forward progress without preventing eventual reconciliation.
func Validate(prior manifest.Manifest, r Result, needsForcePush bool) error {
	s := shape{Version: r.Manifest.Version, Inserts: len(r.Inserts), Deletes: len(r.Deletes)}
	if err := validate.Struct(s); err != nil {
		return serr.Wrap(err, "write operation failed struct validation")
	}

	priorSet := prior.Set()
	insertedIDs := make(map[[17]byte]struct{}, len(r.Inserts))
	for _, rec := range r.Inserts {
		insertedIDs[idKey(rec.ID())] = struct{}{}
	}

	for _, id := range r.Manifest.StorageIDs {
		if priorSet.Contains(id) {
			continue
		}
		if _, ok := insertedIDs[idKey(id)]; ok {
			continue
		}
		if needsForcePush {
			continue
		}
		return serr.New("write operation manifest references an id neither carried over nor inserted", "id", id.String())
	}

	deleteIDs := make(map[[17]byte]struct{}, len(r.Deletes))
	for _, id := range r.Deletes {
		deleteIDs[idKey(id)] = struct{}{}
	}
	for _, rec := range r.Inserts {
		if _, ok := deleteIDs[idKey(rec.ID())]; ok {
			if needsForcePush {
				continue
			}
			return serr.New("write operation id appears in both inserts and deletes", "id", rec.ID().String())
		}
	}

	seenKeys := make(map[storageid.RecordType]map[string]struct{})
	for _, rec := range r.Inserts {
		byType, ok := seenKeys[rec.Type()]
		if !ok {
			byType = make(map[string]struct{})
			seenKeys[rec.Type()] = byType
		}
		key := rec.SemanticKey()
		if key == "" {
			continue
		}
		if _, dup := byType[key]; dup {
			if needsForcePush {
				continue
			}
			return serr.New("write operation inserts two records of the same type sharing a semantic key", "type", rec.Type().String(), "key", key)
		}
		byType[key] = struct{}{}
	}

	return nil
}

func idKey(id storageid.ID) [17]byte {
	var k [17]byte
	k[0] = byte(id.Type)
	copy(k[1:], id.Raw[:])
	return k
}
