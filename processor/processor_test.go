package processor_test

import (
	"testing"

	"storagesync/processor"
	"storagesync/record"
	"storagesync/storageid"
)

// fakeProcessor is an in-memory RecordProcessor double used to exercise
// processor.Process without a local store. Local rows are keyed by
// SemanticKey(), mirroring how the real per-kind processors look records up.
type fakeProcessor struct {
	local   map[string]record.Record
	invalid map[string]bool // semantic keys to reject as invalid
	updated map[string]record.Record
	inserts []record.Record
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{
		local:   make(map[string]record.Record),
		invalid: make(map[string]bool),
		updated: make(map[string]record.Record),
	}
}

func (f *fakeProcessor) IsInvalid(remote record.Record) bool {
	return f.invalid[remote.SemanticKey()]
}

func (f *fakeProcessor) GetMatching(remote record.Record) (record.Record, bool, error) {
	local, ok := f.local[remote.SemanticKey()]
	return local, ok, nil
}

func (f *fakeProcessor) Merge(remote, local record.Record) record.Record {
	r := remote.(record.ContactRecord)
	l := local.(record.ContactRecord)
	return record.ContactRecord{
		StorageID:             r.StorageID,
		ServiceAddress:        r.ServiceAddress,
		Blocked:               r.Blocked || l.Blocked,
		ProfileSharingEnabled: r.ProfileSharingEnabled || l.ProfileSharingEnabled,
		Archived:              r.Archived || l.Archived,
		ForcedUnread:          r.ForcedUnread || l.ForcedUnread,
		MuteUntil:             maxI64(r.MuteUntil, l.MuteUntil),
		UnknownFieldsBlob:     r.UnknownFieldsBlob,
	}
}

func maxI64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func (f *fakeProcessor) InsertLocal(remote record.Record) error {
	f.local[remote.SemanticKey()] = remote
	f.inserts = append(f.inserts, remote)
	return nil
}

func (f *fakeProcessor) UpdateLocal(old, new record.Record) error {
	f.updated[old.SemanticKey()] = new
	f.local[old.SemanticKey()] = new
	return nil
}

func (f *fakeProcessor) Compare(a, b record.Record) int {
	ka, kb := a.SemanticKey(), b.SemanticKey()
	switch {
	case ka == kb:
		return 0
	case ka < kb:
		return -1
	default:
		return 1
	}
}

func TestProcess_InvalidRecordRoutesToDelete(t *testing.T) {
	fp := newFakeProcessor()
	remote := record.ContactRecord{ServiceAddress: "bad"}
	fp.invalid["bad"] = true

	result, err := processor.Process([]record.Record{remote}, fp, storageid.NewKeyGenerator())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(result.RemoteDeletes) != 1 {
		t.Fatalf("RemoteDeletes = %d, want 1", len(result.RemoteDeletes))
	}
	if len(result.RemoteUpdates) != 0 {
		t.Fatal("an invalid record must never produce an update")
	}
}

func TestProcess_NoLocalMatchInsertsLocally(t *testing.T) {
	fp := newFakeProcessor()
	remote := record.ContactRecord{ServiceAddress: "new-contact", Blocked: true}

	result, err := processor.Process([]record.Record{remote}, fp, storageid.NewKeyGenerator())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !result.IsLocalOnly() {
		t.Fatal("a fresh insert with no prior local row must be local-only")
	}
	if len(fp.inserts) != 1 {
		t.Fatalf("expected exactly one local insert, got %d", len(fp.inserts))
	}
}

func TestProcess_MergeEqualsRemoteProducesNoRemoteWrite(t *testing.T) {
	fp := newFakeProcessor()
	local := record.ContactRecord{ServiceAddress: "k", Blocked: true}
	fp.local["k"] = local

	remote := record.ContactRecord{ServiceAddress: "k", Blocked: true}
	result, err := processor.Process([]record.Record{remote}, fp, storageid.NewKeyGenerator())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !result.IsLocalOnly() {
		t.Fatal("when the merge equals remote verbatim, no remote write is needed")
	}
}

func TestProcess_MergeDiffersProducesNewStorageID(t *testing.T) {
	fp := newFakeProcessor()
	local := record.ContactRecord{ServiceAddress: "k", Blocked: true, MuteUntil: 0}
	fp.local["k"] = local

	remote := record.ContactRecord{ServiceAddress: "k", Blocked: false, MuteUntil: 100}
	result, err := processor.Process([]record.Record{remote}, fp, storageid.NewKeyGenerator())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(result.RemoteUpdates) != 1 {
		t.Fatalf("RemoteUpdates = %d, want 1 (merge differs from both remote and local)", len(result.RemoteUpdates))
	}
	upd := result.RemoteUpdates[0]
	if upd.New.ID().IsZero() {
		t.Fatal("a merge producing a new record must carry a freshly minted StorageId")
	}
	merged := upd.New.(record.ContactRecord)
	if !merged.Blocked {
		t.Fatal("OR-merge must keep Blocked true if either side set it")
	}
	if merged.MuteUntil != 100 {
		t.Fatalf("max-merge MuteUntil = %d, want 100", merged.MuteUntil)
	}
}

func TestProcess_DuplicateRemoteRecordsCoalesceToOneLocalEntity(t *testing.T) {
	fp := newFakeProcessor()
	local := record.ContactRecord{ServiceAddress: "k", Blocked: false, MuteUntil: 50}
	fp.local["k"] = local

	first := record.ContactRecord{ServiceAddress: "k", Blocked: true}
	second := record.ContactRecord{ServiceAddress: "k", Blocked: true, Archived: true}

	result, err := processor.Process([]record.Record{first, second}, fp, storageid.NewKeyGenerator())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(result.RemoteDeletes) != 1 {
		t.Fatalf("RemoteDeletes = %d, want 1 (second duplicate coalesced away)", len(result.RemoteDeletes))
	}
	if len(result.RemoteUpdates) != 1 {
		t.Fatalf("RemoteUpdates = %d, want 1 (only the first-seen record produces a write)", len(result.RemoteUpdates))
	}
}

type erroringProcessor struct {
	*fakeProcessor
}

func (e erroringProcessor) GetMatching(remote record.Record) (record.Record, bool, error) {
	return nil, false, errGetMatching
}

var errGetMatching = errString("boom")

type errString string

func (e errString) Error() string { return string(e) }

func TestProcess_PropagatesGetMatchingError(t *testing.T) {
	ep := erroringProcessor{newFakeProcessor()}
	ep.local["k"] = record.ContactRecord{ServiceAddress: "k"}

	remote := record.ContactRecord{ServiceAddress: "k"}
	_, err := processor.Process([]record.Record{remote}, ep, storageid.NewKeyGenerator())
	if err == nil {
		t.Fatal("Process must propagate a GetMatching error rather than swallow it")
	}
}
