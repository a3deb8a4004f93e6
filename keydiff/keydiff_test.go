package keydiff_test

import (
	"testing"

	"storagesync/keydiff"
	"storagesync/storageid"
)

func id(tp storageid.RecordType, b byte) storageid.ID {
	var i storageid.ID
	i.Type = tp
	i.Raw[0] = b
	return i
}

func TestCompute_RemoteOnlyAndLocalOnly(t *testing.T) {
	shared := id(storageid.RecordTypeContact, 1)
	remoteOnly := id(storageid.RecordTypeContact, 2)
	localOnly := id(storageid.RecordTypeContact, 3)

	diff := keydiff.Compute(
		[]storageid.ID{shared, remoteOnly},
		[]storageid.ID{shared, localOnly},
	)

	if len(diff.RemoteOnly) != 1 || !diff.RemoteOnly[0].Equal(remoteOnly) {
		t.Fatalf("RemoteOnly = %v, want [%v]", diff.RemoteOnly, remoteOnly)
	}
	if len(diff.LocalOnly) != 1 || !diff.LocalOnly[0].Equal(localOnly) {
		t.Fatalf("LocalOnly = %v, want [%v]", diff.LocalOnly, localOnly)
	}
	if diff.HasTypeMismatches {
		t.Fatal("no type mismatch should be detected when types are consistent")
	}
	if diff.IsEmpty() {
		t.Fatal("a diff with remote-only/local-only entries must not be IsEmpty")
	}
}

func TestCompute_IsEmptyWhenSetsMatch(t *testing.T) {
	shared := id(storageid.RecordTypeAccount, 9)
	diff := keydiff.Compute([]storageid.ID{shared}, []storageid.ID{shared})
	if !diff.IsEmpty() {
		t.Fatal("identical remote and local sets must produce an empty diff")
	}
}

func TestCompute_DetectsRawByteTypeMismatch(t *testing.T) {
	remote := []storageid.ID{id(storageid.RecordTypeContact, 5)}
	local := []storageid.ID{id(storageid.RecordTypeGroupV1, 5)}

	diff := keydiff.Compute(remote, local)
	if !diff.HasTypeMismatches {
		t.Fatal("same raw bytes tagged with two different types must be flagged as a mismatch")
	}
	if diff.IsEmpty() {
		t.Fatal("a diff with a type mismatch must never be IsEmpty")
	}
}

func TestCompute_NoMismatchAcrossDistinctRawBytes(t *testing.T) {
	remote := []storageid.ID{id(storageid.RecordTypeContact, 1)}
	local := []storageid.ID{id(storageid.RecordTypeGroupV1, 2)}

	diff := keydiff.Compute(remote, local)
	if diff.HasTypeMismatches {
		t.Fatal("distinct raw bytes under different types is not a mismatch")
	}
}

func TestSemanticKeyTypeMismatch_DetectsCollision(t *testing.T) {
	pairs := []keydiff.SemanticKeyTypePair{
		{SemanticKey: "shared-key", Type: storageid.RecordTypeContact},
		{SemanticKey: "shared-key", Type: storageid.RecordTypeGroupV1},
	}
	if !keydiff.SemanticKeyTypeMismatch(pairs) {
		t.Fatal("the same semantic key under two record types must be reported as a mismatch")
	}
}

func TestSemanticKeyTypeMismatch_IgnoresEmptyKeys(t *testing.T) {
	pairs := []keydiff.SemanticKeyTypePair{
		{SemanticKey: "", Type: storageid.RecordTypeUnknown},
		{SemanticKey: "", Type: storageid.RecordTypeUnknown},
	}
	if keydiff.SemanticKeyTypeMismatch(pairs) {
		t.Fatal("empty semantic keys (e.g. from unknown records) must never trigger a mismatch")
	}
}

func TestSemanticKeyTypeMismatch_NoFalsePositiveOnRepeatedConsistentKey(t *testing.T) {
	pairs := []keydiff.SemanticKeyTypePair{
		{SemanticKey: "k", Type: storageid.RecordTypeContact},
		{SemanticKey: "k", Type: storageid.RecordTypeContact},
	}
	if keydiff.SemanticKeyTypeMismatch(pairs) {
		t.Fatal("the same key repeated under the same type must not be flagged")
	}
}
