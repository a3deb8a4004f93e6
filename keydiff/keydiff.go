// Package keydiff implements C1, the Key-Difference Computer: it diffs two
// StorageId sets and classifies the result, flagging any structural
// corruption in the server's index (§4.1).
package keydiff

import "storagesync/storageid"

// KeyDifference is the result of diffing a remote and a local StorageId set.
type KeyDifference struct {
	RemoteOnly        []storageid.ID // present remotely, absent locally
	LocalOnly         []storageid.ID // present locally, absent remotely
	HasTypeMismatches bool
}

// IsEmpty reports whether both sides agree completely and no type mismatch
// was detected — the short-circuit case used by the orchestrator at §4.4
// step 5.
func (d KeyDifference) IsEmpty() bool {
	return len(d.RemoteOnly) == 0 && len(d.LocalOnly) == 0 && !d.HasTypeMismatches
}

// Compute diffs remote against local by raw-byte equality within each type,
// and flags HasTypeMismatches when the same raw identifier bytes appear in
// both sets tagged with two different RecordTypes — the server's index
// cannot tell those apart, which is a structural corruption signal that
// should trigger a force-push once the current cycle completes.
func Compute(remote, local []storageid.ID) KeyDifference {
	remoteSet := storageid.NewSet(remote)
	localSet := storageid.NewSet(local)

	diff := KeyDifference{
		RemoteOnly: remoteSet.Minus(localSet),
		LocalOnly:  localSet.Minus(remoteSet),
	}

	diff.HasTypeMismatches = hasRawByteTypeMismatch(remote, local)

	return diff
}

// hasRawByteTypeMismatch reports whether any raw-byte payload appears under
// more than one RecordType across the union of both sets. Two IDs that
// differ only by type tag are, by §3, distinct records — but their
// coexistence means the server handed us structurally inconsistent data.
func hasRawByteTypeMismatch(remote, local []storageid.ID) bool {
	seen := make(map[[16]byte]storageid.RecordType)
	check := func(id storageid.ID) bool {
		if t, ok := seen[id.Raw]; ok {
			return t != id.Type
		}
		seen[id.Raw] = id.Type
		return false
	}
	for _, id := range remote {
		if check(id) {
			return true
		}
	}
	for _, id := range local {
		if check(id) {
			return true
		}
	}
	return false
}

// SemanticKeyTypeMismatch reports whether the same semantic key appears
// under two different record types across two sets of (type, key) pairs.
// This runs as a second pass once full records are available — unlike the
// raw-byte check above, semantic keys are a property of decoded records,
// not of opaque StorageIds, so this cannot run until after the remote-only
// records have been fetched and decoded (§4.4 step 6-7). The orchestrator
// folds this into the same needsForcePush signal as HasTypeMismatches.
func SemanticKeyTypeMismatch(pairs []SemanticKeyTypePair) bool {
	seen := make(map[string]storageid.RecordType)
	for _, p := range pairs {
		if p.SemanticKey == "" {
			continue
		}
		if t, ok := seen[p.SemanticKey]; ok {
			if t != p.Type {
				return true
			}
			continue
		}
		seen[p.SemanticKey] = p.Type
	}
	return false
}

// SemanticKeyTypePair associates a decoded record's semantic key with its
// record type, input to SemanticKeyTypeMismatch.
type SemanticKeyTypePair struct {
	SemanticKey string
	Type        storageid.RecordType
}
