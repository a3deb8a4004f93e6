package processor

import (
	"context"

	"github.com/rohanthewiz/serr"

	"storagesync/localstore"
	"storagesync/storageid"
)

// For returns the RecordProcessor for t, bound to tx for the duration of
// the current sync cycle. Unknown has no processor: it bypasses Process
// entirely and is handled in bulk by the orchestrator (see unknown.go in
// this package for the bulk helpers, and §4.2's contract which only
// defines IsInvalid/GetMatching/Merge/Compare for the matchable kinds).
func For(t storageid.RecordType, tx localstore.Tx, ctx context.Context) (RecordProcessor, error) {
	switch t {
	case storageid.RecordTypeContact:
		return ContactProcessor{Tx: tx, Ctx: ctx}, nil
	case storageid.RecordTypeGroupV1:
		return GroupV1Processor{Tx: tx, Ctx: ctx}, nil
	case storageid.RecordTypeGroupV2:
		return GroupV2Processor{Tx: tx, Ctx: ctx}, nil
	case storageid.RecordTypeAccount:
		return AccountProcessor{Tx: tx, Ctx: ctx}, nil
	default:
		return nil, serr.New("no RecordProcessor for record type", "type", t.String())
	}
}
