package processor

import (
	"fmt"

	"github.com/sergi/go-diff/diffmatchpatch"

	"storagesync/record"
)

// AuditDiff renders a human-readable unified diff between a record's old
// and new attribute snapshots, for merge audit logging. Grounded in the
// teacher's computeBodyDiff (models/note_change.go), which uses the same
// library to produce a patch between two text snapshots; here the "text"
// is each record's %+v form rather than a note body, since these records
// have no single free-text field to diff.
func AuditDiff(old, new record.Record) string {
	before := fmt.Sprintf("%+v", old)
	after := fmt.Sprintf("%+v", new)
	if before == after {
		return ""
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(before, after, false)
	diffs = dmp.DiffCleanupSemantic(diffs)
	return dmp.DiffPrettyText(diffs)
}
