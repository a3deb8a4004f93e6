package main

import (
	"github.com/rohanthewiz/element"

	"storagesync/localstore"
	"storagesync/storageid"
)

// statusPage renders the daemon's status page, a far smaller cousin of the
// teacher's BaseLayout/PageWithHeader (views/layout.go) — one page, no
// sidebar or SSE, since this daemon has a single concern to report on.
type statusPage struct {
	accountKey string
	hubURL     string
	sched      status
	diag       localstore.Diagnose
	diagErr    error
}

func (p statusPage) Render(b *element.Builder) (x any) {
	b.Html().R(
		b.Head().R(
			b.Meta("charset", "UTF-8"),
			b.Title().T("storagesyncd"),
		),
		b.Body().R(
			b.H1().T("storagesyncd"),
			b.P().F("account: %s", p.accountKey),
			b.P().F("hub: %s", p.hubURL),
			b.H2().T("Last cycle"),
			b.Wrap(func() {
				if p.sched.InProgress {
					b.P().T("sync cycle in progress")
				}
				if p.sched.LastSync.IsZero() {
					b.P().T("no sync cycle has run yet")
					return
				}
				b.P().F("last attempt: %s", p.sched.LastSync.Format("2006-01-02T15:04:05Z07:00"))
				b.P().F("consecutive failures: %d", p.sched.ConsecutiveFailures)
				if p.sched.LastErr != nil {
					b.P("class", "error").F("last error: %s", p.sched.LastErr.Error())
				} else {
					b.P().F("needs multi-device sync: %t", p.sched.LastOutcome.NeedsMultiDeviceSync)
					if fp := p.sched.LastOutcome.ForcePush; fp != nil {
						b.P().F("force-push pending: %s", fp.Reason)
					}
				}
			}),
			b.H2().T("Local store"),
			b.Wrap(func() {
				if p.diagErr != nil {
					b.P("class", "error").F("diagnose failed: %s", p.diagErr.Error())
					return
				}
				b.P().F("manifest version: %d", p.diag.ManifestVersion)
				b.P().F("total local ids: %d", p.diag.TotalLocalIDs)
				b.Wrap(func() {
					for _, t := range []storageid.RecordType{
						storageid.RecordTypeContact,
						storageid.RecordTypeGroupV1,
						storageid.RecordTypeGroupV2,
						storageid.RecordTypeAccount,
						storageid.RecordTypeUnknown,
					} {
						b.DivClass("record-type-row").F(
							"%-10s count=%d  pending_insert=%d  pending_update=%d  pending_delete=%d",
							t.String(), p.diag.ByType[t], p.diag.PendingInserts[t], p.diag.PendingUpdates[t], p.diag.PendingDeletes[t],
						)
					}
				})
			}),
		),
	)
	return
}
