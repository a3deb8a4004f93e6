// Package errkind defines the disposition-bearing error kinds from §7: the
// sentinel values the orchestrator matches on with errors.Is after a
// component returns a serr-wrapped error.
package errkind

import "errors"

// Kind is a sentinel error classifying the disposition a failure should
// receive. Components wrap one of these with serr.Wrap/serr.New; the
// orchestrator unwraps with errors.Is to decide Retry/Fatal/Skip.
type Kind error

var (
	// ErrNotReady — no account PIN / not registered. Skip silently.
	ErrNotReady Kind = errors.New("storagesync: not ready")
	// ErrNetwork — transient transport failure. Bubbles as RetryLater.
	ErrNetwork Kind = errors.New("storagesync: network failure")
	// ErrRemoteConflict — server CAS rejected our write. RetryLater.
	ErrRemoteConflict Kind = errors.New("storagesync: remote conflict")
	// ErrDecryptFailure — remote records undecryptable. Escalates to a
	// key-update + force-push + multi-device-notify chain.
	ErrDecryptFailure Kind = errors.New("storagesync: decrypt failure")
	// ErrMissingLocalModel — a StorageId in the manifest has no backing
	// local row during materialisation. Fatal assertion.
	ErrMissingLocalModel Kind = errors.New("storagesync: missing local model")
	// ErrMissingGv2MasterKey — a GroupV2 row lacks its required master
	// key. Fatal assertion.
	ErrMissingGv2MasterKey Kind = errors.New("storagesync: missing groupV2 master key")
	// ErrValidation — a StorageSyncValidations invariant failed. Fatal: it
	// indicates a logic bug, not adversarial input.
	ErrValidation Kind = errors.New("storagesync: write operation validation failed")
	// ErrCancelled — the caller's context was cancelled at a suspension
	// point. Treated as RetryLater.
	ErrCancelled Kind = errors.New("storagesync: cancelled")
)

// Disposition is what the orchestrator does with a Kind once classified.
type Disposition int

const (
	DispositionFatal Disposition = iota
	DispositionRetryLater
	DispositionSkip
	DispositionEscalate
)

func (d Disposition) String() string {
	switch d {
	case DispositionFatal:
		return "fatal"
	case DispositionRetryLater:
		return "retry_later"
	case DispositionSkip:
		return "skip"
	case DispositionEscalate:
		return "escalate"
	default:
		return "unknown"
	}
}

// Classify maps an error (expected to wrap one of the Kind sentinels via
// serr) to its disposition. Unrecognized errors are treated as Fatal — per
// §7, unmatched failures are bugs, not expected adversarial input.
func Classify(err error) Disposition {
	switch {
	case errors.Is(err, ErrNotReady):
		return DispositionSkip
	case errors.Is(err, ErrNetwork), errors.Is(err, ErrRemoteConflict), errors.Is(err, ErrCancelled):
		return DispositionRetryLater
	case errors.Is(err, ErrDecryptFailure):
		return DispositionEscalate
	default:
		return DispositionFatal
	}
}
