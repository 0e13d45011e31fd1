// Package syncerr collects the sentinel errors shared by the
// synchronisation core, classified into kinds: validation/logic
// errors, transient (retryable) errors, permanent errors and service
// lifecycle errors. The executor runs each submitted task once and
// does not retry it, whatever the kind of its error. The table mirrors
// _examples/nicolagi-muscle/internal/tree/error.go's
// sentinel-var-plus-helper style, generalized from filesystem errno
// names to this domain's own vocabulary.
package syncerr

import "github.com/pkg/errors"

// Validation / logic errors.
var (
	ErrInvalidState  = errors.New("syncerr: invalid state")
	ErrPathNotAllowed = errors.New("syncerr: path not allowed")
	ErrCorruptIndex  = errors.New("syncerr: corrupt index")
)

// Transient / retryable errors.
var (
	ErrNetworkTimeout     = errors.New("syncerr: network timeout")
	ErrConnectionReset    = errors.New("syncerr: connection reset")
	ErrInterruptedDownload = errors.New("syncerr: interrupted download")
	ErrFilesystemBusy     = errors.New("syncerr: filesystem busy")
)

// Permanent errors.
var (
	ErrQuotaExceeded     = errors.New("syncerr: quota exceeded")
	ErrPermissionDenied  = errors.New("syncerr: permission denied")
	ErrDecryptFailed     = errors.New("syncerr: decrypt failed")
	ErrPassphraseRequired = errors.New("syncerr: passphrase required")
	ErrPassphraseAborted = errors.New("syncerr: passphrase aborted")
)

// Service lifecycle errors.
var (
	ErrServiceStopping   = errors.New("syncerr: service stopping")
	ErrServiceUnavailable = errors.New("syncerr: service unavailable")
)

// Kind classifies an error for the purposes of the propagation policy:
// validation errors fail fast, retryable errors go back to the
// scheduler, permanent errors quarantine the node.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindRetryable
	KindPermanent
	KindLifecycle
)

var kindOf = map[error]Kind{
	ErrInvalidState:        KindValidation,
	ErrPathNotAllowed:      KindValidation,
	ErrCorruptIndex:        KindValidation,
	ErrNetworkTimeout:      KindRetryable,
	ErrConnectionReset:     KindRetryable,
	ErrInterruptedDownload: KindRetryable,
	ErrFilesystemBusy:      KindRetryable,
	ErrQuotaExceeded:       KindPermanent,
	ErrPermissionDenied:    KindPermanent,
	ErrDecryptFailed:       KindPermanent,
	ErrPassphraseRequired:  KindPermanent,
	ErrPassphraseAborted:   KindPermanent,
	ErrServiceStopping:     KindLifecycle,
	ErrServiceUnavailable:  KindLifecycle,
}

// Classify returns the Kind of err, walking the error chain with
// errors.Is against the sentinel table. Unrecognised errors classify
// as KindUnknown, which callers should treat as permanent (fail
// closed rather than retry forever).
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	for sentinel, kind := range kindOf {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindUnknown
}

// Retryable reports whether err is of the transient kind
// (KindRetryable). The executor does not consult it and does not retry
// failed tasks.
func Retryable(err error) bool {
	return Classify(err) == KindRetryable
}

// Permanent reports whether err should quarantine the node it
// occurred on.
func Permanent(err error) bool {
	k := Classify(err)
	return k == KindPermanent || k == KindUnknown
}
