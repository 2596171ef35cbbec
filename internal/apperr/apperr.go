// Package apperr implements the error taxonomy of the fingerprinting
// service: input errors, duplicate-ingest, external-dependency errors,
// store errors, and internal errors, each reported distinctly so callers
// can decide whether to retry, surface 4xx, or surface 5xx.
package apperr

import (
	"errors"
	"fmt"

	"github.com/mdobak/go-xerrors"
)

// Kind classifies an error for the caller, per the taxonomy in spec §7.
type Kind string

const (
	KindDecodeFailed         Kind = "decode_failed"
	KindEmptyAfterTrim       Kind = "empty_after_trim"
	KindDuplicateExternalID  Kind = "duplicate_external_id"
	KindStoreUnavailable     Kind = "store_unavailable"
	KindNotFound             Kind = "not_found"
	KindDownloaderFailed     Kind = "downloader_failed"
	KindMetadataFetchFailed  Kind = "metadata_fetch_failed"
	KindUnsupportedMediaType Kind = "unsupported_media_type"
	KindInvalidArgument      Kind = "invalid_argument"
	KindInternal             Kind = "internal"
)

// Error is the concrete error value carried across package boundaries. It
// keeps a Kind for programmatic dispatch (errors.Is-style via Is) and the
// underlying cause, wrapped with go-xerrors so a stack trace survives to
// the log line at the boundary that finally reports it.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Cause)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, apperr.KindStoreUnavailable) work by comparing Kind,
// not identity, since every call site constructs its own *Error.
func (e *Error) Is(target error) bool {
	var k Kind
	switch t := target.(type) {
	case Kind:
		k = t
	case *Error:
		k = t.Kind
	default:
		return false
	}
	return e.Kind == k
}

func (k Kind) Error() string { return string(k) }

// New builds an *Error, wrapping cause (if any) with xerrors.New so a stack
// trace is captured at the point of failure, matching the
// Prayush09-MusicRecognition fileformat/wav.go pattern of calling
// xerrors.New(err) before logging.
func New(kind Kind, msg string, cause error) *Error {
	var wrapped error
	if cause != nil {
		wrapped = xerrors.New(cause)
	}
	return &Error{Kind: kind, Msg: msg, Cause: wrapped}
}

// Of returns the Kind of err, or KindInternal if err isn't an *Error.
func Of(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err (or anything it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	return errors.Is(err, kind)
}
