package engine

import (
	"errors"
	"fmt"
)

// Error taxonomy from spec.md §7. All are sentinel values wrapped with
// fmt.Errorf("...: %w") at the call site, so callers compare with
// errors.Is rather than a custom error-code type.
var (
	// ErrInvalidArguments is caller-visible: e.g. both endpoint_id and
	// peer_id supplied to AddEndpoint.
	ErrInvalidArguments = errors.New("invalid arguments")

	// ErrNotFound is logged as a warning and changes no state. It is
	// returned to the caller of AddEndpoint (nonexistent peer) and of
	// AcceptPeer/DenyPeer (no pending join); removing an already-gone
	// peer/endpoint only logs it.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTrackID is returned synchronously from Subscribe.
	ErrInvalidTrackID = errors.New("invalid track id")

	// ErrInvalidFormat is returned synchronously from Subscribe.
	ErrInvalidFormat = errors.New("invalid format")

	// ErrInvalidDefaultSimulcastEncoding is returned synchronously from
	// Subscribe.
	ErrInvalidDefaultSimulcastEncoding = errors.New("invalid default simulcast encoding")

	// ErrTimeout is returned from Subscribe after the 5s wait elapses.
	ErrTimeout = errors.New("timeout")

	// ErrProtocol marks a malformed Media Event; logged and dropped, the
	// connection is never torn down because of it.
	ErrProtocol = errors.New("protocol error")
)

func errNotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func errInvalidArgumentsf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArguments, fmt.Sprintf(format, args...))
}

func errTrackInvalid(trackID TrackID) error {
	return fmt.Errorf("%w: %s", ErrInvalidTrackID, trackID)
}

func errFormatInvalid(format string) error {
	return fmt.Errorf("%w: %s", ErrInvalidFormat, format)
}

func errSimulcastEncodingInvalid(encoding string) error {
	return fmt.Errorf("%w: %s", ErrInvalidDefaultSimulcastEncoding, encoding)
}
