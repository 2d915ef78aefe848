package oakhpke

import (
	"errors"
)

var (
	// ErrKeyGeneration is returned when the provider cannot produce key
	// material (entropy exhaustion, provider unavailable, provider panic).
	ErrKeyGeneration = errors.New("oakhpke: key generation failed")

	// ErrInvalidHandle is returned for the null handle where a live one is
	// required, and for stale, foreign or already-released handles.
	ErrInvalidHandle = errors.New("oakhpke: invalid handle")

	// ErrDecryption is returned when a request fails authentication or its
	// encapsulated key is malformed.
	ErrDecryption = errors.New("oakhpke: request decryption failed")

	// ErrEncryption is returned when a response cannot be sealed.
	ErrEncryption = errors.New("oakhpke: response encryption failed")

	// ErrEndorsement is returned when evidence cannot be produced for a key
	// pair, including when no endorser is configured.
	ErrEndorsement = errors.New("oakhpke: endorsement failed")

	// ErrHandleLimit is returned by Generate when Config.MaxLiveHandles key
	// pairs are already live.
	ErrHandleLimit = errors.New("oakhpke: live handle limit reached")

	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("oakhpke: boundary closed")

	// ErrUnsupportedSuite is returned for suites the provider cannot serve.
	ErrUnsupportedSuite = errors.New("oakhpke: unsupported HPKE suite")
)

// Status is the integer result code reported across the C ABI.
type Status int

// Status codes. The numeric values are part of the C ABI and must not change.
const (
	StatusOK              Status = 0
	StatusInvalidArgument Status = 1
	StatusInvalidHandle   Status = 2
	StatusKeyGeneration   Status = 3
	StatusDecryption      Status = 4
	StatusEncryption      Status = 5
	StatusEndorsement     Status = 6
	StatusClosed          Status = 7
	StatusInternal        Status = 8
)

var statusNames = map[Status]string{
	StatusOK:              "ok",
	StatusInvalidArgument: "invalid argument",
	StatusInvalidHandle:   "invalid handle",
	StatusKeyGeneration:   "key generation failed",
	StatusDecryption:      "decryption failed",
	StatusEncryption:      "encryption failed",
	StatusEndorsement:     "endorsement failed",
	StatusClosed:          "closed",
	StatusInternal:        "internal error",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown status"
}

// StatusOf maps an error returned by this package to its C ABI status code.
// Errors that do not wrap one of the package sentinels map to StatusInternal.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrInvalidHandle):
		return StatusInvalidHandle
	case errors.Is(err, ErrKeyGeneration), errors.Is(err, ErrHandleLimit), errors.Is(err, ErrUnsupportedSuite):
		return StatusKeyGeneration
	case errors.Is(err, ErrDecryption):
		return StatusDecryption
	case errors.Is(err, ErrEncryption):
		return StatusEncryption
	case errors.Is(err, ErrEndorsement):
		return StatusEndorsement
	case errors.Is(err, ErrClosed):
		return StatusClosed
	case errors.Is(err, errInvalidArgument):
		return StatusInvalidArgument
	default:
		return StatusInternal
	}
}

// errInvalidArgument marks caller mistakes that are not handle problems, such
// as an empty encapsulated key. It is wrapped, never returned bare.
var errInvalidArgument = errors.New("invalid argument")
