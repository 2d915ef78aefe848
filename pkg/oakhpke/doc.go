// Package oakhpke owns the lifecycle of HPKE key pairs that are handed to a
// host runtime as opaque handles.
//
// A Boundary stores every live key pair in a generation-tagged arena. Callers
// receive a Handle, which is only a token: the boundary, not the caller,
// decides whether a token still refers to a live key pair. Releasing a handle
// zeroes the private key before the slot can be reused, and releasing a stale,
// foreign or already-released handle is reported as ErrInvalidHandle instead
// of corrupting memory.
//
// Key material comes from an injectable Provider. CirclProvider, backed by
// github.com/cloudflare/circl/hpke, is used when none is configured. Evidence
// for a key pair is produced by an injectable Endorser; see the endorse
// subpackage for the available evidence sources.
//
// # Request/response encryption
//
// DecryptRequest opens an RFC 9180 base-mode message addressed to a live key
// pair and returns a single-use response context. EncryptResponse seals one
// response under keys exported from that request context. SealRequest is the
// matching client-side helper:
//
//	req, opener, err := oakhpke.SealRequest(pub, oakhpke.DefaultSuite, nil, msg, nil, rand.Reader)
//	...
//	plaintext, rc, err := boundary.DecryptRequest(h, req)
//	resp, err := boundary.EncryptResponse(rc, answer, nil)
//	answer, err = opener.OpenResponse(resp, nil)
//
// The C ABI that exposes these operations lives in internal/cabi and is built
// into a static or shared library by cmd/liboakhpke.
package oakhpke
