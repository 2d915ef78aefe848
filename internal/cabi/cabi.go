//go:build cgo && (amd64 || arm64)

package cabi

/*
#include <stdlib.h>
#include <string.h>
#include "oak_types.h"
*/
import "C"

import (
	"math"
	"sync"
	"unsafe"

	"github.com/generativecomputing/oakhpke-go/pkg/oakhpke"
)

// Handles are odd and below 2^36, so as pointers they never fall inside the
// Go heap and cgo pointer checks leave them alone.

func keyPairHandle(p *C.OakHpkeKeyPair) oakhpke.Handle {
	return oakhpke.Handle(uintptr(unsafe.Pointer(p)))
}

func keyPairToken(h oakhpke.Handle) *C.OakHpkeKeyPair {
	//nolint:govet // Intentional uintptr to unsafe.Pointer conversion for CGO handle passing
	return (*C.OakHpkeKeyPair)(unsafe.Pointer(uintptr(h)))
}

func contextHandle(p *C.OakResponseContext) oakhpke.Handle {
	return oakhpke.Handle(uintptr(unsafe.Pointer(p)))
}

func contextToken(h oakhpke.Handle) *C.OakResponseContext {
	//nolint:govet // Intentional uintptr to unsafe.Pointer conversion for CGO handle passing
	return (*C.OakResponseContext)(unsafe.Pointer(uintptr(h)))
}

// goBytes copies a C input buffer into Go memory.
func goBytes(p *C.uint8_t, n C.size_t) ([]byte, bool) {
	if n == 0 {
		return nil, true
	}
	if p == nil || n > math.MaxInt32 {
		return nil, false
	}
	return C.GoBytes(unsafe.Pointer(p), C.int(n)), true
}

// fillBuffer copies b into C-allocated memory owned by the caller and zeroes
// the Go copy.
func fillBuffer(out *C.OakBuffer, b []byte) bool {
	defer oakhpke.ZeroizeBytes(b)
	out.data = nil
	out.size = 0
	if len(b) == 0 {
		return true
	}
	p := (*C.uint8_t)(C.malloc(C.size_t(len(b))))
	if p == nil {
		return false
	}
	C.memcpy(unsafe.Pointer(p), unsafe.Pointer(&b[0]), C.size_t(len(b)))
	out.data = p
	out.size = C.size_t(len(b))
	return true
}

// wipeBuffer zeroes the C memory behind buf without releasing it.
func wipeBuffer(buf *C.OakBuffer) {
	if buf.data != nil && buf.size > 0 {
		C.memset(unsafe.Pointer(buf.data), 0, buf.size)
	}
}

func status(st oakhpke.Status) C.int {
	return C.int(st)
}

//export oak_generate_hpke_key_pair
func oak_generate_hpke_key_pair() *C.OakHpkeKeyPair {
	return keyPairToken(current().generate())
}

//export oak_delete_hpke_key_pair
func oak_delete_hpke_key_pair(kp *C.OakHpkeKeyPair) {
	current().deleteKeyPair(keyPairHandle(kp))
}

//export oak_get_public_key
func oak_get_public_key(kp *C.OakHpkeKeyPair, out *C.OakBuffer) C.int {
	d := current()
	if out == nil {
		return status(d.reject(oakhpke.StatusInvalidArgument))
	}
	pub, st := d.publicKey(keyPairHandle(kp))
	if st == oakhpke.StatusOK && !fillBuffer(out, pub) {
		return status(d.reject(oakhpke.StatusInternal))
	}
	return status(st)
}

//export oak_create_endorsed_evidence
func oak_create_endorsed_evidence(kp *C.OakHpkeKeyPair, out *C.OakBuffer) C.int {
	d := current()
	if out == nil {
		return status(d.reject(oakhpke.StatusInvalidArgument))
	}
	ev, st := d.endorsedEvidence(keyPairHandle(kp))
	if st == oakhpke.StatusOK && !fillBuffer(out, ev) {
		return status(d.reject(oakhpke.StatusInternal))
	}
	return status(st)
}

//export oak_decrypt_request
func oak_decrypt_request(kp *C.OakHpkeKeyPair,
	enc *C.uint8_t, encLen C.size_t,
	ct *C.uint8_t, ctLen C.size_t,
	aad *C.uint8_t, aadLen C.size_t,
	plaintext *C.OakBuffer, rcOut **C.OakResponseContext,
) C.int {
	d := current()
	if plaintext == nil || rcOut == nil {
		return status(d.reject(oakhpke.StatusInvalidArgument))
	}
	*rcOut = nil

	req := &oakhpke.EncryptedRequest{}
	var ok1, ok2, ok3 bool
	req.Enc, ok1 = goBytes(enc, encLen)
	req.Ciphertext, ok2 = goBytes(ct, ctLen)
	req.AssociatedData, ok3 = goBytes(aad, aadLen)
	if !ok1 || !ok2 || !ok3 {
		return status(d.reject(oakhpke.StatusInvalidArgument))
	}

	pt, rc, st := d.decryptRequest(keyPairHandle(kp), req)
	if st != oakhpke.StatusOK {
		return status(st)
	}
	if !fillBuffer(plaintext, pt) {
		d.deleteResponseContext(rc)
		return status(d.reject(oakhpke.StatusInternal))
	}
	*rcOut = contextToken(rc)
	return status(st)
}

//export oak_encrypt_response
func oak_encrypt_response(rc *C.OakResponseContext,
	pt *C.uint8_t, ptLen C.size_t,
	aad *C.uint8_t, aadLen C.size_t,
	out *C.OakBuffer,
) C.int {
	d := current()
	if out == nil {
		return status(d.reject(oakhpke.StatusInvalidArgument))
	}
	plaintext, ok1 := goBytes(pt, ptLen)
	defer oakhpke.ZeroizeBytes(plaintext)
	ad, ok2 := goBytes(aad, aadLen)
	if !ok1 || !ok2 {
		return status(d.reject(oakhpke.StatusInvalidArgument))
	}

	ciphertext, st := d.encryptResponse(contextHandle(rc), plaintext, ad)
	if st == oakhpke.StatusOK && !fillBuffer(out, ciphertext) {
		return status(d.reject(oakhpke.StatusInternal))
	}
	return status(st)
}

//export oak_delete_response_context
func oak_delete_response_context(rc *C.OakResponseContext) {
	current().deleteResponseContext(contextHandle(rc))
}

//export oak_free_buffer
func oak_free_buffer(buf *C.OakBuffer) {
	if buf == nil || buf.data == nil {
		return
	}
	wipeBuffer(buf)
	C.free(unsafe.Pointer(buf.data))
	buf.data = nil
	buf.size = 0
}

//export oak_last_status
func oak_last_status() C.int {
	return status(current().lastStatus())
}

var (
	statusMu      sync.Mutex
	statusStrings = map[string]*C.char{}
)

//export oak_status_string
func oak_status_string(code C.int) *C.char {
	statusMu.Lock()
	defer statusMu.Unlock()
	name := oakhpke.Status(code).String()
	s, ok := statusStrings[name]
	if !ok {
		// Kept for the life of the process; callers must not free it.
		s = C.CString(name)
		statusStrings[name] = s
	}
	return s
}
