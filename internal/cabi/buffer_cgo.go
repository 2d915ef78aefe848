//go:build cgo && (amd64 || arm64)

package cabi

/*
#include <stdlib.h>
#include <string.h>
#include "oak_types.h"
*/
import "C"

import "unsafe"

// Go-typed wrappers over the buffer helpers. Test files cannot use cgo, so
// the package tests reach goBytes, fillBuffer and oak_free_buffer through
// these.

// goBytesVia copies b into C memory and reads n bytes of it back through
// goBytes. A nil b passes a NULL pointer.
func goBytesVia(b []byte, n int) ([]byte, bool) {
	if b == nil {
		return goBytes(nil, C.size_t(n))
	}
	p := C.CBytes(b)
	defer C.free(p)
	return goBytes((*C.uint8_t)(p), C.size_t(n))
}

// fillBufferVia runs fillBuffer on b and returns what the C caller would
// see before releasing the buffer with oak_free_buffer.
func fillBufferVia(b []byte) (seen []byte, isNull bool, ok bool) {
	var out C.OakBuffer
	if !fillBuffer(&out, b) {
		return nil, false, false
	}
	defer oak_free_buffer(&out)
	if out.data == nil {
		return nil, out.size == 0, true
	}
	return C.GoBytes(unsafe.Pointer(out.data), C.int(out.size)), false, true
}

// freeBufferVia fills a buffer from b, frees it and reports the descriptor
// left behind.
func freeBufferVia(b []byte) (dataNil bool, size int) {
	var out C.OakBuffer
	fillBuffer(&out, b)
	oak_free_buffer(&out)
	return out.data == nil, int(out.size)
}

// wipeBufferVia copies b into C memory, wipes it the way oak_free_buffer
// does before free, and returns the wiped contents.
func wipeBufferVia(b []byte) []byte {
	p := C.CBytes(b)
	defer C.free(p)
	buf := C.OakBuffer{data: (*C.uint8_t)(p), size: C.size_t(len(b))}
	wipeBuffer(&buf)
	return C.GoBytes(p, C.int(len(b)))
}

func freeNilBuffer() {
	oak_free_buffer(nil)
	var empty C.OakBuffer
	oak_free_buffer(&empty)
}
