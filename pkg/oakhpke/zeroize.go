package oakhpke

import "runtime"

// ZeroizeBytes overwrites the provided slice with zeros and prevents compiler
// dead store elimination using runtime.KeepAlive.
//
// This follows the pattern recommended in golang/go#33325. It cannot reach
// copies made by the garbage collector or by the underlying HPKE library, so
// key pairs keep their private bytes in a single backing array and hand out
// copies only of public material.
func ZeroizeBytes(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
	// Prevent dead store elimination per golang/go#33325
	runtime.KeepAlive(buf)
}

// isZero reports whether every byte of buf is zero without branching on the
// position of the first non-zero byte.
func isZero(buf []byte) bool {
	var acc byte
	for _, b := range buf {
		acc |= b
	}
	return acc == 0
}
