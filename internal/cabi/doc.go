// Package cabi exposes the oakhpke boundary through a C ABI.
//
// The exported functions are declared in oak_hpke.h and linked into a C
// archive or shared library by cmd/liboakhpke. Handles cross the boundary
// as pointer-sized tokens: a key pair or response context pointer on the C
// side is an oakhpke.Handle value and is never dereferenced.
//
// A process-wide Boundary is created on first use from the environment (see
// ConfigFromEnv). Every exported function recovers panics and reports
// failures through its return value and oak_last_status.
package cabi
