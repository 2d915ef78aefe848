// Command liboakhpke builds the oakhpke C library.
//
//	go build -buildmode=c-shared -o liboakhpke.so ./cmd/liboakhpke
//	go build -buildmode=c-archive -o liboakhpke.a ./cmd/liboakhpke
//
// Include internal/cabi/oak_hpke.h from C or C++ callers. The library reads
// its configuration from OAK_HPKE_* environment variables on first use.
package main

import _ "github.com/generativecomputing/oakhpke-go/internal/cabi"

func main() {}
