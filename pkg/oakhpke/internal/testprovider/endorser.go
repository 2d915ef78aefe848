package testprovider

import (
	"context"
	"sync"

	"github.com/generativecomputing/oakhpke-go/pkg/oakhpke"
)

// Endorser records the keys it is asked to endorse and returns a fixed
// report, or Err when set.
type Endorser struct {
	Report []byte
	Err    error

	mu   sync.Mutex
	keys [][]byte
}

// Endorse implements oakhpke.Endorser.
func (e *Endorser) Endorse(ctx context.Context, publicKey []byte, suite oakhpke.Suite) (*oakhpke.Evidence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.keys = append(e.keys, append([]byte(nil), publicKey...))
	e.mu.Unlock()
	if e.Err != nil {
		return nil, e.Err
	}
	return &oakhpke.Evidence{Type: "test", Report: append([]byte(nil), e.Report...)}, nil
}

// Keys returns the public keys seen so far.
func (e *Endorser) Keys() [][]byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([][]byte(nil), e.keys...)
}
