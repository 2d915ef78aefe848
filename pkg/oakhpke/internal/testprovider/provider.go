// Package testprovider provides Provider test doubles for the boundary.
// WARNING: These are for tests only. Do not use in production.
package testprovider

import (
	"errors"
	"sync"

	"github.com/generativecomputing/oakhpke-go/pkg/oakhpke"
)

// ErrForced is the error returned by injected failures.
var ErrForced = errors.New("testprovider: forced failure")

// Tracking wraps a Provider and remembers every key pair it hands out so a
// test can check that all of them were destroyed.
type Tracking struct {
	inner oakhpke.Provider

	mu        sync.Mutex
	generated []*oakhpke.KeyPair
	failNext  int
	panicNext bool
}

// NewTracking wraps inner. A nil inner uses a CirclProvider on crypto/rand.
func NewTracking(inner oakhpke.Provider) *Tracking {
	if inner == nil {
		inner = oakhpke.NewCirclProvider(nil)
	}
	return &Tracking{inner: inner}
}

// FailNext makes the next n GenerateKeyPair calls return ErrForced.
func (t *Tracking) FailNext(n int) {
	t.mu.Lock()
	t.failNext = n
	t.mu.Unlock()
}

// PanicNext makes the next GenerateKeyPair call panic.
func (t *Tracking) PanicNext() {
	t.mu.Lock()
	t.panicNext = true
	t.mu.Unlock()
}

// GenerateKeyPair delegates to the wrapped provider unless a failure is
// pending.
func (t *Tracking) GenerateKeyPair(suite oakhpke.Suite) (*oakhpke.KeyPair, error) {
	t.mu.Lock()
	if t.panicNext {
		t.panicNext = false
		t.mu.Unlock()
		panic("testprovider: forced panic")
	}
	if t.failNext > 0 {
		t.failNext--
		t.mu.Unlock()
		return nil, ErrForced
	}
	t.mu.Unlock()

	kp, err := t.inner.GenerateKeyPair(suite)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.generated = append(t.generated, kp)
	t.mu.Unlock()
	return kp, nil
}

// OpenRequest delegates to the wrapped provider.
func (t *Tracking) OpenRequest(kp *oakhpke.KeyPair, req *oakhpke.EncryptedRequest, info []byte) ([]byte, oakhpke.ResponseSealer, error) {
	return t.inner.OpenRequest(kp, req, info)
}

// Generated returns how many key pairs were handed out.
func (t *Tracking) Generated() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.generated)
}

// Outstanding returns how many handed-out key pairs have not been destroyed.
func (t *Tracking) Outstanding() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, kp := range t.generated {
		if !kp.Destroyed() {
			n++
		}
	}
	return n
}

// ExhaustedReader is an entropy source that always fails.
type ExhaustedReader struct{}

func (ExhaustedReader) Read([]byte) (int, error) {
	return 0, ErrForced
}
