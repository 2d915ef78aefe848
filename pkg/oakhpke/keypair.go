package oakhpke

import (
	"errors"
	"fmt"
	"sync"
)

// KeyPair is an HPKE key pair. It is immutable once constructed; the only
// state change it supports is Destroy, which zeroes the private key.
//
// Providers construct key pairs with NewKeyPair. The boundary owns every key
// pair it stores and destroys it on release.
type KeyPair struct {
	suite Suite

	mu        sync.RWMutex
	private   []byte // serialized KEM private key
	public    []byte // serialized KEM public key
	destroyed bool
}

// NewKeyPair copies the serialized key material into a new KeyPair. The
// caller keeps ownership of the input slices and should zeroize its private
// copy.
func NewKeyPair(suite Suite, private, public []byte) (*KeyPair, error) {
	if len(private) == 0 {
		return nil, errors.New("empty private key")
	}
	if len(public) == 0 {
		return nil, errors.New("empty public key")
	}
	if err := suite.Validate(); err != nil {
		return nil, err
	}

	kp := &KeyPair{
		suite:   suite,
		private: make([]byte, len(private)),
		public:  make([]byte, len(public)),
	}
	copy(kp.private, private)
	copy(kp.public, public)
	return kp, nil
}

// Suite returns the HPKE suite the key pair was generated for.
func (k *KeyPair) Suite() Suite {
	return k.suite
}

// PublicKey returns a copy of the serialized public key.
func (k *KeyPair) PublicKey() ([]byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.destroyed {
		return nil, fmt.Errorf("%w: key pair destroyed", ErrInvalidHandle)
	}
	out := make([]byte, len(k.public))
	copy(out, k.public)
	return out, nil
}

// withPrivateKey runs fn with the private key bytes under the read lock. fn
// must not retain the slice.
func (k *KeyPair) withPrivateKey(fn func(private []byte) error) error {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.destroyed {
		return fmt.Errorf("%w: key pair destroyed", ErrInvalidHandle)
	}
	return fn(k.private)
}

// Destroy zeroes the private key. It is safe to call more than once.
func (k *KeyPair) Destroy() {
	if k == nil {
		return
	}
	k.mu.Lock()
	ZeroizeBytes(k.private)
	k.destroyed = true
	k.mu.Unlock()
}

// Destroyed reports whether Destroy has been called.
func (k *KeyPair) Destroyed() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.destroyed
}
