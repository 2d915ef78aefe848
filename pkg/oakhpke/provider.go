package oakhpke

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"
)

// Provider is the cryptographic capability behind a Boundary. It generates
// key material and opens requests addressed to it. Implementations must be
// safe for concurrent use.
type Provider interface {
	// GenerateKeyPair returns a fresh key pair for suite.
	GenerateKeyPair(suite Suite) (*KeyPair, error)

	// OpenRequest decrypts req with the private key of kp and returns the
	// plaintext together with a sealer for the single response.
	OpenRequest(kp *KeyPair, req *EncryptedRequest, info []byte) ([]byte, ResponseSealer, error)
}

// ResponseSealer seals the one response that answers a decrypted request.
type ResponseSealer interface {
	SealResponse(plaintext, aad []byte) (*EncryptedResponse, error)
	// Destroy drops the exported response secrets.
	Destroy()
}

// EncryptedRequest is an RFC 9180 base-mode message: the encapsulated key and
// the single-shot ciphertext.
type EncryptedRequest struct {
	Enc            []byte
	Ciphertext     []byte
	AssociatedData []byte
}

// EncryptedResponse is the sealed answer to an EncryptedRequest.
type EncryptedResponse struct {
	Ciphertext []byte
}

// DefaultInfo is the HPKE info string used when Config.Info is empty.
var DefaultInfo = []byte("Oak Hybrid Public Key Encryption v1")

const (
	responseKeyLabel   = "oak response key"
	responseNonceLabel = "oak response nonce"
)

// CirclProvider implements Provider with github.com/cloudflare/circl/hpke.
// Key pairs are derived from seeds read from Rand, so a failing reader
// surfaces as a key generation error rather than a panic.
type CirclProvider struct {
	// Rand is the entropy source. Nil means crypto/rand.Reader.
	Rand io.Reader
}

// NewCirclProvider returns a provider reading entropy from rnd. Passing nil
// binds to crypto/rand.Reader.
func NewCirclProvider(rnd io.Reader) *CirclProvider {
	return &CirclProvider{Rand: rnd}
}

func (p *CirclProvider) rand() io.Reader {
	if p == nil || p.Rand == nil {
		return rand.Reader
	}
	return p.Rand
}

// GenerateKeyPair derives a key pair from a fresh seed.
func (p *CirclProvider) GenerateKeyPair(suite Suite) (*KeyPair, error) {
	if err := suite.Validate(); err != nil {
		return nil, err
	}

	scheme := suite.KEM.Scheme()
	seed := make([]byte, scheme.SeedSize())
	defer ZeroizeBytes(seed)
	if _, err := io.ReadFull(p.rand(), seed); err != nil {
		return nil, fmt.Errorf("failed to read key seed: %w", err)
	}

	pk, sk := scheme.DeriveKeyPair(seed)
	private, err := sk.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal private key: %w", err)
	}
	defer ZeroizeBytes(private)

	public, err := pk.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal public key: %w", err)
	}

	return NewKeyPair(suite, private, public)
}

// OpenRequest sets up an HPKE receiver for req.Enc and opens req.Ciphertext.
func (p *CirclProvider) OpenRequest(kp *KeyPair, req *EncryptedRequest, info []byte) ([]byte, ResponseSealer, error) {
	if kp == nil || req == nil {
		return nil, nil, errors.New("nil key pair or request")
	}
	suite := kp.Suite()

	var opener interface {
		exporter
		Open(ct, aad []byte) ([]byte, error)
	}
	err := kp.withPrivateKey(func(private []byte) error {
		sk, err := suite.KEM.Scheme().UnmarshalBinaryPrivateKey(private)
		if err != nil {
			return fmt.Errorf("failed to load private key: %w", err)
		}
		receiver, err := suite.hpke().NewReceiver(sk, info)
		if err != nil {
			return fmt.Errorf("failed to create receiver: %w", err)
		}
		o, err := receiver.Setup(req.Enc)
		if err != nil {
			return fmt.Errorf("malformed encapsulated key: %w", err)
		}
		opener = o
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	plaintext, err := opener.Open(req.Ciphertext, req.AssociatedData)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open request: %w", err)
	}

	sealer, err := newResponseCipher(suite, opener)
	if err != nil {
		ZeroizeBytes(plaintext)
		return nil, nil, err
	}
	return plaintext, sealer, nil
}

// exporter is the part of an HPKE context both sides use to derive the
// response key.
type exporter interface {
	Export(exporterContext []byte, length uint) []byte
}

// responseCipher holds the AEAD derived from a request context. It seals or
// opens exactly one response.
type responseCipher struct {
	mu    sync.Mutex
	aead  cipher.AEAD
	nonce []byte
	used  bool
}

func newResponseCipher(suite Suite, ctx exporter) (*responseCipher, error) {
	key := ctx.Export([]byte(responseKeyLabel), suite.AEAD.KeySize())
	defer ZeroizeBytes(key)

	aead, err := suite.AEAD.New(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create response AEAD: %w", err)
	}
	return &responseCipher{
		aead:  aead,
		nonce: ctx.Export([]byte(responseNonceLabel), suite.AEAD.NonceSize()),
	}, nil
}

func (c *responseCipher) take() (cipher.AEAD, []byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.used || c.aead == nil {
		return nil, nil, errors.New("response context already used")
	}
	c.used = true
	return c.aead, c.nonce, nil
}

// SealResponse encrypts the response. A second call fails.
func (c *responseCipher) SealResponse(plaintext, aad []byte) (*EncryptedResponse, error) {
	aead, nonce, err := c.take()
	if err != nil {
		return nil, err
	}
	defer c.Destroy()
	return &EncryptedResponse{Ciphertext: aead.Seal(nil, nonce, plaintext, aad)}, nil
}

// Destroy drops the AEAD and zeroes the nonce.
func (c *responseCipher) Destroy() {
	c.mu.Lock()
	ZeroizeBytes(c.nonce)
	c.aead = nil
	c.used = true
	c.mu.Unlock()
}

// ResponseOpener is the client half of a response context, returned by
// SealRequest.
type ResponseOpener struct {
	c *responseCipher
}

// OpenResponse decrypts the server's answer. It can be used once.
func (o *ResponseOpener) OpenResponse(resp *EncryptedResponse, aad []byte) ([]byte, error) {
	if o == nil || o.c == nil || resp == nil {
		return nil, fmt.Errorf("%w: nil response", ErrDecryption)
	}
	aead, nonce, err := o.c.take()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	defer o.c.Destroy()

	plaintext, err := aead.Open(nil, nonce, resp.Ciphertext, aad)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	return plaintext, nil
}

// SealRequest encrypts plaintext to publicKey the way a client of the
// boundary does. It returns the request and the opener for its response. A
// nil info uses DefaultInfo and a nil rnd uses crypto/rand.Reader.
func SealRequest(publicKey []byte, suite Suite, info, plaintext, aad []byte, rnd io.Reader) (*EncryptedRequest, *ResponseOpener, error) {
	if err := suite.Validate(); err != nil {
		return nil, nil, err
	}
	if info == nil {
		info = DefaultInfo
	}
	if rnd == nil {
		rnd = rand.Reader
	}

	pk, err := suite.KEM.Scheme().UnmarshalBinaryPublicKey(publicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: invalid public key: %v", ErrEncryption, err)
	}
	sender, err := suite.hpke().NewSender(pk, info)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrEncryption, err)
	}
	enc, sealer, err := sender.Setup(rnd)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrEncryption, err)
	}
	ct, err := sealer.Seal(plaintext, aad)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrEncryption, err)
	}
	rc, err := newResponseCipher(suite, sealer)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrEncryption, err)
	}

	aadCopy := append([]byte(nil), aad...)
	return &EncryptedRequest{Enc: enc, Ciphertext: ct, AssociatedData: aadCopy}, &ResponseOpener{c: rc}, nil
}
