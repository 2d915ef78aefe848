package oakhpke

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/generativecomputing/oakhpke-go/pkg/oakhpke/logging"
)

// Boundary owns every live key pair and response context handed out to a
// caller. All methods are safe for concurrent use; ordering operations on a
// single handle remains the caller's responsibility.
type Boundary struct {
	cfg Config
	log logging.Logger

	// lifecycle is held for reading by every operation and for writing by
	// Close, so nothing is inserted into a drained arena.
	lifecycle sync.RWMutex
	closed    bool

	keys     *arena[*KeyPair]
	contexts *arena[ResponseSealer]

	generated   atomic.Int64
	released    atomic.Int64
	rejected    atomic.Int64
	genFailures atomic.Int64
}

// Stats is a snapshot of boundary counters.
type Stats struct {
	LiveKeyPairs       int
	OpenContexts       int
	Generated          int64
	Released           int64
	RejectedReleases   int64
	GenerationFailures int64
}

// New validates cfg and returns a ready Boundary.
func New(cfg Config) (*Boundary, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Suite.Validate(); err != nil {
		return nil, err
	}
	return &Boundary{
		cfg:      cfg,
		log:      cfg.Logger.With("component", "oakhpke"),
		keys:     newArena[*KeyPair](cfg.MaxLiveHandles),
		contexts: newArena[ResponseSealer](cfg.MaxLiveHandles),
	}, nil
}

// Suite returns the suite used for newly generated key pairs.
func (b *Boundary) Suite() Suite {
	return b.cfg.Suite
}

// Generate creates a key pair and returns its handle. On failure it returns
// NullHandle and stores nothing.
func (b *Boundary) Generate() (Handle, error) {
	ctx := context.Background()

	b.lifecycle.RLock()
	defer b.lifecycle.RUnlock()
	if b.closed {
		return NullHandle, ErrClosed
	}

	kp, err := b.generate()
	if err != nil {
		b.genFailures.Inc()
		b.log.Warn(ctx, "key generation failed", "err", err)
		return NullHandle, err
	}

	h, err := b.keys.insert(kp)
	if err != nil {
		kp.Destroy()
		b.genFailures.Inc()
		b.log.Warn(ctx, "key pair not stored", "err", err)
		return NullHandle, err
	}

	b.generated.Inc()
	b.log.Debug(ctx, "key pair generated", "handle", h, "suite", kp.Suite())
	return h, nil
}

func (b *Boundary) generate() (kp *KeyPair, err error) {
	defer func() {
		if r := recover(); r != nil {
			kp.Destroy()
			kp = nil
			err = fmt.Errorf("%w: provider panic: %v", ErrKeyGeneration, r)
		}
	}()

	kp, err = b.cfg.Provider.GenerateKeyPair(b.cfg.Suite)
	if err != nil {
		kp.Destroy()
		return nil, fmt.Errorf("%w: %w", ErrKeyGeneration, err)
	}
	if kp == nil {
		return nil, fmt.Errorf("%w: provider returned no key pair", ErrKeyGeneration)
	}
	return kp, nil
}

// Release destroys the key pair behind h. Releasing NullHandle is a no-op.
// A stale, foreign or already-released handle yields ErrInvalidHandle and
// changes nothing.
func (b *Boundary) Release(h Handle) error {
	if h.IsNull() {
		return nil
	}
	ctx := context.Background()

	b.lifecycle.RLock()
	defer b.lifecycle.RUnlock()
	if b.closed {
		return ErrClosed
	}

	kp, err := b.keys.remove(h)
	if err != nil {
		b.rejected.Inc()
		b.log.Warn(ctx, "release rejected", "handle", h, "err", err)
		return err
	}
	kp.Destroy()
	b.released.Inc()
	b.log.Debug(ctx, "key pair released", "handle", h)
	return nil
}

func (b *Boundary) keyPair(h Handle) (*KeyPair, error) {
	if b.closed {
		return nil, ErrClosed
	}
	return b.keys.get(h)
}

// PublicKey returns a copy of the serialized public key behind h.
func (b *Boundary) PublicKey(h Handle) ([]byte, error) {
	b.lifecycle.RLock()
	defer b.lifecycle.RUnlock()

	kp, err := b.keyPair(h)
	if err != nil {
		return nil, err
	}
	return kp.PublicKey()
}

// DecryptRequest opens req with the key pair behind h. It returns the
// plaintext and the handle of a response context that EncryptResponse
// consumes.
func (b *Boundary) DecryptRequest(h Handle, req *EncryptedRequest) (plaintext []byte, rc Handle, err error) {
	ctx := context.Background()
	if req == nil {
		return nil, NullHandle, fmt.Errorf("%w: nil request", errInvalidArgument)
	}

	b.lifecycle.RLock()
	defer b.lifecycle.RUnlock()

	kp, err := b.keyPair(h)
	if err != nil {
		return nil, NullHandle, err
	}
	if len(req.Enc) == 0 {
		return nil, NullHandle, fmt.Errorf("%w: empty encapsulated key", ErrDecryption)
	}

	plaintext, sealer, err := b.open(kp, req)
	if err != nil {
		b.log.Warn(ctx, "request decryption failed", "handle", h, "err", err)
		return nil, NullHandle, err
	}

	rc, err = b.contexts.insert(sealer)
	if err != nil {
		sealer.Destroy()
		ZeroizeBytes(plaintext)
		return nil, NullHandle, err
	}

	b.log.Debug(ctx, "request decrypted", "handle", h, "context", rc, logging.Redacted("plaintext"))
	return plaintext, rc, nil
}

func (b *Boundary) open(kp *KeyPair, req *EncryptedRequest) (plaintext []byte, sealer ResponseSealer, err error) {
	defer func() {
		if r := recover(); r != nil {
			plaintext, sealer = nil, nil
			err = fmt.Errorf("%w: provider panic: %v", ErrDecryption, r)
		}
	}()

	plaintext, sealer, err = b.cfg.Provider.OpenRequest(kp, req, b.cfg.Info)
	switch {
	case errors.Is(err, ErrInvalidHandle):
		return nil, nil, err
	case err != nil:
		return nil, nil, fmt.Errorf("%w: %w", ErrDecryption, err)
	case sealer == nil:
		ZeroizeBytes(plaintext)
		return nil, nil, fmt.Errorf("%w: provider returned no response context", ErrDecryption)
	}
	return plaintext, sealer, nil
}

// EncryptResponse seals the response to the request that produced rc. The
// context is consumed whether or not sealing succeeds.
func (b *Boundary) EncryptResponse(rc Handle, plaintext, aad []byte) (*EncryptedResponse, error) {
	b.lifecycle.RLock()
	defer b.lifecycle.RUnlock()
	if b.closed {
		return nil, ErrClosed
	}

	sealer, err := b.contexts.remove(rc)
	if err != nil {
		return nil, err
	}
	defer sealer.Destroy()

	resp, err := sealer.SealResponse(plaintext, aad)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncryption, err)
	}
	b.log.Debug(context.Background(), "response encrypted", "context", rc)
	return resp, nil
}

// ReleaseResponseContext drops a response context without answering.
// Releasing NullHandle is a no-op.
func (b *Boundary) ReleaseResponseContext(rc Handle) error {
	if rc.IsNull() {
		return nil
	}
	b.lifecycle.RLock()
	defer b.lifecycle.RUnlock()
	if b.closed {
		return ErrClosed
	}

	sealer, err := b.contexts.remove(rc)
	if err != nil {
		return err
	}
	sealer.Destroy()
	return nil
}

// CreateEndorsedEvidence asks the configured Endorser for evidence covering
// the public key behind h.
func (b *Boundary) CreateEndorsedEvidence(ctx context.Context, h Handle) (*Evidence, error) {
	if b.cfg.Endorser == nil {
		return nil, fmt.Errorf("%w: no endorser configured", ErrEndorsement)
	}

	pub, err := b.PublicKey(h)
	if err != nil {
		return nil, err
	}

	if b.cfg.EndorseTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.EndorseTimeout)
		defer cancel()
	}

	ev, err := b.cfg.Endorser.Endorse(ctx, pub, b.cfg.Suite)
	if err != nil {
		b.log.Error(ctx, "endorsement failed", "handle", h, "err", err)
		return nil, fmt.Errorf("%w: %w", ErrEndorsement, err)
	}
	if ev == nil {
		return nil, fmt.Errorf("%w: endorser returned no evidence", ErrEndorsement)
	}

	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.Suite == "" {
		ev.Suite = b.cfg.Suite.String()
	}
	if len(ev.PublicKey) == 0 {
		ev.PublicKey = pub
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	b.log.Info(ctx, "evidence created", "handle", h, "type", ev.Type, "id", ev.ID)
	return ev, nil
}

// Close destroys every live key pair and response context. Later calls on
// the boundary, including a second Close, return ErrClosed.
func (b *Boundary) Close() error {
	if b == nil {
		return nil
	}
	b.lifecycle.Lock()
	defer b.lifecycle.Unlock()
	if b.closed {
		return ErrClosed
	}
	b.closed = true

	keys := b.keys.drain()
	for _, kp := range keys {
		kp.Destroy()
	}
	for _, sealer := range b.contexts.drain() {
		sealer.Destroy()
	}
	b.released.Add(int64(len(keys)))
	b.log.Info(context.Background(), "boundary closed", "released", len(keys))
	return nil
}

// Stats returns a snapshot of the boundary counters.
func (b *Boundary) Stats() Stats {
	return Stats{
		LiveKeyPairs:       b.keys.size(),
		OpenContexts:       b.contexts.size(),
		Generated:          b.generated.Load(),
		Released:           b.released.Load(),
		RejectedReleases:   b.rejected.Load(),
		GenerationFailures: b.genFailures.Load(),
	}
}
