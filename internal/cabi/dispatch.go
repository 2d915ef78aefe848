package cabi

import (
	"context"
	"fmt"
	"os"
	"sync"

	"go.uber.org/atomic"

	"github.com/generativecomputing/oakhpke-go/pkg/oakhpke"
	"github.com/generativecomputing/oakhpke-go/pkg/oakhpke/logging"
)

// dispatcher runs C ABI calls against a Boundary. The exported functions
// only convert C values and delegate here, so everything below is testable
// without cgo.
type dispatcher struct {
	b       *oakhpke.Boundary
	initErr error
	log     logging.Logger
	last    atomic.Int32
}

func newDispatcher(b *oakhpke.Boundary, log logging.Logger) *dispatcher {
	if log == nil {
		log = logging.New(nil)
	}
	return &dispatcher{b: b, log: log.With("component", "cabi")}
}

var (
	defaultOnce sync.Once
	defaultDisp *dispatcher
)

// current returns the process-wide dispatcher, building its Boundary from
// the environment on first use. A configuration error is kept and reported
// by every later call.
func current() *dispatcher {
	defaultOnce.Do(func() {
		cfg, err := ConfigFromEnv(os.Getenv, os.Stderr)
		if err != nil {
			d := newDispatcher(nil, logging.New(logging.Setup(os.Stderr, logging.Options{Service: "liboakhpke"})))
			d.initErr = err
			d.log.Error(context.Background(), "invalid configuration", "err", err)
			defaultDisp = d
			return
		}
		b, err := oakhpke.New(cfg)
		d := newDispatcher(b, cfg.Logger)
		d.initErr = err
		defaultDisp = d
	})
	return defaultDisp
}

func (d *dispatcher) boundary() (*oakhpke.Boundary, error) {
	if d.initErr != nil {
		return nil, d.initErr
	}
	if d.b == nil {
		return nil, fmt.Errorf("%w: boundary not initialised", oakhpke.ErrClosed)
	}
	return d.b, nil
}

// run executes fn, converting a panic into StatusInternal, and records the
// resulting status for oak_last_status.
func (d *dispatcher) run(op string, fn func(b *oakhpke.Boundary) error) (st oakhpke.Status) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error(context.Background(), "panic in C ABI call", "op", op, "panic", fmt.Sprint(r))
			st = oakhpke.StatusInternal
		}
		d.last.Store(int32(st))
	}()

	b, err := d.boundary()
	if err == nil {
		err = fn(b)
	}
	if err != nil {
		d.log.Debug(context.Background(), "C ABI call failed", "op", op, "err", err)
	}
	return oakhpke.StatusOf(err)
}

func (d *dispatcher) lastStatus() oakhpke.Status {
	return oakhpke.Status(d.last.Load())
}

func (d *dispatcher) generate() oakhpke.Handle {
	h := oakhpke.NullHandle
	d.run("generate_hpke_key_pair", func(b *oakhpke.Boundary) error {
		var err error
		h, err = b.Generate()
		return err
	})
	return h
}

func (d *dispatcher) deleteKeyPair(h oakhpke.Handle) {
	d.run("delete_hpke_key_pair", func(b *oakhpke.Boundary) error {
		return b.Release(h)
	})
}

func (d *dispatcher) publicKey(h oakhpke.Handle) ([]byte, oakhpke.Status) {
	var pub []byte
	st := d.run("get_public_key", func(b *oakhpke.Boundary) error {
		var err error
		pub, err = b.PublicKey(h)
		return err
	})
	return pub, st
}

func (d *dispatcher) endorsedEvidence(h oakhpke.Handle) ([]byte, oakhpke.Status) {
	var out []byte
	st := d.run("create_endorsed_evidence", func(b *oakhpke.Boundary) error {
		ev, err := b.CreateEndorsedEvidence(context.Background(), h)
		if err != nil {
			return err
		}
		out, err = ev.Marshal()
		if err != nil {
			return fmt.Errorf("%w: %w", oakhpke.ErrEndorsement, err)
		}
		return nil
	})
	return out, st
}

func (d *dispatcher) decryptRequest(h oakhpke.Handle, req *oakhpke.EncryptedRequest) ([]byte, oakhpke.Handle, oakhpke.Status) {
	var plaintext []byte
	rc := oakhpke.NullHandle
	st := d.run("decrypt_request", func(b *oakhpke.Boundary) error {
		var err error
		plaintext, rc, err = b.DecryptRequest(h, req)
		return err
	})
	return plaintext, rc, st
}

func (d *dispatcher) encryptResponse(rc oakhpke.Handle, plaintext, aad []byte) ([]byte, oakhpke.Status) {
	var out []byte
	st := d.run("encrypt_response", func(b *oakhpke.Boundary) error {
		resp, err := b.EncryptResponse(rc, plaintext, aad)
		if err != nil {
			return err
		}
		out = resp.Ciphertext
		return nil
	})
	return out, st
}

func (d *dispatcher) deleteResponseContext(rc oakhpke.Handle) {
	d.run("delete_response_context", func(b *oakhpke.Boundary) error {
		return b.ReleaseResponseContext(rc)
	})
}

// reject records st for a call refused before reaching the boundary.
func (d *dispatcher) reject(st oakhpke.Status) oakhpke.Status {
	d.last.Store(int32(st))
	return st
}
