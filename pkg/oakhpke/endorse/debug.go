package endorse

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"

	"github.com/generativecomputing/oakhpke-go/pkg/oakhpke"
)

const (
	// TypeDebug is the Evidence.Type produced by Debug.
	TypeDebug = "debug"

	// DebugKeyEndorsement names the Evidence.Endorsements entry holding the
	// compressed secp256k1 public key that signed the report.
	DebugKeyEndorsement = "debug_signing_key"
)

// ErrBadDebugSignature is returned by VerifyDebug when the signature does not
// cover the evidence key.
var ErrBadDebugSignature = errors.New("endorse: debug signature does not verify")

// Debug signs sha256(BindingData) with a secp256k1 key held in memory. The
// evidence shows only that the holder of that key saw the public key.
type Debug struct {
	key *btcec.PrivateKey
}

// NewDebug creates a Debug endorser with a fresh signing key.
func NewDebug() (*Debug, error) {
	key, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generating debug signing key: %w", err)
	}
	return &Debug{key: key}, nil
}

// SigningKey returns the compressed public key that signs reports.
func (d *Debug) SigningKey() []byte {
	return d.key.PubKey().SerializeCompressed()
}

// Endorse implements oakhpke.Endorser. The report is a DER signature.
func (d *Debug) Endorse(ctx context.Context, publicKey []byte, suite oakhpke.Suite) (*oakhpke.Evidence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	digest := debugDigest(publicKey, suite)
	sig := ecdsa.Sign(d.key, digest[:])
	return &oakhpke.Evidence{
		Type:   TypeDebug,
		Report: sig.Serialize(),
		Endorsements: map[string][]byte{
			DebugKeyEndorsement: d.SigningKey(),
		},
	}, nil
}

// VerifyDebug checks a Debug report against the evidence public key. A
// non-nil trusted key is used in place of the signing key embedded in ev.
func VerifyDebug(ev *oakhpke.Evidence, suite oakhpke.Suite, trusted []byte) error {
	if ev == nil || ev.Type != TypeDebug {
		return errors.New("endorse: not debug evidence")
	}
	raw := ev.Endorsements[DebugKeyEndorsement]
	if trusted != nil {
		raw = trusted
	}
	pub, err := btcec.ParsePubKey(raw)
	if err != nil {
		return fmt.Errorf("endorse: parsing debug signing key: %w", err)
	}
	sig, err := ecdsa.ParseDERSignature(ev.Report)
	if err != nil {
		return fmt.Errorf("endorse: parsing debug signature: %w", err)
	}
	digest := debugDigest(ev.PublicKey, suite)
	if !sig.Verify(digest[:], pub) {
		return ErrBadDebugSignature
	}
	return nil
}

func debugDigest(publicKey []byte, suite oakhpke.Suite) [32]byte {
	binding := oakhpke.BindingData(publicKey, suite)
	return sha256.Sum256(binding[:])
}
