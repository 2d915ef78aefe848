//go:build !linux

package endorse

import (
	"context"
	"errors"

	"github.com/generativecomputing/oakhpke-go/pkg/oakhpke"
)

// ErrTDXUnavailable is returned by TDX on platforms without a TDX guest
// interface.
var ErrTDXUnavailable = errors.New("endorse: TDX attestation requires linux")

// Attest always fails off Linux.
func (TDX) Attest([64]byte) ([]byte, error) {
	return nil, ErrTDXUnavailable
}

// Endorse implements oakhpke.Endorser.
func (t TDX) Endorse(ctx context.Context, publicKey []byte, suite oakhpke.Suite) (*oakhpke.Evidence, error) {
	return t.endorse(ctx, publicKey, suite)
}
