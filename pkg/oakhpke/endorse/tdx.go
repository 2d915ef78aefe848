//go:build linux

package endorse

import (
	"context"

	tdx_client "github.com/google/go-tdx-guest/client"

	"github.com/generativecomputing/oakhpke-go/pkg/oakhpke"
)

// Attest returns a raw TDX quote carrying reportData. The configfs-tsm
// interface is preferred; the legacy /dev/tdx_guest device is the fallback.
func (TDX) Attest(reportData [64]byte) ([]byte, error) {
	qp := &tdx_client.LinuxConfigFsQuoteProvider{}
	if qp.IsSupported() == nil {
		return qp.GetRawQuote(reportData)
	}

	qd, err := tdx_client.OpenDevice()
	if err != nil {
		return nil, err
	}
	defer qd.Close()

	return tdx_client.GetRawQuote(qd, reportData)
}

// Endorse implements oakhpke.Endorser.
func (t TDX) Endorse(ctx context.Context, publicKey []byte, suite oakhpke.Suite) (*oakhpke.Evidence, error) {
	return t.endorse(ctx, publicKey, suite)
}
