package endorse

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	tdx_abi "github.com/google/go-tdx-guest/abi"
	tdx_pb "github.com/google/go-tdx-guest/proto/tdx"

	"github.com/generativecomputing/oakhpke-go/pkg/oakhpke"
)

// TypeTDX is the Evidence.Type produced by TDX.
const TypeTDX = "tdx"

// TDX endorses keys with Intel TDX quotes. Quote is the function used to
// obtain the quote; nil means Attest.
type TDX struct {
	Quote func(reportData [64]byte) ([]byte, error)
}

func (t TDX) endorse(ctx context.Context, publicKey []byte, suite oakhpke.Suite) (*oakhpke.Evidence, error) {
	quote := t.Quote
	if quote == nil {
		quote = t.Attest
	}

	reportData := oakhpke.BindingData(publicKey, suite)
	type result struct {
		raw []byte
		err error
	}
	done := make(chan result, 1)
	go func() {
		raw, err := quote(reportData)
		done <- result{raw, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("obtaining TDX quote: %w", r.err)
		}
		return &oakhpke.Evidence{Type: TypeTDX, Report: r.raw}, nil
	}
}

// ErrReportDataMismatch is returned when a quote does not carry the binding
// data of the evidence key.
var ErrReportDataMismatch = errors.New("endorse: quote report data does not bind the public key")

// CheckTDXBinding parses the quote in ev and checks that its report data is
// oakhpke.BindingData for ev.PublicKey. It does not verify the quote's
// certificate chain or collateral.
func CheckTDXBinding(ev *oakhpke.Evidence, suite oakhpke.Suite) error {
	if ev == nil || ev.Type != TypeTDX {
		return errors.New("endorse: not TDX evidence")
	}
	protoQuote, err := tdx_abi.QuoteToProto(ev.Report)
	if err != nil {
		return fmt.Errorf("could not parse quote: %w", err)
	}
	q, ok := protoQuote.(*tdx_pb.QuoteV4)
	if !ok {
		return fmt.Errorf("unsupported quote type: %T", protoQuote)
	}

	want := oakhpke.BindingData(ev.PublicKey, suite)
	if subtle.ConstantTimeCompare(q.GetTdQuoteBody().GetReportData(), want[:]) != 1 {
		return ErrReportDataMismatch
	}
	return nil
}
