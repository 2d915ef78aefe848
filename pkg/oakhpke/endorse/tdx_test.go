package endorse_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/generativecomputing/oakhpke-go/pkg/oakhpke"
	"github.com/generativecomputing/oakhpke-go/pkg/oakhpke/endorse"
)

func TestTDXPassesBindingData(t *testing.T) {
	pub := []byte("public key")
	want := oakhpke.BindingData(pub, oakhpke.DefaultSuite)

	var seen [64]byte
	tdx := endorse.TDX{Quote: func(reportData [64]byte) ([]byte, error) {
		seen = reportData
		return []byte("quote"), nil
	}}

	ev, err := tdx.Endorse(context.Background(), pub, oakhpke.DefaultSuite)
	require.NoError(t, err)
	require.Equal(t, endorse.TypeTDX, ev.Type)
	require.Equal(t, []byte("quote"), ev.Report)
	require.Equal(t, want, seen)
}

func TestTDXQuoteError(t *testing.T) {
	boom := errors.New("no tdx guest device")
	tdx := endorse.TDX{Quote: func([64]byte) ([]byte, error) { return nil, boom }}

	_, err := tdx.Endorse(context.Background(), []byte("key"), oakhpke.DefaultSuite)
	require.ErrorIs(t, err, boom)
}

func TestTDXHonoursContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	tdx := endorse.TDX{Quote: func([64]byte) ([]byte, error) {
		<-release
		return nil, nil
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := tdx.Endorse(ctx, []byte("key"), oakhpke.DefaultSuite)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCheckTDXBindingRejectsGarbage(t *testing.T) {
	ev := &oakhpke.Evidence{Type: endorse.TypeTDX, PublicKey: []byte("key"), Report: []byte("not a quote")}
	require.Error(t, endorse.CheckTDXBinding(ev, oakhpke.DefaultSuite))

	ev.Type = endorse.TypeDebug
	require.Error(t, endorse.CheckTDXBinding(ev, oakhpke.DefaultSuite))
}
