package cabi

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/generativecomputing/oakhpke-go/pkg/oakhpke"
	"github.com/generativecomputing/oakhpke-go/pkg/oakhpke/endorse"
	"github.com/generativecomputing/oakhpke-go/pkg/oakhpke/logging"
)

func testDispatcher(t *testing.T, cfg oakhpke.Config) *dispatcher {
	t.Helper()
	cfg.Logger = logging.Discard()
	b, err := oakhpke.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return newDispatcher(b, logging.Discard())
}

func TestDispatchGenerateDelete(t *testing.T) {
	d := testDispatcher(t, oakhpke.Config{})

	h := d.generate()
	require.False(t, h.IsNull())
	require.Equal(t, oakhpke.StatusOK, d.lastStatus())

	d.deleteKeyPair(h)
	require.Equal(t, oakhpke.StatusOK, d.lastStatus())

	d.deleteKeyPair(h)
	require.Equal(t, oakhpke.StatusInvalidHandle, d.lastStatus())

	d.deleteKeyPair(oakhpke.NullHandle)
	require.Equal(t, oakhpke.StatusOK, d.lastStatus())
}

func TestDispatchRejectsGarbageTokens(t *testing.T) {
	d := testDispatcher(t, oakhpke.Config{})
	require.False(t, d.generate().IsNull())

	for _, tok := range []oakhpke.Handle{2, 0x1000, 0xc000012345, oakhpke.Handle(^uint64(0))} {
		_, st := d.publicKey(tok)
		require.Equal(t, oakhpke.StatusInvalidHandle, st, "token %d", uint64(tok))
		d.deleteKeyPair(tok)
		require.Equal(t, oakhpke.StatusInvalidHandle, d.lastStatus())
	}
}

func TestDispatchRoundTrip(t *testing.T) {
	d := testDispatcher(t, oakhpke.Config{})
	h := d.generate()

	pub, st := d.publicKey(h)
	require.Equal(t, oakhpke.StatusOK, st)

	req, opener, err := oakhpke.SealRequest(pub, oakhpke.DefaultSuite, nil, []byte("hello"), []byte("ad"), nil)
	require.NoError(t, err)

	pt, rc, st := d.decryptRequest(h, req)
	require.Equal(t, oakhpke.StatusOK, st)
	require.Equal(t, []byte("hello"), pt)

	ct, st := d.encryptResponse(rc, []byte("world"), nil)
	require.Equal(t, oakhpke.StatusOK, st)

	got, err := opener.OpenResponse(&oakhpke.EncryptedResponse{Ciphertext: ct}, nil)
	require.NoError(t, err)
	require.Equal(t, []byte("world"), got)

	_, st = d.encryptResponse(rc, []byte("again"), nil)
	require.Equal(t, oakhpke.StatusInvalidHandle, st)
}

func TestDispatchDecryptFailure(t *testing.T) {
	d := testDispatcher(t, oakhpke.Config{})
	h := d.generate()

	_, rc, st := d.decryptRequest(h, &oakhpke.EncryptedRequest{})
	require.Equal(t, oakhpke.StatusDecryption, st)
	require.True(t, rc.IsNull())

	_, _, st = d.decryptRequest(h, nil)
	require.Equal(t, oakhpke.StatusInvalidArgument, st)
}

func TestDispatchDeleteResponseContext(t *testing.T) {
	d := testDispatcher(t, oakhpke.Config{})
	h := d.generate()
	pub, _ := d.publicKey(h)

	req, _, err := oakhpke.SealRequest(pub, oakhpke.DefaultSuite, nil, []byte("q"), nil, nil)
	require.NoError(t, err)
	_, rc, st := d.decryptRequest(h, req)
	require.Equal(t, oakhpke.StatusOK, st)

	d.deleteResponseContext(rc)
	require.Equal(t, oakhpke.StatusOK, d.lastStatus())
	d.deleteResponseContext(rc)
	require.Equal(t, oakhpke.StatusInvalidHandle, d.lastStatus())
}

func TestDispatchEvidence(t *testing.T) {
	dbg, err := endorse.NewDebug()
	require.NoError(t, err)
	d := testDispatcher(t, oakhpke.Config{Endorser: dbg})
	h := d.generate()

	raw, st := d.endorsedEvidence(h)
	require.Equal(t, oakhpke.StatusOK, st)

	ev, err := oakhpke.UnmarshalEvidence(raw)
	require.NoError(t, err)
	require.NoError(t, endorse.VerifyDebug(ev, oakhpke.DefaultSuite, dbg.SigningKey()))

	none := testDispatcher(t, oakhpke.Config{})
	_, st = none.endorsedEvidence(none.generate())
	require.Equal(t, oakhpke.StatusEndorsement, st)
}

func TestDispatchRecoversPanics(t *testing.T) {
	boom := oakhpke.EndorserFunc(func(context.Context, []byte, oakhpke.Suite) (*oakhpke.Evidence, error) {
		panic("endorser exploded")
	})
	d := testDispatcher(t, oakhpke.Config{Endorser: boom})
	h := d.generate()

	require.NotPanics(t, func() {
		_, st := d.endorsedEvidence(h)
		require.Equal(t, oakhpke.StatusInternal, st)
	})
	require.Equal(t, oakhpke.StatusInternal, d.lastStatus())

	_, st := d.publicKey(h)
	require.Equal(t, oakhpke.StatusOK, st, "boundary unusable after recovered panic")
}

func TestDispatchInitError(t *testing.T) {
	d := newDispatcher(nil, logging.Discard())
	d.initErr = oakhpke.ErrUnsupportedSuite

	require.True(t, d.generate().IsNull())
	require.Equal(t, oakhpke.StatusKeyGeneration, d.lastStatus())

	d.initErr = errors.New("bad endorser")
	_, st := d.publicKey(1)
	require.Equal(t, oakhpke.StatusInternal, st)

	d.initErr = nil
	_, st = d.publicKey(1)
	require.Equal(t, oakhpke.StatusClosed, st)
}

func TestDispatchAfterClose(t *testing.T) {
	b, err := oakhpke.New(oakhpke.Config{Logger: logging.Discard()})
	require.NoError(t, err)
	d := newDispatcher(b, logging.Discard())
	h := d.generate()
	require.NoError(t, b.Close())

	d.deleteKeyPair(h)
	require.Equal(t, oakhpke.StatusClosed, d.lastStatus())
	require.True(t, d.generate().IsNull())
}

func TestReject(t *testing.T) {
	d := newDispatcher(nil, logging.Discard())
	require.Equal(t, oakhpke.StatusInvalidArgument, d.reject(oakhpke.StatusInvalidArgument))
	require.Equal(t, oakhpke.StatusInvalidArgument, d.lastStatus())
}
