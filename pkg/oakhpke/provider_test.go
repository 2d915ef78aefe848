package oakhpke_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/generativecomputing/oakhpke-go/pkg/oakhpke"
)

func sealTo(t *testing.T, b *oakhpke.Boundary, h oakhpke.Handle, msg, aad []byte) (*oakhpke.EncryptedRequest, *oakhpke.ResponseOpener) {
	t.Helper()
	pub, err := b.PublicKey(h)
	require.NoError(t, err)
	req, opener, err := oakhpke.SealRequest(pub, b.Suite(), nil, msg, aad, nil)
	require.NoError(t, err)
	return req, opener
}

func TestRequestResponseRoundTrip(t *testing.T) {
	b := newBoundary(t, oakhpke.Config{})
	h, err := b.Generate()
	require.NoError(t, err)

	req, opener := sealTo(t, b, h, []byte("what is 6 x 7?"), []byte("request-aad"))

	plaintext, rc, err := b.DecryptRequest(h, req)
	require.NoError(t, err)
	require.Equal(t, []byte("what is 6 x 7?"), plaintext)
	require.False(t, rc.IsNull())
	require.Equal(t, 1, b.Stats().OpenContexts)

	resp, err := b.EncryptResponse(rc, []byte("42"), []byte("response-aad"))
	require.NoError(t, err)
	require.Zero(t, b.Stats().OpenContexts)

	answer, err := opener.OpenResponse(resp, []byte("response-aad"))
	require.NoError(t, err)
	require.Equal(t, []byte("42"), answer)
}

func TestRoundTripAcrossSuites(t *testing.T) {
	for _, name := range []string{
		"P256-HKDF-SHA256/HKDF-SHA256/AES-128-GCM",
		"P384-HKDF-SHA384/HKDF-SHA384/AES-256-GCM",
		"P521-HKDF-SHA512/HKDF-SHA512/ChaCha20-Poly1305",
		"X448-HKDF-SHA512/HKDF-SHA512/AES-256-GCM",
		"X25519-HKDF-SHA256/HKDF-SHA256/ChaCha20-Poly1305",
	} {
		t.Run(name, func(t *testing.T) {
			suite, err := oakhpke.ParseSuite(name)
			require.NoError(t, err)
			b := newBoundary(t, oakhpke.Config{Suite: suite})

			h, err := b.Generate()
			require.NoError(t, err)
			req, opener := sealTo(t, b, h, []byte("ping"), nil)

			plaintext, rc, err := b.DecryptRequest(h, req)
			require.NoError(t, err)
			require.Equal(t, []byte("ping"), plaintext)

			resp, err := b.EncryptResponse(rc, []byte("pong"), nil)
			require.NoError(t, err)
			answer, err := opener.OpenResponse(resp, nil)
			require.NoError(t, err)
			require.Equal(t, []byte("pong"), answer)
		})
	}
}

func TestDecryptTamperedRequest(t *testing.T) {
	b := newBoundary(t, oakhpke.Config{})
	h, err := b.Generate()
	require.NoError(t, err)

	req, _ := sealTo(t, b, h, []byte("secret"), nil)
	req.Ciphertext[0] ^= 0x01

	plaintext, rc, err := b.DecryptRequest(h, req)
	require.ErrorIs(t, err, oakhpke.ErrDecryption)
	require.Equal(t, oakhpke.StatusDecryption, oakhpke.StatusOf(err))
	require.Nil(t, plaintext)
	require.True(t, rc.IsNull())
	require.Zero(t, b.Stats().OpenContexts)
}

func TestDecryptWrongAssociatedData(t *testing.T) {
	b := newBoundary(t, oakhpke.Config{})
	h, err := b.Generate()
	require.NoError(t, err)

	req, _ := sealTo(t, b, h, []byte("secret"), []byte("aad"))
	req.AssociatedData = []byte("other")

	_, _, err = b.DecryptRequest(h, req)
	require.ErrorIs(t, err, oakhpke.ErrDecryption)
}

func TestDecryptWithWrongKeyPair(t *testing.T) {
	b := newBoundary(t, oakhpke.Config{})
	h1, err := b.Generate()
	require.NoError(t, err)
	h2, err := b.Generate()
	require.NoError(t, err)

	req, _ := sealTo(t, b, h1, []byte("for h1"), nil)
	_, _, err = b.DecryptRequest(h2, req)
	require.ErrorIs(t, err, oakhpke.ErrDecryption)
}

func TestDecryptMalformedRequest(t *testing.T) {
	b := newBoundary(t, oakhpke.Config{})
	h, err := b.Generate()
	require.NoError(t, err)

	_, _, err = b.DecryptRequest(h, nil)
	require.Equal(t, oakhpke.StatusInvalidArgument, oakhpke.StatusOf(err))

	_, _, err = b.DecryptRequest(h, &oakhpke.EncryptedRequest{Ciphertext: []byte("x")})
	require.ErrorIs(t, err, oakhpke.ErrDecryption)

	_, _, err = b.DecryptRequest(h, &oakhpke.EncryptedRequest{Enc: []byte{1, 2, 3}, Ciphertext: []byte("x")})
	require.ErrorIs(t, err, oakhpke.ErrDecryption)
}

func TestDecryptWithReleasedKeyPair(t *testing.T) {
	b := newBoundary(t, oakhpke.Config{})
	h, err := b.Generate()
	require.NoError(t, err)

	req, _ := sealTo(t, b, h, []byte("late"), nil)
	require.NoError(t, b.Release(h))

	_, _, err = b.DecryptRequest(h, req)
	require.ErrorIs(t, err, oakhpke.ErrInvalidHandle)
}

func TestResponseContextIsSingleUse(t *testing.T) {
	b := newBoundary(t, oakhpke.Config{})
	h, err := b.Generate()
	require.NoError(t, err)

	req, opener := sealTo(t, b, h, []byte("once"), nil)
	_, rc, err := b.DecryptRequest(h, req)
	require.NoError(t, err)

	resp, err := b.EncryptResponse(rc, []byte("first"), nil)
	require.NoError(t, err)

	_, err = b.EncryptResponse(rc, []byte("second"), nil)
	require.ErrorIs(t, err, oakhpke.ErrInvalidHandle)

	_, err = opener.OpenResponse(resp, nil)
	require.NoError(t, err)
	_, err = opener.OpenResponse(resp, nil)
	require.ErrorIs(t, err, oakhpke.ErrDecryption)
}

func TestResponseSurvivesKeyRelease(t *testing.T) {
	b := newBoundary(t, oakhpke.Config{})
	h, err := b.Generate()
	require.NoError(t, err)

	req, opener := sealTo(t, b, h, []byte("q"), nil)
	_, rc, err := b.DecryptRequest(h, req)
	require.NoError(t, err)
	require.NoError(t, b.Release(h))

	resp, err := b.EncryptResponse(rc, []byte("a"), nil)
	require.NoError(t, err)
	answer, err := opener.OpenResponse(resp, nil)
	require.NoError(t, err)
	require.Equal(t, []byte("a"), answer)
}

func TestReleaseResponseContext(t *testing.T) {
	b := newBoundary(t, oakhpke.Config{})
	h, err := b.Generate()
	require.NoError(t, err)

	req, _ := sealTo(t, b, h, []byte("q"), nil)
	_, rc, err := b.DecryptRequest(h, req)
	require.NoError(t, err)

	require.NoError(t, b.ReleaseResponseContext(oakhpke.NullHandle))
	require.NoError(t, b.ReleaseResponseContext(rc))
	require.ErrorIs(t, b.ReleaseResponseContext(rc), oakhpke.ErrInvalidHandle)

	_, err = b.EncryptResponse(rc, []byte("a"), nil)
	require.ErrorIs(t, err, oakhpke.ErrInvalidHandle)
}

func TestResponseWrongAssociatedData(t *testing.T) {
	b := newBoundary(t, oakhpke.Config{})
	h, err := b.Generate()
	require.NoError(t, err)

	req, opener := sealTo(t, b, h, []byte("q"), nil)
	_, rc, err := b.DecryptRequest(h, req)
	require.NoError(t, err)

	resp, err := b.EncryptResponse(rc, []byte("a"), []byte("bound"))
	require.NoError(t, err)
	_, err = opener.OpenResponse(resp, []byte("unbound"))
	require.ErrorIs(t, err, oakhpke.ErrDecryption)
}

func TestCustomInfoMustMatch(t *testing.T) {
	b := newBoundary(t, oakhpke.Config{Info: []byte("service-a")})
	h, err := b.Generate()
	require.NoError(t, err)
	pub, err := b.PublicKey(h)
	require.NoError(t, err)

	req, _, err := oakhpke.SealRequest(pub, b.Suite(), []byte("service-b"), []byte("q"), nil, nil)
	require.NoError(t, err)
	_, _, err = b.DecryptRequest(h, req)
	require.ErrorIs(t, err, oakhpke.ErrDecryption)

	req, _, err = oakhpke.SealRequest(pub, b.Suite(), []byte("service-a"), []byte("q"), nil, nil)
	require.NoError(t, err)
	_, _, err = b.DecryptRequest(h, req)
	require.NoError(t, err)
}

func TestSealRequestRejectsBadPublicKey(t *testing.T) {
	_, _, err := oakhpke.SealRequest([]byte("short"), oakhpke.DefaultSuite, nil, []byte("q"), nil, nil)
	require.ErrorIs(t, err, oakhpke.ErrEncryption)
}
