package oakhpke_test

import (
	"crypto/sha512"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/generativecomputing/oakhpke-go/pkg/oakhpke"
)

func TestBindingData(t *testing.T) {
	pub := []byte("public key bytes")
	want := sha512.Sum512(append(oakhpke.DefaultSuite.ID(), pub...))
	require.Equal(t, want, oakhpke.BindingData(pub, oakhpke.DefaultSuite))

	other, err := oakhpke.ParseSuite("P256-HKDF-SHA256/HKDF-SHA256/AES-128-GCM")
	require.NoError(t, err)
	require.NotEqual(t, oakhpke.BindingData(pub, oakhpke.DefaultSuite), oakhpke.BindingData(pub, other))
}

func TestUnmarshalEvidenceRejectsGarbage(t *testing.T) {
	_, err := oakhpke.UnmarshalEvidence([]byte("{not json"))
	require.Error(t, err)
}
