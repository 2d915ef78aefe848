package oakhpke

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/cloudflare/circl/hpke"
)

// Suite names the HPKE algorithms a key pair is used with.
type Suite struct {
	KEM  hpke.KEM
	KDF  hpke.KDF
	AEAD hpke.AEAD
}

// DefaultSuite is DHKEM(X25519, HKDF-SHA256), HKDF-SHA256, AES-256-GCM.
var DefaultSuite = Suite{
	KEM:  hpke.KEM_X25519_HKDF_SHA256,
	KDF:  hpke.KDF_HKDF_SHA256,
	AEAD: hpke.AEAD_AES256GCM,
}

var kemNames = map[hpke.KEM]string{
	hpke.KEM_P256_HKDF_SHA256:   "P256-HKDF-SHA256",
	hpke.KEM_P384_HKDF_SHA384:   "P384-HKDF-SHA384",
	hpke.KEM_P521_HKDF_SHA512:   "P521-HKDF-SHA512",
	hpke.KEM_X25519_HKDF_SHA256: "X25519-HKDF-SHA256",
	hpke.KEM_X448_HKDF_SHA512:   "X448-HKDF-SHA512",
}

var kdfNames = map[hpke.KDF]string{
	hpke.KDF_HKDF_SHA256: "HKDF-SHA256",
	hpke.KDF_HKDF_SHA384: "HKDF-SHA384",
	hpke.KDF_HKDF_SHA512: "HKDF-SHA512",
}

var aeadNames = map[hpke.AEAD]string{
	hpke.AEAD_AES128GCM:        "AES-128-GCM",
	hpke.AEAD_AES256GCM:        "AES-256-GCM",
	hpke.AEAD_ChaCha20Poly1305: "ChaCha20-Poly1305",
}

// Validate reports whether the suite only uses algorithms this package can
// serve. Export-only AEADs are rejected because responses must be sealed.
func (s Suite) Validate() error {
	if _, ok := kemNames[s.KEM]; !ok || !s.KEM.IsValid() {
		return fmt.Errorf("%w: KEM %d", ErrUnsupportedSuite, uint16(s.KEM))
	}
	if _, ok := kdfNames[s.KDF]; !ok || !s.KDF.IsValid() {
		return fmt.Errorf("%w: KDF %d", ErrUnsupportedSuite, uint16(s.KDF))
	}
	if _, ok := aeadNames[s.AEAD]; !ok || !s.AEAD.IsValid() {
		return fmt.Errorf("%w: AEAD %d", ErrUnsupportedSuite, uint16(s.AEAD))
	}
	return nil
}

// String renders the suite as "KEM/KDF/AEAD", the form accepted by ParseSuite.
func (s Suite) String() string {
	name := func(n string, ok bool, id uint16) string {
		if ok {
			return n
		}
		return strconv.Itoa(int(id))
	}
	k, kok := kemNames[s.KEM]
	d, dok := kdfNames[s.KDF]
	a, aok := aeadNames[s.AEAD]
	return name(k, kok, uint16(s.KEM)) + "/" + name(d, dok, uint16(s.KDF)) + "/" + name(a, aok, uint16(s.AEAD))
}

// ID returns the RFC 9180 suite_id: "HPKE" || I2OSP(kem, 2) || I2OSP(kdf, 2)
// || I2OSP(aead, 2).
func (s Suite) ID() []byte {
	id := make([]byte, 0, 10)
	id = append(id, "HPKE"...)
	id = binary.BigEndian.AppendUint16(id, uint16(s.KEM))
	id = binary.BigEndian.AppendUint16(id, uint16(s.KDF))
	id = binary.BigEndian.AppendUint16(id, uint16(s.AEAD))
	return id
}

func (s Suite) hpke() hpke.Suite {
	return hpke.NewSuite(s.KEM, s.KDF, s.AEAD)
}

// ParseSuite parses the "KEM/KDF/AEAD" form produced by Suite.String. Names
// are matched case-insensitively. An empty string yields DefaultSuite.
func ParseSuite(str string) (Suite, error) {
	str = strings.TrimSpace(str)
	if str == "" {
		return DefaultSuite, nil
	}
	parts := strings.Split(str, "/")
	if len(parts) != 3 {
		return Suite{}, fmt.Errorf("%w: %q is not KEM/KDF/AEAD", ErrUnsupportedSuite, str)
	}

	var s Suite
	var ok bool
	if s.KEM, ok = lookup(kemNames, parts[0]); !ok {
		return Suite{}, fmt.Errorf("%w: unknown KEM %q", ErrUnsupportedSuite, parts[0])
	}
	if s.KDF, ok = lookup(kdfNames, parts[1]); !ok {
		return Suite{}, fmt.Errorf("%w: unknown KDF %q", ErrUnsupportedSuite, parts[1])
	}
	if s.AEAD, ok = lookup(aeadNames, parts[2]); !ok {
		return Suite{}, fmt.Errorf("%w: unknown AEAD %q", ErrUnsupportedSuite, parts[2])
	}
	return s, s.Validate()
}

func lookup[K comparable](names map[K]string, want string) (K, bool) {
	want = strings.TrimSpace(want)
	for id, name := range names {
		if strings.EqualFold(name, want) {
			return id, true
		}
	}
	var zero K
	return zero, false
}
