package oakhpke

import (
	"context"
	"crypto/sha512"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Endorser produces evidence that a public key was generated inside a
// verified execution environment. Implementations live in the endorse
// subpackage.
type Endorser interface {
	Endorse(ctx context.Context, publicKey []byte, suite Suite) (*Evidence, error)
}

// EndorserFunc adapts a function to the Endorser interface.
type EndorserFunc func(ctx context.Context, publicKey []byte, suite Suite) (*Evidence, error)

// Endorse calls f.
func (f EndorserFunc) Endorse(ctx context.Context, publicKey []byte, suite Suite) (*Evidence, error) {
	return f(ctx, publicKey, suite)
}

// Evidence is an endorsed-evidence bundle for one public key. Report holds the
// platform artifact (a launcher JWT, a TDX quote, a debug signature);
// Endorsements carries any additional named artifacts.
type Evidence struct {
	ID           uuid.UUID         `json:"id"`
	Type         string            `json:"type"`
	Suite        string            `json:"suite"`
	PublicKey    []byte            `json:"public_key"`
	Report       []byte            `json:"report"`
	Endorsements map[string][]byte `json:"endorsements,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Marshal encodes the evidence as JSON, the form returned across the C ABI.
func (e *Evidence) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalEvidence decodes evidence produced by Marshal.
func UnmarshalEvidence(data []byte) (*Evidence, error) {
	var e Evidence
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// BindingData is the 64-byte value endorsers place in platform report data to
// bind a report to a key: SHA-512(suite_id || public key).
func BindingData(publicKey []byte, suite Suite) [64]byte {
	h := sha512.New()
	h.Write(suite.ID())
	h.Write(publicKey)
	var out [64]byte
	copy(out[:], h.Sum(nil))
	return out
}
