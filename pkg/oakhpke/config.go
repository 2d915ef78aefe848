package oakhpke

import (
	"time"

	"github.com/generativecomputing/oakhpke-go/pkg/oakhpke/logging"
)

// Config expresses the knobs of a Boundary. The zero value is usable: it
// generates DefaultSuite key pairs with CirclProvider, has no endorser, and
// logs through slog.Default().
type Config struct {
	// Suite selects the HPKE algorithms for generated key pairs. The zero
	// value means DefaultSuite.
	Suite Suite

	// Provider supplies key material and request decryption. Nil means a
	// CirclProvider reading crypto/rand.
	Provider Provider

	// Endorser produces evidence for CreateEndorsedEvidence. Nil makes that
	// operation fail with ErrEndorsement.
	Endorser Endorser

	// EndorseTimeout bounds each endorsement. Zero leaves the caller's
	// context untouched.
	EndorseTimeout time.Duration

	// Info is the HPKE info string bound into request contexts. Nil means
	// DefaultInfo.
	Info []byte

	// MaxLiveHandles caps the number of live key pairs and, separately, open
	// response contexts. Zero or values above the handle index space use the
	// full index space.
	MaxLiveHandles int

	// Logger receives lifecycle events. Nil means logging.New(nil).
	Logger logging.Logger
}

func (c Config) withDefaults() Config {
	if c.Suite == (Suite{}) {
		c.Suite = DefaultSuite
	}
	if c.Provider == nil {
		c.Provider = NewCirclProvider(nil)
	}
	if c.Info == nil {
		c.Info = DefaultInfo
	}
	if c.Logger == nil {
		c.Logger = logging.New(nil)
	}
	return c
}
