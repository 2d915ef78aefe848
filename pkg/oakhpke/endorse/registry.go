package endorse

import (
	"fmt"
	"strings"

	"github.com/generativecomputing/oakhpke-go/pkg/oakhpke"
)

// Names accepted by New.
var Names = []string{"none", TypeDebug, TypeTDX, TypeConfidentialSpace}

// New returns the endorser registered under name. "none" and the empty
// string yield a nil Endorser.
func New(name string) (oakhpke.Endorser, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return nil, nil
	case TypeDebug:
		d, err := NewDebug()
		if err != nil {
			return nil, err
		}
		return d, nil
	case TypeTDX:
		return TDX{}, nil
	case TypeConfidentialSpace:
		return NewLauncher(), nil
	default:
		return nil, fmt.Errorf("unknown endorser %q (want one of %s)", name, strings.Join(Names, ", "))
	}
}
