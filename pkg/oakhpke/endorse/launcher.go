package endorse

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/generativecomputing/oakhpke-go/pkg/oakhpke"
)

const (
	// DefaultLauncherSocket is where the Confidential Space launcher serves
	// attestation tokens.
	DefaultLauncherSocket = "/run/container_launcher/teeserver.sock"
	// DefaultLauncherURL is the token endpoint behind the launcher socket.
	DefaultLauncherURL = "http://localhost/v1/token"
	// DefaultAudience is the audience claim requested for tokens.
	DefaultAudience = "GenC"

	// TypeConfidentialSpace is the Evidence.Type produced by Launcher.
	TypeConfidentialSpace = "confidential-space"

	maxTokenSize = 1 << 20
	dialTimeout  = 5 * time.Second
)

// ErrEmptyToken is returned when the launcher answers with an empty body.
var ErrEmptyToken = errors.New("endorse: launcher returned an empty token")

// Launcher requests OIDC attestation tokens from the Confidential Space
// container launcher.
type Launcher struct {
	// SocketPath is the unix socket of the launcher. Empty means
	// DefaultLauncherSocket.
	SocketPath string
	// URL is the token endpoint. Empty means DefaultLauncherURL.
	URL string
	// Audience is the requested audience. Empty means DefaultAudience.
	Audience string
	// Client overrides the HTTP client. When nil a client dialing SocketPath
	// is built on first use and reused by later calls.
	Client *http.Client

	once   sync.Once
	socket *http.Client
}

// NewLauncher returns a Launcher with the default socket, URL and audience.
func NewLauncher() *Launcher {
	return &Launcher{}
}

type tokenRequest struct {
	Audience  string   `json:"audience"`
	TokenType string   `json:"token_type"`
	Nonces    []string `json:"nonces"`
}

func (l *Launcher) client() *http.Client {
	if l.Client != nil {
		return l.Client
	}
	l.once.Do(func() {
		path := l.SocketPath
		if path == "" {
			path = DefaultLauncherSocket
		}
		// Tokens are requested rarely; one connection per request keeps no
		// socket or transport goroutines alive between calls.
		l.socket = &http.Client{
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					d := net.Dialer{Timeout: dialTimeout}
					return d.DialContext(ctx, "unix", path)
				},
				DisableKeepAlives: true,
			},
		}
	})
	return l.socket
}

// Endorse implements oakhpke.Endorser. The token nonce is the standard base64
// encoding of publicKey.
func (l *Launcher) Endorse(ctx context.Context, publicKey []byte, _ oakhpke.Suite) (*oakhpke.Evidence, error) {
	url := l.URL
	if url == "" {
		url = DefaultLauncherURL
	}
	audience := l.Audience
	if audience == "" {
		audience = DefaultAudience
	}

	body, err := json.Marshal(tokenRequest{
		Audience:  audience,
		TokenType: "OIDC",
		Nonces:    []string{base64.StdEncoding.EncodeToString(publicKey)},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting attestation token: %w", err)
	}
	defer resp.Body.Close()

	token, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenSize))
	if err != nil {
		return nil, fmt.Errorf("reading attestation token: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("launcher returned %s: %s", resp.Status, strings.TrimSpace(string(token)))
	}
	token = bytes.TrimSpace(token)
	if len(token) == 0 {
		return nil, ErrEmptyToken
	}

	return &oakhpke.Evidence{
		Type:   TypeConfidentialSpace,
		Report: token,
		Endorsements: map[string][]byte{
			"audience": []byte(audience),
		},
	}, nil
}

// ErrNonceMismatch is returned when a token does not carry the nonce of the
// evidence public key.
var ErrNonceMismatch = errors.New("endorse: attestation token does not carry the public key nonce")

// CheckLauncherNonce checks that the token in ev names ev.PublicKey as a
// nonce. Like TokenNonces it does not verify the token signature.
func CheckLauncherNonce(ev *oakhpke.Evidence) error {
	if ev == nil || ev.Type != TypeConfidentialSpace {
		return errors.New("endorse: not confidential-space evidence")
	}
	nonces, err := TokenNonces(ev.Report)
	if err != nil {
		return err
	}
	want := base64.StdEncoding.EncodeToString(ev.PublicKey)
	for _, n := range nonces {
		if subtle.ConstantTimeCompare([]byte(n), []byte(want)) == 1 {
			return nil
		}
	}
	return ErrNonceMismatch
}

// TokenNonces returns the eat_nonce claim of an attestation token without
// verifying its signature. Verification against the Confidential Space JWKS
// belongs to the relying party.
func TokenNonces(token []byte) ([]string, error) {
	parts := strings.Split(string(token), ".")
	if len(parts) != 3 {
		return nil, errors.New("endorse: token is not a JWT")
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("endorse: decoding token payload: %w", err)
	}

	var claims struct {
		Nonce json.RawMessage `json:"eat_nonce"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("endorse: decoding token claims: %w", err)
	}
	if len(claims.Nonce) == 0 || string(claims.Nonce) == "null" {
		return nil, nil
	}

	// eat_nonce is a string for one nonce and an array for several.
	var single string
	if err := json.Unmarshal(claims.Nonce, &single); err == nil {
		return []string{single}, nil
	}
	var many []string
	if err := json.Unmarshal(claims.Nonce, &many); err != nil {
		return nil, fmt.Errorf("endorse: decoding eat_nonce: %w", err)
	}
	return many, nil
}
