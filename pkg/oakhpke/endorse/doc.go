// Package endorse provides oakhpke.Endorser implementations.
//
// Three endorsers are available:
//
//   - Launcher asks the Confidential Space container launcher for an OIDC
//     attestation token whose nonce is the base64 public key.
//   - TDX reads a raw Intel TDX quote whose report data is
//     oakhpke.BindingData for the key (Linux only).
//   - Debug signs the binding data with an ephemeral secp256k1 key. It proves
//     nothing about the platform and exists for local development.
//
// A Boundary picks one through oakhpke.Config.Endorser, either directly or
// by name with New:
//
//	e, err := endorse.New("confidential-space")
//	...
//	b, err := oakhpke.New(oakhpke.Config{Endorser: e})
package endorse
