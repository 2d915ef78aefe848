package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/generativecomputing/oakhpke-go/pkg/oakhpke"
	"github.com/generativecomputing/oakhpke-go/pkg/oakhpke/endorse"
	"github.com/generativecomputing/oakhpke-go/pkg/oakhpke/logging"
)

const usage = "generate, endorse and exercise HPKE key pairs held by an oakhpke boundary"

var evidenceInFlag = &cli.StringFlag{
	Name:     "in",
	Usage:    "evidence JSON file to verify, - for stdin",
	Required: true,
}

var trustedKeyFlag = &cli.StringFlag{
	Name:  "trusted-debug-key",
	Usage: "base64 compressed secp256k1 key expected to sign debug evidence",
}

var iterationsFlag = &cli.IntFlag{
	Name:  "n",
	Usage: "number of request/response round trips",
	Value: 1,
}

func main() {
	app := &cli.App{
		Name:  "oakhpke",
		Usage: usage,
		Flags: []cli.Flag{
			logJSONFlag,
			logDebugFlag,
			logUIDFlag,
			suiteFlag,
		},
		Commands: []*cli.Command{
			{
				Name:  "version",
				Usage: "print the build version",
				Action: func(cCtx *cli.Context) error {
					fmt.Println(oakhpke.BuildInfo())
					return nil
				},
			},
			{
				Name:   "keygen",
				Usage:  "generate a key pair and print its public key",
				Action: runKeygen,
			},
			{
				Name:   "selftest",
				Usage:  "run request/response round trips against a fresh key pair",
				Flags:  []cli.Flag{iterationsFlag},
				Action: runSelftest,
			},
			{
				Name:   "evidence",
				Usage:  "generate a key pair and print endorsed evidence for it",
				Flags:  []cli.Flag{endorserFlag, endorseTimeoutFlag},
				Action: runEvidence,
			},
			{
				Name:   "verify",
				Usage:  "check that evidence binds its public key",
				Flags:  []cli.Flag{evidenceInFlag, trustedKeyFlag},
				Action: runVerify,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newBoundary(cCtx *cli.Context, endorser oakhpke.Endorser) (*oakhpke.Boundary, error) {
	suite, err := oakhpke.ParseSuite(cCtx.String(suiteFlag.Name))
	if err != nil {
		return nil, err
	}
	return oakhpke.New(oakhpke.Config{
		Suite:          suite,
		Endorser:       endorser,
		EndorseTimeout: cCtx.Duration(endorseTimeoutFlag.Name),
		Logger:         logging.New(setupLogger(cCtx)),
	})
}

func closeBoundary(b *oakhpke.Boundary) {
	if err := b.Close(); err != nil {
		log.Printf("close error: %v", err)
	}
}

func runKeygen(cCtx *cli.Context) error {
	b, err := newBoundary(cCtx, nil)
	if err != nil {
		return err
	}
	defer closeBoundary(b)

	h, err := b.Generate()
	if err != nil {
		return err
	}
	pub, err := b.PublicKey(h)
	if err != nil {
		return err
	}

	out := struct {
		Suite     string `json:"suite"`
		PublicKey string `json:"public_key"`
	}{b.Suite().String(), base64.StdEncoding.EncodeToString(pub)}
	return printJSON(out)
}

func runSelftest(cCtx *cli.Context) error {
	b, err := newBoundary(cCtx, nil)
	if err != nil {
		return err
	}
	defer closeBoundary(b)

	n := cCtx.Int(iterationsFlag.Name)
	for i := 0; i < n; i++ {
		if err := roundTrip(b, i); err != nil {
			return fmt.Errorf("round trip %d: %w", i, err)
		}
	}
	st := b.Stats()
	fmt.Printf("ok: %d round trips, %d key pairs generated, %d released\n", n, st.Generated, st.Released)
	return nil
}

func roundTrip(b *oakhpke.Boundary, i int) error {
	h, err := b.Generate()
	if err != nil {
		return err
	}
	defer func() { _ = b.Release(h) }()

	pub, err := b.PublicKey(h)
	if err != nil {
		return err
	}
	question := []byte(fmt.Sprintf("request %d", i))
	answer := []byte(fmt.Sprintf("response %d", i))

	req, opener, err := oakhpke.SealRequest(pub, b.Suite(), nil, question, nil, nil)
	if err != nil {
		return err
	}
	got, rc, err := b.DecryptRequest(h, req)
	if err != nil {
		return err
	}
	if string(got) != string(question) {
		return errors.New("request plaintext mismatch")
	}
	resp, err := b.EncryptResponse(rc, answer, nil)
	if err != nil {
		return err
	}
	back, err := opener.OpenResponse(resp, nil)
	if err != nil {
		return err
	}
	if string(back) != string(answer) {
		return errors.New("response plaintext mismatch")
	}
	return nil
}

func runEvidence(cCtx *cli.Context) error {
	endorser, err := endorse.New(cCtx.String(endorserFlag.Name))
	if err != nil {
		return err
	}
	b, err := newBoundary(cCtx, endorser)
	if err != nil {
		return err
	}
	defer closeBoundary(b)

	h, err := b.Generate()
	if err != nil {
		return err
	}
	ev, err := b.CreateEndorsedEvidence(context.Background(), h)
	if err != nil {
		return err
	}
	return printJSON(ev)
}

func runVerify(cCtx *cli.Context) error {
	suite, err := oakhpke.ParseSuite(cCtx.String(suiteFlag.Name))
	if err != nil {
		return err
	}

	var raw []byte
	if path := cCtx.String(evidenceInFlag.Name); path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("reading evidence: %w", err)
	}
	ev, err := oakhpke.UnmarshalEvidence(raw)
	if err != nil {
		return fmt.Errorf("parsing evidence: %w", err)
	}
	if suite, err = evidenceSuite(ev, suite, cCtx.IsSet(suiteFlag.Name)); err != nil {
		return err
	}

	switch ev.Type {
	case endorse.TypeDebug:
		var trusted []byte
		if k := cCtx.String(trustedKeyFlag.Name); k != "" {
			if trusted, err = base64.StdEncoding.DecodeString(k); err != nil {
				return fmt.Errorf("decoding trusted key: %w", err)
			}
		}
		err = endorse.VerifyDebug(ev, suite, trusted)
	case endorse.TypeTDX:
		err = endorse.CheckTDXBinding(ev, suite)
	case endorse.TypeConfidentialSpace:
		err = endorse.CheckLauncherNonce(ev)
	default:
		err = fmt.Errorf("unsupported evidence type %q", ev.Type)
	}
	if err != nil {
		return err
	}
	fmt.Printf("ok: %s evidence %s binds the public key\n", ev.Type, ev.ID)
	return nil
}

// evidenceSuite picks the suite a binding is checked against. An explicit
// --suite must agree with the suite the evidence names; without one the
// evidence's suite is used, falling back to the flag default.
func evidenceSuite(ev *oakhpke.Evidence, flagSuite oakhpke.Suite, explicit bool) (oakhpke.Suite, error) {
	if ev.Suite == "" {
		return flagSuite, nil
	}
	named, err := oakhpke.ParseSuite(ev.Suite)
	if err != nil {
		return oakhpke.Suite{}, fmt.Errorf("evidence suite: %w", err)
	}
	if explicit && named != flagSuite {
		return oakhpke.Suite{}, fmt.Errorf("evidence is for suite %s but --suite is %s", named, flagSuite)
	}
	return named, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
