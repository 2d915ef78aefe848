package main

import (
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/generativecomputing/oakhpke-go/pkg/oakhpke"
	"github.com/generativecomputing/oakhpke-go/pkg/oakhpke/logging"
)

var logJSONFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}

var logDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}

var logUIDFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}

var suiteFlag = &cli.StringFlag{
	Name:    "suite",
	Usage:   "HPKE suite as KEM/KDF/AEAD",
	Value:   oakhpke.DefaultSuite.String(),
	EnvVars: []string{"OAK_HPKE_SUITE"},
}

var endorserFlag = &cli.StringFlag{
	Name:    "endorser",
	Usage:   "endorser to use: none, debug, tdx or confidential-space",
	Value:   "debug",
	EnvVars: []string{"OAK_HPKE_ENDORSER"},
}

var endorseTimeoutFlag = &cli.DurationFlag{
	Name:  "endorse-timeout",
	Usage: "upper bound on one endorsement",
	Value: 0,
}

func setupLogger(cCtx *cli.Context) *slog.Logger {
	logger := logging.Setup(os.Stderr, logging.Options{
		Debug:   cCtx.Bool(logDebugFlag.Name),
		JSON:    cCtx.Bool(logJSONFlag.Name),
		Service: "oakhpke",
		Version: oakhpke.WrapperVersion(),
	})
	if cCtx.Bool(logUIDFlag.Name) {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}
