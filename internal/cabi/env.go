package cabi

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/generativecomputing/oakhpke-go/pkg/oakhpke"
	"github.com/generativecomputing/oakhpke-go/pkg/oakhpke/endorse"
	"github.com/generativecomputing/oakhpke-go/pkg/oakhpke/logging"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvSuite          = "OAK_HPKE_SUITE"
	EnvEndorser       = "OAK_HPKE_ENDORSER"
	EnvMaxLive        = "OAK_HPKE_MAX_LIVE"
	EnvEndorseTimeout = "OAK_HPKE_ENDORSE_TIMEOUT"
	EnvLogLevel       = "OAK_HPKE_LOG_LEVEL"
	EnvLogJSON        = "OAK_HPKE_LOG_JSON"
)

// DefaultEndorseTimeout bounds endorsement when EnvEndorseTimeout is unset.
const DefaultEndorseTimeout = 30 * time.Second

// ConfigFromEnv builds the boundary configuration for the C library. getenv
// is usually os.Getenv; logs go to w.
func ConfigFromEnv(getenv func(string) string, w io.Writer) (oakhpke.Config, error) {
	var cfg oakhpke.Config

	suite, err := oakhpke.ParseSuite(getenv(EnvSuite))
	if err != nil {
		return cfg, fmt.Errorf("%s: %w", EnvSuite, err)
	}
	cfg.Suite = suite

	cfg.Endorser, err = endorse.New(getenv(EnvEndorser))
	if err != nil {
		return cfg, fmt.Errorf("%s: %w", EnvEndorser, err)
	}

	if v := getenv(EnvMaxLive); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return cfg, fmt.Errorf("%s: invalid count %q", EnvMaxLive, v)
		}
		cfg.MaxLiveHandles = n
	}

	cfg.EndorseTimeout = DefaultEndorseTimeout
	if v := getenv(EnvEndorseTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", EnvEndorseTimeout, err)
		}
		cfg.EndorseTimeout = d
	}

	opts := logging.Options{Service: "liboakhpke", Version: oakhpke.WrapperVersion()}
	if v := getenv(EnvLogLevel); v != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(v)); err != nil {
			return cfg, fmt.Errorf("%s: %w", EnvLogLevel, err)
		}
		opts.Level = level
	} else {
		opts.Level = slog.LevelWarn
	}
	if v := getenv(EnvLogJSON); v != "" {
		opts.JSON, err = strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", EnvLogJSON, err)
		}
	}
	cfg.Logger = logging.New(logging.Setup(w, opts))

	return cfg, nil
}
