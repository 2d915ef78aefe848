// Package logging provides a minimal logging facade for the HPKE boundary.
//
// The Logger interface wraps a subset of log/slog so applications can plug in
// their own implementation for testing, redaction, or an existing logging
// system:
//
//	logger := logging.New(nil) // slog.Default()
//	logger.Info(ctx, "key pair generated", "handle", h, "suite", suite)
//
// Setup builds the text or JSON slog handler used by the CLI and the C ABI:
//
//	base := logging.Setup(os.Stderr, logging.Options{Debug: true, JSON: true})
//	logger := logging.New(base)
//
// # Security Considerations
//
//   - Never log private keys, decrypted requests, or exported response secrets
//   - Use logging.Redacted() to record that a sensitive value was omitted
//   - Handles and public keys are safe to log
package logging
