// Package logging provides structured logging for sinric-link.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the runtime. Packages below it
// (websocket, session, device) declare their own small Logger interfaces,
// which *Logger satisfies.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version) on all log entries
//   - Rotated file output via lumberjack
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr, file
//	  file:
//	    path: "./logs/sinriclink.log"
//	    max_size: 10     # megabytes
//	    max_backups: 3
//	    max_age: 28      # days
//
// # Security
//
// Never log the app secret or message signatures.
package logging
