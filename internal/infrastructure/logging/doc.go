// Package logging provides structured diagnostic logging for the OML client.
//
// This package wraps Go's standard log/slog package. Diagnostics are a side
// channel: they go to stderr by default and never touch a measurement sink.
//
// # Configuration
//
//	logging:
//	  level: "info"      # trace, debug, info, warn, error
//	  format: "text"     # json, text
//	  output: "stderr"   # stderr, stdout
//	  verbosity: 0       # 0 = level above, >0 debug, >3 trace
//
// The verbosity mirrors the --oml-log-level flag.
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("collection URI", "uri", uri)
//	logger.Debug("binding channels", "point", "cpu")
package logging
