// Package transport opens the sinks that channels write protocol text to.
//
// A sink is addressed by a URL of the form "<scheme>:<target>":
//
//	file:/var/log/probe.oml   truncate or create a local file
//	file:-                    standard output (never closed)
//	tcp:collector:3003        stream socket; the port defaults to 3003
//	mqtt:cpu                  publish batches to <topic_prefix>/measurements/cpu
//	nats:lab1/cpu             publish batches to <subject_prefix>.lab1.cpu
//	ws://collector:8080/oml   one websocket text message per batch
//	sqlite:/var/lib/spool.db  persist every line in a SQLite spool table
//
// file and tcp are always available. The others are registered by the
// caller (MQTTDialer, NATSDialer, WebSocketDialer, SpoolDialer) because they
// need configuration.
//
// Errors are classified with IsBrokenConnection and IsConnectionRefused so
// the channel sender can decide whether to reconnect.
package transport
