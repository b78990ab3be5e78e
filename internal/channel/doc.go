// Package channel delivers protocol text to transport sinks asynchronously.
//
// A Channel owns one sink, an unbounded queue and exactly one sender
// goroutine. Producers call Send, which never blocks; the sender drains
// everything queued so far and writes it in a single batch, preceded by the
// header block whenever the current connection has not seen it yet.
//
// When a write fails because the connection broke, the sender closes the
// sink, waits the reconnect interval and dials the same URL again,
// repeating while the remote end refuses connections. The header is resent
// on the new connection before the failed batch is retried, so nothing
// queued is lost or reordered by a reconnect.
//
// Any other failure stops the sender. Later sends are counted in Dropped
// and the cause is available from Err.
//
// A Directory keys channels by (name, domain) and clones a channel for a new
// domain from the same name in the default domain.
package channel
