// Package protocol implements the OML text protocol (version 3) spoken
// between a measurement client and a collection server.
//
// A connection starts with a header block: "key: value" lines describing
// the experiment, sender and application, followed by one schema line per
// measurement point and terminated by an empty line. Every following line
// is a tab-separated sample:
//
//	protocol: 3
//	experiment-id: lab1
//	start_time: 1700000000
//	sender-id: node7
//	app-name: probe
//	content: text
//	schema: 1 probe_cpu load:double
//
//	0.512	1	1	0.42
//
// The package only formats and parses text. Queueing and delivery live in
// the channel package.
package protocol
