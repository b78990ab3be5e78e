package oml

import "errors"

var (
	// ErrMissingIdentity indicates the domain, node id or app name is missing.
	ErrMissingIdentity = errors.New("oml: missing identity")

	// ErrUnsupportedOption indicates a retired option such as OML_URL or --oml-url.
	ErrUnsupportedOption = errors.New("oml: unsupported option")

	// ErrStarted indicates a channel added after Start.
	ErrStarted = errors.New("oml: client already started")
)
