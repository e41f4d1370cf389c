// Package core defines sentinel errors.
package core

import "errors"

// Sentinel errors shared across packages. Wrap with fmt.Errorf("...: %w", err)
// and test with errors.Is.
var (
	// Configuration errors
	ErrConfigInvalid = errors.New("pktpeek: invalid configuration")

	// Session errors
	ErrSessionClosed = errors.New("pktpeek: session closed")
	ErrUnknownFormat = errors.New("pktpeek: unknown output format")

	// Source errors
	ErrSourceNotStarted    = errors.New("pktpeek: source not started")
	ErrUnsupportedLinkType = errors.New("pktpeek: unsupported link type")
	ErrInvalidHex          = errors.New("pktpeek: invalid hex input")
)
