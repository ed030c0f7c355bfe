package domain

import "errors"

var (
	// Startup errors, fatal.
	ErrConfiguration = errors.New("configuration error")
	ErrConnectivity  = errors.New("chain endpoint unreachable")

	// Poll cycle errors, recovered per address.
	ErrNetwork   = errors.New("balance fetch failed")
	ErrLogAppend = errors.New("balance log append failed")
)
