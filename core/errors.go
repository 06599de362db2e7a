package core

import "errors"

var (
	// ErrNoToken is returned when an operation needs a device token and
	// the push provider has not issued one.
	ErrNoToken = errors.New("no device token available")

	// ErrEngineClosed is returned by Initialize after Close.
	ErrEngineClosed = errors.New("engine closed")
)
