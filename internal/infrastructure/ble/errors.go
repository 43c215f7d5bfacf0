package ble

import "errors"

// Domain errors for the ble package.
var (
	// ErrUnavailable is returned when the adapter is not powered or not enabled.
	ErrUnavailable = errors.New("ble: adapter unavailable")

	// ErrUnknownAddress is returned when connecting to an id no scan has seen.
	ErrUnknownAddress = errors.New("ble: address not seen in scan")

	// ErrServiceNotFound is returned when a node does not expose the light service.
	ErrServiceNotFound = errors.New("ble: service not found")

	// ErrCharacteristicNotFound is returned when the command characteristic is missing.
	ErrCharacteristicNotFound = errors.New("ble: characteristic not found")

	// ErrInvalidUUID is returned for a malformed UUID in configuration.
	ErrInvalidUUID = errors.New("ble: invalid uuid")
)
