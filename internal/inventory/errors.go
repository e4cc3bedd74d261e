package inventory

import "errors"

var (
	// ErrDeviceNotFound is returned when a UDN is not in the inventory.
	ErrDeviceNotFound = errors.New("inventory: device not found")

	// ErrInvalidRecord is returned when a record is missing its UDN or
	// root UDN.
	ErrInvalidRecord = errors.New("inventory: invalid record")
)
