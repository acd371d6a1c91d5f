package risk

import "errors"

var (
	ErrConflict         = errors.New("risk profile modified concurrently")
	ErrDeviceExists     = errors.New("trusted device already exists")
	ErrTooManyConflicts = errors.New("too many concurrent risk updates")
)
