package syncer

import "errors"

// ConfigError means the destination table cannot be used as configured. It
// is always raised before anything is written or deleted.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "config error: " + e.Reason
}

// ErrNotImplemented is returned by UpdateFromSheet.
var ErrNotImplemented = errors.New("not implemented")
