package exception

import "errors"

// Config errors
var (
	ErrInvalidConfig           = errors.New("config: invalid value")
	ErrUnsupportedConfigFormat = errors.New("config: unsupported format")
)
