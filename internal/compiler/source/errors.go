package source

import "errors"

// ErrTooManySources is returned by Register once MaxSources chunks have
// already been registered.
var ErrTooManySources = errors.New("source: too many registered source files (max 256)")
