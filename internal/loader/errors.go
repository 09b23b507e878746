package loader

import (
	"errors"
	"fmt"
)

// ErrMalformedCredential marks a wordlist line without a ':' separator.
var ErrMalformedCredential = errors.New("credential line has no ':' separator")

// ConfigError reports an input file that cannot be used for a run. Line is 0
// when the problem concerns the whole file.
type ConfigError struct {
	Path string
	Line int
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
