package externtype

import "fmt"

// ConfigError reports an invalid entry passed to New.
type ConfigError struct {
	// Index is the position of the offending entry in the overrides.
	Index int
	Entry Entry
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("extern type %d (%q -> %q): %v", e.Index, e.Entry.Path, e.Entry.Target, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
