package analysis

import (
	"errors"
	"fmt"
)

// ErrNoDateKey is wrapped by ConfigError when a table has no usable date
// for every row.
var ErrNoDateKey = errors.New("table has no date key")

// ConfigError reports a request that cannot be evaluated: a missing
// column, a table without date key, empty or duplicated lags or variable
// lists, or a significance level outside (0, 1). It is returned before
// any correlation is computed.
type ConfigError struct {
	Table  string // "pond", "weather" or "" when the problem is not table-specific
	Column string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e == nil {
		return "invalid configuration"
	}
	msg := "invalid configuration"
	if e.Table != "" {
		msg += ": " + e.Table + " table"
	}
	if e.Column != "" {
		msg += fmt.Sprintf(": column %q", e.Column)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
