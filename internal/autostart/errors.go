package autostart

import (
	"errors"
	"fmt"
)

var ErrUnsupported = errors.New("autostart is not supported on this platform")

// CommandError reports a failed service manager call.
type CommandError struct {
	Args   []string
	Output []byte
	Err    error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("failed to run %v: %v\n%s", e.Args, e.Err, e.Output)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}
