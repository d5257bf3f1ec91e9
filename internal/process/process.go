// Package process terminates browser process trees left behind by renders.
package process

import "errors"

// ErrInvalidPID is returned for PIDs that do not name a child process.
var ErrInvalidPID = errors.New("invalid pid")
