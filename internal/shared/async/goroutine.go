// Package async starts background goroutines whose panics become errors.
package async

import (
	"fmt"
	"runtime/debug"
)

// PanicLogger receives panic reports.
type PanicLogger interface {
	Error(format string, args ...any)
}

// Run runs fn in a goroutine and delivers its result on the returned
// channel, which has capacity one. A panic is reported as an error.
func Run(logger PanicLogger, name string, fn func() error) <-chan error {
	out := make(chan error, 1)
	go func() {
		var err error
		defer func() {
			if r := recover(); r != nil {
				if logger != nil {
					logger.Error("goroutine panic [%s]: %v, stack: %s", name, r, debug.Stack())
				}
				err = fmt.Errorf("%s panicked: %v", name, r)
			}
			out <- err
		}()
		err = fn()
	}()
	return out
}
