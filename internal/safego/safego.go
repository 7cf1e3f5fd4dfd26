// Package safego runs work with panic recovery so that one misbehaving
// decoder or encoder cannot take down the whole UI.
package safego

import (
	"fmt"
	"runtime/debug"

	"github.com/jakebf/spriteslicer/internal/logging"
)

// PanicError is returned by Call when fn panicked.
type PanicError struct {
	Name      string
	Recovered any
	Stack     []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Name, e.Recovered)
}

// Call runs fn and converts a panic into a *PanicError. The panic and its
// stack are logged at error level.
func Call(name string, fn func() error) (err error) {
	if name == "" {
		name = "goroutine"
	}
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			logging.Error("panic in %s: %v\n%s", name, r, stack)
			err = &PanicError{Name: name, Recovered: r, Stack: stack}
		}
	}()
	return fn()
}

// Run is Call for functions that do not return an error.
func Run(name string, fn func()) {
	_ = Call(name, func() error {
		fn()
		return nil
	})
}

// Go runs fn in a new goroutine with panic recovery.
func Go(name string, fn func()) {
	go Run(name, fn)
}
