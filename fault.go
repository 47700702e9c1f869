package tilesplit

import (
	"fmt"
	"runtime/debug"
)

// guard runs one codec call behind a fault barrier. Panics, including memory
// faults the runtime converts with SetPanicOnFault, become errCodecPanic.
// The previous fault setting is restored when fn returns or panics.
func guard[T any](name string, fn func() (T, error)) (v T, err error) {
	prev := debug.SetPanicOnFault(true)
	defer func() {
		debug.SetPanicOnFault(prev)
		if r := recover(); r != nil {
			var zero T
			v, err = zero, fmt.Errorf("%w: %s: %v", errCodecPanic, name, r)
		}
	}()
	return fn()
}
