package tilesplit

import "errors"

// Process exit codes.
const (
	ExitOK                = 0
	ExitFailure           = 1
	ExitUsage             = 2
	ExitInvalidInput      = 3
	ExitInvalidCrop       = 4
	ExitUnsupportedAspect = 10
	ExitIO                = 11
)

var (
	// ErrUsage reports missing or malformed invocation arguments.
	ErrUsage = errors.New("usage error")
	// ErrInvalidInput reports zero or degenerate image dimensions.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidCrop reports a zero sized or out of bounds rectangle.
	ErrInvalidCrop = errors.New("invalid crop")
	// ErrUnsupportedAspect reports a source that is neither 16:10 nor 3:2.
	ErrUnsupportedAspect = errors.New("unsupported aspect ratio")
	// ErrIO reports read, write, codec or buffer consistency failures.
	ErrIO = errors.New("i/o error")
	// ErrNotUltraHDR is returned by SplitBytes when no extractor recognizes a gain map.
	ErrNotUltraHDR = errors.New("input is not Ultra HDR")
)

var (
	errTierFailed = errors.New("extraction tier failed")
	errCodecPanic = errors.New("codec panic")
)

// ExitCode maps an error chain to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrUsage):
		return ExitUsage
	case errors.Is(err, ErrInvalidInput):
		return ExitInvalidInput
	case errors.Is(err, ErrInvalidCrop):
		return ExitInvalidCrop
	case errors.Is(err, ErrUnsupportedAspect):
		return ExitUnsupportedAspect
	case errors.Is(err, ErrIO):
		return ExitIO
	default:
		return ExitFailure
	}
}
