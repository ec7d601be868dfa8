package engine

import "errors"

var (
	// ErrInvalidConfiguration is returned at construction time; a run never
	// starts with a bad config.
	ErrInvalidConfiguration = errors.New("invalid engine configuration")

	// ErrStrategy wraps errors returned by the strategy callback. Non-fatal
	// by default: the step is skipped and logged. Config.StrategyFatal
	// promotes it to a run failure.
	ErrStrategy = errors.New("strategy error")

	ErrUnknownSide = errors.New("unknown order side")

	// errInsufficientCash never escapes the engine: the offending order is
	// skipped and a warning is logged instead.
	errInsufficientCash = errors.New("insufficient cash for buy order")
)
