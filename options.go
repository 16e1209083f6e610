package bunrel

import "go.uber.org/zap"

// Options configures a Store.
type Options struct {
	// Logger receives lifecycle events (kind/association definitions,
	// inserts, query materialization). Defaults to a no-op logger.
	Logger *zap.Logger
	// AllowUnknownAttributes permits inserting attributes that the kind's
	// schema does not declare. Off by default: unknown attributes fail
	// validation.
	AllowUnknownAttributes bool
}

// DefaultOptions returns the default store configuration.
func DefaultOptions() Options {
	return Options{
		Logger: zap.NewNop(),
	}
}
