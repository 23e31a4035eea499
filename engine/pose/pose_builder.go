package pose

// EvaluatorBuilderOption is a functional option for configuring an Evaluator during construction.
type EvaluatorBuilderOption func(*evaluator)

// WithCaching is an option builder that toggles the use of the per-clip pose cache.
// Caching is enabled by default; disabling it is mostly useful for benchmarks.
//
// Parameters:
//   - enabled: whether evaluated poses are read from and stored in the clip's cache
//
// Returns:
//   - EvaluatorBuilderOption: a function that applies the caching option to an evaluator
func WithCaching(enabled bool) EvaluatorBuilderOption {
	return func(e *evaluator) {
		e.caching = enabled
	}
}

// WithDegenerateLogging is an option builder that toggles the warning logged when a
// near-zero quaternion is replaced by identity.
//
// Parameters:
//   - enabled: whether degenerate rotations are logged
//
// Returns:
//   - EvaluatorBuilderOption: a function that applies the logging option to an evaluator
func WithDegenerateLogging(enabled bool) EvaluatorBuilderOption {
	return func(e *evaluator) {
		e.logDegenerate = enabled
	}
}
