package immunisation

import "runtime"

// Option configures the ImmunizationValidator.
type Option func(*Options)

// Options holds all configuration for the validator.
type Options struct {
	// Stage flags
	RunConformance    bool
	RunPostValidation bool
	HonourReduceFlag  bool
	StrictMode        bool

	// Performance
	MaxErrors     int
	WorkerCount   int
	EnablePooling bool

	// Cache sizes
	ExpressionCacheSize int

	// MandationTable overrides the embedded mandation table when non-nil.
	// The value is an opaque handle interpreted by the mandation package.
	MandationTable any
}

// DefaultOptions returns the default configuration.
func DefaultOptions() *Options {
	return &Options{
		RunConformance:    true,
		RunPostValidation: true,
		HonourReduceFlag:  true,
		StrictMode:        false,

		MaxErrors:     0, // unlimited
		WorkerCount:   runtime.NumCPU(),
		EnablePooling: true,

		ExpressionCacheSize: 256,
	}
}

// --- Stage Options ---

// WithConformance enables or disables the FHIR model conformance stage.
func WithConformance(enable bool) Option {
	return func(o *Options) {
		o.RunConformance = enable
	}
}

// WithPostValidation enables or disables the mandation stage.
func WithPostValidation(enable bool) Option {
	return func(o *Options) {
		o.RunPostValidation = enable
	}
}

// WithReduceFlag controls whether a record's ReduceValidation questionnaire
// answer is honoured. When disabled, post-validation always runs.
func WithReduceFlag(honour bool) Option {
	return func(o *Options) {
		o.HonourReduceFlag = honour
	}
}

// WithStrictMode treats warnings as errors.
func WithStrictMode(enable bool) Option {
	return func(o *Options) {
		o.StrictMode = enable
	}
}

// WithMandationTable supplies an override mandation table.
func WithMandationTable(table any) Option {
	return func(o *Options) {
		o.MandationTable = table
	}
}

// --- Performance Options ---

// WithMaxErrors sets the maximum number of errors before stopping validation.
// Use 0 for unlimited.
func WithMaxErrors(max int) Option {
	return func(o *Options) {
		o.MaxErrors = max
	}
}

// WithWorkerCount sets the number of workers for batch validation.
// Defaults to runtime.NumCPU().
func WithWorkerCount(count int) Option {
	return func(o *Options) {
		if count > 0 {
			o.WorkerCount = count
		}
	}
}

// WithPooling enables or disables object pooling.
// Pooling reduces GC pressure but requires calling Release() on results.
func WithPooling(enable bool) Option {
	return func(o *Options) {
		o.EnablePooling = enable
	}
}

// WithExpressionCache sets the FHIRPath expression cache size.
func WithExpressionCache(size int) Option {
	return func(o *Options) {
		if size > 0 {
			o.ExpressionCacheSize = size
		}
	}
}

// --- Presets ---

// FastOptions returns options optimized for bulk throughput.
// Skips the typed-model conformance stage.
func FastOptions() []Option {
	return []Option{
		WithConformance(false),
		WithPooling(true),
	}
}

// StrictOptions returns options for strict validation.
// Runs every stage, ignores the reduce-validation flag and treats
// warnings as errors.
func StrictOptions() []Option {
	return []Option{
		WithConformance(true),
		WithPostValidation(true),
		WithReduceFlag(false),
		WithStrictMode(true),
	}
}

// DebugOptions returns options useful for debugging.
// Disables pooling for easier inspection of results.
func DebugOptions() []Option {
	return []Option{
		WithPooling(false),
		WithMaxErrors(100),
	}
}
