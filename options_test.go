package immunisation

import "testing"

func TestDefaultOptions(t *testing.T) {
	o := DefaultOptions()

	if !o.RunConformance {
		t.Error("conformance should be on by default")
	}
	if !o.RunPostValidation {
		t.Error("post-validation should be on by default")
	}
	if !o.HonourReduceFlag {
		t.Error("reduce-validation flag should be honoured by default")
	}
	if o.StrictMode {
		t.Error("strict mode should be off by default")
	}
	if o.WorkerCount < 1 {
		t.Errorf("WorkerCount = %d, want >= 1", o.WorkerCount)
	}
}

func TestOptionSetters(t *testing.T) {
	o := DefaultOptions()
	for _, opt := range []Option{
		WithConformance(false),
		WithPostValidation(false),
		WithReduceFlag(false),
		WithStrictMode(true),
		WithMaxErrors(10),
		WithWorkerCount(3),
		WithPooling(false),
		WithExpressionCache(512),
	} {
		opt(o)
	}

	if o.RunConformance || o.RunPostValidation || o.HonourReduceFlag {
		t.Error("stage flags were not applied")
	}
	if !o.StrictMode {
		t.Error("StrictMode not applied")
	}
	if o.MaxErrors != 10 || o.WorkerCount != 3 || o.EnablePooling {
		t.Error("performance options not applied")
	}
	if o.ExpressionCacheSize != 512 {
		t.Errorf("ExpressionCacheSize = %d", o.ExpressionCacheSize)
	}
}

func TestWorkerCountIgnoresNonPositive(t *testing.T) {
	o := DefaultOptions()
	want := o.WorkerCount
	WithWorkerCount(0)(o)
	WithWorkerCount(-4)(o)
	if o.WorkerCount != want {
		t.Errorf("WorkerCount = %d, want %d", o.WorkerCount, want)
	}
}

func TestStrictOptionsPreset(t *testing.T) {
	o := DefaultOptions()
	for _, opt := range StrictOptions() {
		opt(o)
	}
	if !o.StrictMode || o.HonourReduceFlag {
		t.Error("strict preset should enable strict mode and ignore the reduce flag")
	}
}
