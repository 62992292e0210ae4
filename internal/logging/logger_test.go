package logging

import "testing"

func TestNewDevelopment(t *testing.T) {
	t.Parallel()

	logger, err := New(true)
	if err != nil {
		t.Fatalf("New(true) error = %v", err)
	}
	if logger == nil {
		t.Fatal("New(true) returned nil logger")
	}
	logger.Debug("dev logger works")
}

func TestNewProduction(t *testing.T) {
	t.Parallel()

	logger, err := New(false)
	if err != nil {
		t.Fatalf("New(false) error = %v", err)
	}
	if logger == nil {
		t.Fatal("New(false) returned nil logger")
	}
}

func TestCriticalField(t *testing.T) {
	t.Parallel()

	f := Critical()
	if f.Key != "critical" {
		t.Fatalf("Critical() key = %q, want critical", f.Key)
	}
}
