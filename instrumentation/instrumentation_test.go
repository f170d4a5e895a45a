package instrumentation

import (
	"context"
	"testing"
)

func TestNewDisabledUsesNoopProviders(t *testing.T) {
	inst, err := New(Config{Enabled: false})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if inst.Metrics() == nil {
		t.Fatal("Metrics() = nil")
	}

	// Recording against no-op instruments must be safe.
	inst.Metrics().AuthURLIssued.Add(context.Background(), 1)
	inst.Metrics().TokenRefreshed.Add(context.Background(), 1)
}

func TestNewDefaults(t *testing.T) {
	inst, err := New(Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if inst.config.ServiceName != "ledgerlink" {
		t.Errorf("ServiceName = %q, want default", inst.config.ServiceName)
	}
	if inst.config.ServiceVersion != "unknown" {
		t.Errorf("ServiceVersion = %q, want %q", inst.config.ServiceVersion, "unknown")
	}
}

func TestRegisterConnectionCountCallback(t *testing.T) {
	inst, err := New(Config{Enabled: true})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := inst.RegisterConnectionCountCallback(func() int64 { return 3 }); err != nil {
		t.Errorf("RegisterConnectionCountCallback() error = %v", err)
	}
}

func TestShutdownIdempotent(t *testing.T) {
	inst, err := New(Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := inst.Shutdown(context.Background()); err != nil {
		t.Errorf("first Shutdown() error = %v", err)
	}
	if err := inst.Shutdown(context.Background()); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
}
