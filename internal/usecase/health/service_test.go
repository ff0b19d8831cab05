package health

import (
	"context"
	"errors"
	"testing"
)

type mockChecker struct{ err error }

func (m *mockChecker) HealthCheck(_ context.Context) error { return m.err }

type mockCatalog struct{ n int }

func (m *mockCatalog) Len() int { return m.n }

type mockPinger struct{ err error }

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(&mockChecker{}, &mockCatalog{n: 300}, nil)
	report := svc.Check(context.Background())

	if report.Status != Healthy {
		t.Fatalf("status = %s, want %s", report.Status, Healthy)
	}
	if report.Checks["dataset"] != CheckOK {
		t.Error("dataset check should pass")
	}
	if report.Checks["inference"] != CheckOK {
		t.Error("inference check should pass")
	}
	if _, ok := report.Checks["cache"]; ok {
		t.Error("cache check should be absent when no pinger is wired")
	}
}

func TestCheck_InferenceDown(t *testing.T) {
	svc := New(&mockChecker{err: errors.New("connection refused")}, &mockCatalog{n: 10}, nil)
	report := svc.Check(context.Background())

	if report.Status != Degraded {
		t.Fatalf("status = %s, want %s", report.Status, Degraded)
	}
	if report.Checks["inference"] != CheckError {
		t.Error("inference check should fail")
	}
}

func TestCheck_EmptyDataset(t *testing.T) {
	svc := New(&mockChecker{}, &mockCatalog{n: 0}, nil)
	report := svc.Check(context.Background())

	if report.Status != Degraded {
		t.Fatalf("status = %s, want %s", report.Status, Degraded)
	}
	if report.Checks["dataset"] != CheckError {
		t.Error("dataset check should fail for an empty catalog")
	}
}

func TestCheck_CacheBackend(t *testing.T) {
	svc := New(&mockChecker{}, &mockCatalog{n: 1}, &mockPinger{err: errors.New("down")})
	report := svc.Check(context.Background())

	if report.Status != Degraded {
		t.Fatalf("status = %s, want %s", report.Status, Degraded)
	}
	if report.Checks["cache"] != CheckError {
		t.Error("cache check should fail")
	}
}
