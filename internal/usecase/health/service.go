package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	inference InferenceChecker
	catalog   CatalogReader
	cache     CachePinger
}

// New creates a Service. inference and cache can be nil.
func New(inference InferenceChecker, catalog CatalogReader, cache CachePinger) *Service {
	return &Service{inference: inference, catalog: catalog, cache: cache}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if s.catalog == nil || s.catalog.Len() == 0 {
		checks["dataset"] = CheckError
	} else {
		checks["dataset"] = CheckOK
	}

	if s.inference != nil {
		if err := s.inference.HealthCheck(ctx); err != nil {
			checks["inference"] = CheckError
		} else {
			checks["inference"] = CheckOK
		}
	}

	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			checks["cache"] = CheckError
		} else {
			checks["cache"] = CheckOK
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}
