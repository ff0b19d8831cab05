package health

import "context"

// InferenceChecker checks inference service availability.
type InferenceChecker interface {
	HealthCheck(ctx context.Context) error
}

// CatalogReader reports the size of the loaded food catalog.
type CatalogReader interface {
	Len() int
}

// CachePinger checks an external cache backend (redis driver only).
type CachePinger interface {
	Ping(ctx context.Context) error
}
