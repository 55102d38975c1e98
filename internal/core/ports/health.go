package ports

import "context"

// HealthChecker probes one dependency; a non-nil error marks it unhealthy.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
)
