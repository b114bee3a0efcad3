package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// ProviderChecker checks an external API provider's availability.
type ProviderChecker interface {
	HealthCheck(ctx context.Context) error
}
