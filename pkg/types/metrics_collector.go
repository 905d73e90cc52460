package types

import "time"

// MetricsCollector receives one event per provider round trip.
// Implementations must tolerate a nil tokens pointer.
type MetricsCollector interface {
	RecordProviderCall(provider ProviderType, model string, outcome string, latency time.Duration, tokens *int)
}
